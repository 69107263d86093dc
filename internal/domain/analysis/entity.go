package analysis

import (
	"fmt"
	"strings"
)

// Mode enum, value = label yang dikirim ke model
type Mode string

const (
	ModeExplain  Mode = "Explain It"
	ModeResearch Mode = "Research View"
	ModeTeach    Mode = "Teach Me"
)

// Audience enum
type Audience string

const (
	AudienceChild   Audience = "5-Year-Old"
	AudienceStudent Audience = "High School Student"
	AudienceCollege Audience = "Undergraduate"
	AudienceExpert  Audience = "Industry Expert"
)

// InputMode selects single-image analysis or two-image comparison.
type InputMode string

const (
	InputSingle  InputMode = "Single Image"
	InputCompare InputMode = "Compare Two"
)

const (
	DefaultMode     = ModeExplain
	DefaultAudience = AudienceStudent

	// MaxImages is the number of images a single request may carry.
	MaxImages = 2
)

var modeKeys = map[string]Mode{
	"explain":       ModeExplain,
	"explain it":    ModeExplain,
	"research":      ModeResearch,
	"research view": ModeResearch,
	"teach":         ModeTeach,
	"teach me":      ModeTeach,
}

var audienceKeys = map[string]Audience{
	"child":               AudienceChild,
	"5-year-old":          AudienceChild,
	"student":             AudienceStudent,
	"high school student": AudienceStudent,
	"college":             AudienceCollege,
	"undergraduate":       AudienceCollege,
	"expert":              AudienceExpert,
	"industry expert":     AudienceExpert,
}

var inputKeys = map[string]InputMode{
	"single":       InputSingle,
	"single image": InputSingle,
	"compare":      InputCompare,
	"compare two":  InputCompare,
}

// ParseMode accepts a label ("Teach Me") or a short key ("teach").
// Empty input yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DefaultMode, nil
	}
	if m, ok := modeKeys[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ParseAudience accepts a label ("5-Year-Old") or a short key ("child").
// Empty input yields DefaultAudience.
func ParseAudience(s string) (Audience, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DefaultAudience, nil
	}
	if a, ok := audienceKeys[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAudience, s)
}

// ParseInputMode accepts a label or a short key; empty means single.
func ParseInputMode(s string) (InputMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return InputSingle, nil
	}
	if m, ok := inputKeys[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown input mode: %q", s)
}

// Image is one uploaded image blob.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

// Section value object, content is markdown
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Result is the structured answer from the model. Order of Sections matters.
type Result struct {
	Sections []Section `json:"sections"`
}

// Request untuk pipeline
type Request struct {
	Images   []Image
	Mode     Mode
	Audience Audience
}

// IsComparison reports whether the request asks for a two-image comparison.
func (r Request) IsComparison() bool { return len(r.Images) > 1 }

// Validate checks the image count. It never touches the network.
func (r Request) Validate() error {
	if len(r.Images) == 0 {
		return ErrNoImage
	}
	if len(r.Images) > MaxImages {
		return ErrTooManyImages
	}
	for i, img := range r.Images {
		if len(img.Data) == 0 {
			return fmt.Errorf("%w: image %d is empty", ErrNoImage, i+1)
		}
	}
	return nil
}
