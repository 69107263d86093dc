package prompt

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
)

// SchemaName is the name sent with the strict json_schema response format.
const SchemaName = "analysis_result"

var modeDirectives = map[analysis.Mode]string{
	analysis.ModeExplain:  "Focus on clear, direct explanations. What is it, how does it work, why does it matter?",
	analysis.ModeResearch: "Academic tone. Use scientific names, technical specs and detailed bullet points.",
	analysis.ModeTeach:    `Educator tone. Include a section titled "Key Takeaway" and a section titled "Pop Quiz".`,
}

var audienceFraming = map[analysis.Audience]string{
	analysis.AudienceChild:   "Explain it so a five-year-old understands: very simple words, short sentences, friendly everyday comparisons.",
	analysis.AudienceStudent: "Pitch it at a high school student: plain language, define any technical term the first time it appears.",
	analysis.AudienceCollege: "Pitch it at an undergraduate: assume introductory coursework, use correct terminology.",
	analysis.AudienceExpert:  "Pitch it at an industry expert: be dense and precise, skip the basics.",
}

// GetSystemPrompt sets the assistant role and output contract.
func GetSystemPrompt() string {
	return `You are an advanced AI research assistant. You look at the images you are given and explain them.
You must produce one valid JSON object only (no markdown fences, no commentary around it).
The object has a "sections" array; each section has a "title" and a "content" string. Markdown is allowed inside "content".`
}

// GetUserPrompt builds the instruction text that follows the image parts.
// Unknown mode or audience values fall back to the defaults.
func GetUserPrompt(mode analysis.Mode, audience analysis.Audience, imageCount int) string {
	directive, ok := modeDirectives[mode]
	if !ok {
		mode = analysis.DefaultMode
		directive = modeDirectives[mode]
	}
	framing, ok := audienceFraming[audience]
	if !ok {
		audience = analysis.DefaultAudience
		framing = audienceFraming[audience]
	}

	var b strings.Builder
	if imageCount > 1 {
		b.WriteString("TASK: Compare and contrast the two provided images.\n")
	} else {
		b.WriteString("TASK: Analyze the provided image.\n")
	}
	fmt.Fprintf(&b, "MODE: %s\n", mode)
	fmt.Fprintf(&b, "AUDIENCE LEVEL: %s\n\n", audience)

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Identify the main subject(s) in the visual data with high precision.\n")
	if imageCount > 1 {
		b.WriteString("2. Since two images are provided, your PRIMARY goal is comparison.\n")
		b.WriteString("   - Identify similarities in structure, function, or context.\n")
		b.WriteString("   - Identify differences, anomalies, or progression.\n")
		b.WriteString(`   - Reference "Image 1" and "Image 2" explicitly.` + "\n")
	} else {
		b.WriteString("2. Provide a structured response tailored EXACTLY to the selected Mode and Audience.\n")
	}
	fmt.Fprintf(&b, "\nMODE DIRECTIVE: %s\n", directive)
	fmt.Fprintf(&b, "AUDIENCE DIRECTIVE: %s\n\n", framing)
	b.WriteString("OUTPUT FORMAT:\nReturn JSON with a 'sections' array containing 'title' and 'content' (Markdown allowed).")
	return b.String()
}

// ResponseSchema is the strict schema of analysis.Result.
func ResponseSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"sections": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"title":   {Type: jsonschema.String},
						"content": {Type: jsonschema.String},
					},
					Required:             []string{"title", "content"},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{"sections"},
		AdditionalProperties: false,
	}
}
