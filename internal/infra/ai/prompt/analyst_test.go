package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
)

func TestGetUserPrompt_Single(t *testing.T) {
	p := GetUserPrompt(analysis.ModeExplain, analysis.AudienceStudent, 1)

	assert.Contains(t, p, "Analyze the provided image.")
	assert.NotContains(t, p, "Image 2")
	assert.Contains(t, p, "MODE: Explain It")
	assert.Contains(t, p, "AUDIENCE LEVEL: High School Student")
	assert.Contains(t, p, modeDirectives[analysis.ModeExplain])
}

func TestGetUserPrompt_Comparison(t *testing.T) {
	p := GetUserPrompt(analysis.ModeResearch, analysis.AudienceExpert, 2)

	assert.Contains(t, p, "Compare and contrast the two provided images.")
	assert.Contains(t, p, `"Image 1"`)
	assert.Contains(t, p, `"Image 2"`)
	assert.Contains(t, p, audienceFraming[analysis.AudienceExpert])
}

func TestGetUserPrompt_TeachAsksForTakeawayAndQuiz(t *testing.T) {
	p := GetUserPrompt(analysis.ModeTeach, analysis.AudienceChild, 1)

	assert.Contains(t, p, "Key Takeaway")
	assert.Contains(t, p, "Pop Quiz")
	assert.Contains(t, p, "5-Year-Old")
}

func TestGetUserPrompt_UnknownFallsBackToDefaults(t *testing.T) {
	p := GetUserPrompt("Shout", "Martian", 1)

	assert.Contains(t, p, "MODE: "+string(analysis.DefaultMode))
	assert.Contains(t, p, "AUDIENCE LEVEL: "+string(analysis.DefaultAudience))
}

func TestTablesCoverEveryValue(t *testing.T) {
	for _, m := range []analysis.Mode{analysis.ModeExplain, analysis.ModeResearch, analysis.ModeTeach} {
		assert.NotEmpty(t, modeDirectives[m], m)
	}
	for _, a := range []analysis.Audience{analysis.AudienceChild, analysis.AudienceStudent, analysis.AudienceCollege, analysis.AudienceExpert} {
		assert.NotEmpty(t, audienceFraming[a], a)
	}
}

func TestResponseSchema_RequiresTitleAndContent(t *testing.T) {
	raw, err := json.Marshal(ResponseSchema())
	require.NoError(t, err)

	var got struct {
		Required   []string `json:"required"`
		Properties struct {
			Sections struct {
				Type  string `json:"type"`
				Items struct {
					Required []string `json:"required"`
				} `json:"items"`
			} `json:"sections"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"sections"}, got.Required)
	assert.Equal(t, "array", got.Properties.Sections.Type)
	assert.ElementsMatch(t, []string{"title", "content"}, got.Properties.Sections.Items.Required)
}
