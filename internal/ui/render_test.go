package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/domain/users"
)

var res = analysis.Result{Sections: []analysis.Section{
	{Title: "Key Takeaway", Content: "Leaves turn light into sugar."},
	{Title: "Pop Quiz", Content: "What colour is chlorophyll?"},
}}

func TestResultMarkdown_KeepsSectionOrder(t *testing.T) {
	md := ResultMarkdown(res, analysis.ModeTeach, analysis.AudienceChild, false)

	assert.Contains(t, md, "# Teach Me · 5-Year-Old")
	assert.Less(t, bytes.Index([]byte(md), []byte("Key Takeaway")), bytes.Index([]byte(md), []byte("Pop Quiz")))
	assert.Contains(t, md, "_Not saved._")
}

func TestDisplay_RendersPlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewDisplay(&buf)
	require.NoError(t, err)

	require.NoError(t, d.Result(res, analysis.ModeTeach, analysis.AudienceChild, true))
	require.NoError(t, d.Failure("quota reached"))
	require.NoError(t, d.User(&users.User{Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, d.User(nil))

	out := buf.String()
	assert.Contains(t, out, "Pop Quiz")
	assert.Contains(t, out, "quota reached")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Not logged in.")
}

func TestHistoryMarkdown(t *testing.T) {
	assert.Equal(t, "No saved analyses yet.\n", HistoryMarkdown(nil))

	md := HistoryMarkdown([]history.Item{{
		ID: "abc", Timestamp: 1_700_000_000_000, Mode: analysis.ModeExplain,
		Audience: analysis.AudienceStudent, ImageCount: 2, Result: res,
	}})
	assert.Contains(t, md, "`abc`")
	assert.Contains(t, md, "Key Takeaway")
	assert.Contains(t, md, "| 2 |")
}
