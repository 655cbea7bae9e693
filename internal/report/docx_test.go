package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptParagraphs(t *testing.T) {
	text := "One. Two! Three? Four. Five."
	paras := transcriptParagraphs(text, 2)

	assert.Equal(t, []string{"One. Two!", "Three? Four.", "Five."}, paras)
	assert.Nil(t, transcriptParagraphs("   ", 2))
}

func TestSummaryLines(t *testing.T) {
	lines := summaryLines("# Title\n\n- first\n---\n  second  \n")
	assert.Equal(t, []string{"# Title", "- first", "second"}, lines)
}

func TestCleanMarkdownInline(t *testing.T) {
	assert.Equal(t, "bold and code", cleanMarkdownInline("**bold** and `code`"))
	assert.Equal(t, "Heading", cleanMarkdownInline("# Heading"))
}

func TestWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.docx")
	err := New().Write(context.Background(), Report{
		Title:      "clip.mp4",
		Summary:    "A **short** summary.\n- point one",
		Transcript: "Hello there. This is the transcript.",
	}, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWrite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "report.docx")
	assert.ErrorIs(t, New().Write(ctx, Report{Title: "x"}, out), context.Canceled)
	assert.NoFileExists(t, out)
}
