package report

import (
	"context"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reSentence = regexp.MustCompile(`([.!?])\s+`)
)

// Write saves a report with a summary section followed by the transcript
// split into one paragraph per sentence group.
func (w *implWriter) Write(ctx context.Context, r Report, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), r.Title, true, 16)

	addStyledRun(doc.AddParagraph(""), "Summary", true, 15)
	for _, line := range summaryLines(r.Summary) {
		p := doc.AddParagraph("")
		if m := reBullet.FindStringSubmatch(line); m != nil {
			addRichText(p, "• "+m[1])
			continue
		}
		addRichText(p, line)
	}

	addStyledRun(doc.AddParagraph(""), "Transcript", true, 15)
	for _, para := range transcriptParagraphs(r.Transcript, 4) {
		doc.AddParagraph("").AddText(para).Font(fontName).Size(fontSize).Color("000000")
	}

	return doc.SaveTo(outputPath)
}

func summaryLines(summary string) []string {
	var lines []string
	for _, line := range strings.Split(summary, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

// transcriptParagraphs groups sentences of a flat transcript into paragraphs
// of at most perParagraph sentences.
func transcriptParagraphs(transcript string, perParagraph int) []string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}

	sentences := strings.Split(reSentence.ReplaceAllString(transcript, "$1\n"), "\n")

	var paras []string
	for i := 0; i < len(sentences); i += perParagraph {
		end := min(i+perParagraph, len(sentences))
		paras = append(paras, strings.Join(sentences[i:end], " "))
	}
	return paras
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimPrefix(s, "# ")
}
