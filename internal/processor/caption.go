package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/failure"
)

const softwareEncoder = "libx264"

// renderCaptions burns summary into a copy of the job's source video as a
// stack of centered lines near the bottom edge.
func (p *implProcessor) renderCaptions(ctx context.Context, j *job, summary string) (string, error) {
	lines := wrapLines(summary, p.cfg.Caption.MaxLineChars)
	if len(lines) == 0 {
		return "", failure.New(failure.KindVideoRendering, "summary has no caption text", nil)
	}

	base := strings.TrimSuffix(filepath.Base(j.source), filepath.Ext(j.source))
	outputPath := filepath.Join(p.cfg.Paths.Output, fmt.Sprintf("%s_%s_summary.mp4", base, j.id))
	j.track(outputPath)

	filter := buildDrawtextFilter(lines, p.cfg.Caption)

	if err := p.renders.Acquire(ctx, 1); err != nil {
		return "", failure.New(failure.KindTimeout, "waiting for render slot", err)
	}
	defer p.renders.Release(1)

	p.logger.Info(ctx, "Rendering %d caption line(s) with %s", len(lines), p.cfg.FFmpeg.Encoder)

	args := []string{
		"-i", j.source,
		"-vf", filter,
		"-c:v", p.cfg.FFmpeg.Encoder,
		"-b:v", p.cfg.FFmpeg.VideoBitrate,
		"-c:a", p.cfg.FFmpeg.AudioCodec,
		"-y",
		outputPath,
	}

	if _, err := p.executor.Execute(ctx, p.cfg.FFmpeg.BinaryPath, args...); err != nil {
		if p.cfg.FFmpeg.Encoder == softwareEncoder || ctx.Err() != nil {
			return "", failure.New(failure.KindVideoRendering, "ffmpeg render captions", err).
				WithDetail(commandDetail(err))
		}

		p.logger.Warn(ctx, "Encoder %s failed, trying %s: %v", p.cfg.FFmpeg.Encoder, softwareEncoder, err)
		if err := p.renderSoftware(ctx, j.source, filter, outputPath); err != nil {
			return "", failure.New(failure.KindVideoRendering, "both hardware and software encoders failed", err).
				WithDetail(commandDetail(err))
		}
	}

	if !fileExists(outputPath) {
		return "", failure.New(failure.KindVideoRenderingFailed, "ffmpeg produced no video output", nil)
	}

	p.logger.Info(ctx, "Captions rendered successfully: %s", outputPath)
	return outputPath, nil
}

func (p *implProcessor) renderSoftware(ctx context.Context, source, filter, outputPath string) error {
	args := []string{
		"-i", source,
		"-vf", filter,
		"-c:v", softwareEncoder,
		"-preset", p.cfg.FFmpeg.Preset,
		"-crf", "23",
		"-c:a", "copy",
		"-y",
		outputPath,
	}

	if _, err := p.executor.Execute(ctx, p.cfg.FFmpeg.BinaryPath, args...); err != nil {
		return fmt.Errorf("software encoder failed: %w", err)
	}
	return nil
}

// wrapLines packs words greedily into lines of at most maxChars runes. A word
// longer than maxChars is placed on its own line unsplit.
func wrapLines(text string, maxChars int) []string {
	var (
		lines   []string
		current strings.Builder
		width   int
	)

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if width > 0 && width+1+n > maxChars {
			lines = append(lines, current.String())
			current.Reset()
			width = 0
		}
		if width > 0 {
			current.WriteByte(' ')
			width++
		}
		current.WriteString(word)
		width += n
	}
	if width > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Text is rendered with expansion=none, so only the option-level escapes
// are needed once the graph parser strips the quotes.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, "\u2019",
	`:`, `\:`,
)

// escapeDrawtext makes text safe inside a single-quoted drawtext value.
func escapeDrawtext(text string) string {
	return drawtextEscaper.Replace(text)
}

// buildDrawtextFilter chains one drawtext per line. The last line sits
// bottom_margin pixels above the bottom edge and earlier lines stack above it.
func buildDrawtextFilter(lines []string, style config.CaptionConfig) string {
	lineHeight := style.FontSize * 3 / 2
	filters := make([]string, len(lines))

	for i, line := range lines {
		d := len(lines) - 1 - i
		offset := style.BottomMargin + (d+1)*lineHeight
		filters[i] = fmt.Sprintf(
			"drawtext=text='%s':expansion=none:fontsize=%d:fontcolor=%s:box=1:boxcolor=%s:boxborderw=6:x=(w-text_w)/2:y=h-%d",
			escapeDrawtext(line), style.FontSize, style.FontColor, style.BoxColor, offset,
		)
	}
	return strings.Join(filters, ",")
}
