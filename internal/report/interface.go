package report

import "context"

// Writer renders a job's transcript and summary to a document.
type Writer interface {
	Write(ctx context.Context, r Report, outputPath string) error
}

// Report is the content of one job report.
type Report struct {
	Title      string
	Summary    string
	Transcript string
}
