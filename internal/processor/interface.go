package processor

import "context"

// Processor runs the video-to-summary pipeline for one uploaded file.
type Processor interface {
	// Process consumes videoPath and returns the rendered result. Every
	// intermediate file is removed before Process returns, on success or
	// failure.
	Process(ctx context.Context, videoPath string) (*Result, error)
}

// Result is the outcome of a successful run. VideoPath and ReportPath are
// owned by the caller.
type Result struct {
	JobID      string `json:"job_id"`
	Transcript string `json:"transcription"`
	Summary    string `json:"summary"`
	VideoPath  string `json:"video_path"`
	ReportPath string `json:"report_path,omitempty"`
}
