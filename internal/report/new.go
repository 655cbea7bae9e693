package report

type implWriter struct{}

// New creates a Writer that produces .docx files.
func New() Writer {
	return &implWriter{}
}
