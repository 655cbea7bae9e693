package transcriber

import "context"

// Transcriber converts one audio chunk to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
