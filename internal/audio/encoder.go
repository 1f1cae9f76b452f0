package audio

import "context"

// Encoder opens encoded audio streams onto files.
type Encoder interface {
	Open(ctx context.Context, path string, profile Profile) (Stream, error)
}

// Stream is one running capture. Done yields exactly one StreamResult, either
// after Close or when the encoder stops on its own.
type Stream interface {
	Path() string
	Close() error
	Done() <-chan StreamResult
}

// StreamResult reports how a stream ended.
type StreamResult struct {
	Stream Stream
	Err    error
}
