package analysis

import "context"

// Client runs one analysis. Implemented by the AI provider adapter on the
// server and by the HTTP API client on the camera side.
type Client interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}
