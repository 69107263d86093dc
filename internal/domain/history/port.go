package history

import "context"

// Thumbnailer makes the small preview stored with each item.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, data []byte) (string, error)
}
