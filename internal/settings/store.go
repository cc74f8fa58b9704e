package settings

import "context"

// Store persists the configuration blob. Read returns ErrNotFound (wrapped
// or bare) when nothing has been written yet. Write replaces the blob
// atomically: a crash leaves either the old or the new document.
type Store interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}
