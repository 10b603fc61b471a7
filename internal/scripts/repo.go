package scripts

import (
	"context"
	"errors"
)

// ErrNotFound indicates the script metadata does not exist.
var ErrNotFound = errors.New("script not found")

// Repo persists script metadata. Script text is never stored.
type Repo interface {
	Create(ctx context.Context, meta Metadata) error
	GetByID(ctx context.Context, id string) (Metadata, error)
}
