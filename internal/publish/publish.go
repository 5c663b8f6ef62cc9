// Package publish writes rendered documents to knowledge-base targets.
package publish

import (
	"context"
	"errors"

	"github.com/kevinmichaelchen/star-sync/internal/ledger"
)

// ErrNotConfigured is returned when a target lacks the settings it needs.
// Callers treat it as a skip, not a failure.
var ErrNotConfigured = errors.New("target not configured")

// Publisher stores a rendered document and returns an opaque handle that
// locates it (a document id or a file path). prev is the ledger from the
// previous cycle and may be nil.
type Publisher interface {
	Publish(ctx context.Context, doc string, prev *ledger.Ledger) (string, error)
}
