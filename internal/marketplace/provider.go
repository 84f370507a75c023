// Package marketplace finds sold listings for an item across the configured
// marketplace providers.
package marketplace

import (
	"context"
	"errors"

	"github.com/guarzo/thriftflip/internal/model"
)

// ErrNoResults is returned when no provider found listings for any search
// term.
var ErrNoResults = errors.New("marketplace: no listings found")

// Provider is a source of sold listings.
type Provider interface {
	Available() bool
	Name() string
	Search(ctx context.Context, term string) (*model.ListingSet, error)
}
