// Package security resolves the securities a statement refers to against an
// externally owned catalog.
package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// ErrNotFound is returned by a Catalog that has no security for an ISIN.
var ErrNotFound = errors.New("security not found")

// Catalog is the importing application's store of securities. It is read and
// insert only. Insert must be atomic: of two concurrent inserts for one ISIN,
// exactly one reports created.
type Catalog interface {
	FindByISIN(ctx context.Context, isin string) (models.Security, error)
	// Insert stores s unless its ISIN is already present and returns whatever
	// the catalog now holds for that ISIN.
	Insert(ctx context.Context, s models.Security) (stored models.Security, created bool, err error)
}

// Resolver maps ISIN sightings of one extraction run to securities. It is not
// safe for concurrent use; create one per run.
type Resolver struct {
	catalog Catalog
	seen    map[string]models.Security
	log     zerolog.Logger
}

// NewResolver creates a resolver over the catalog. A nil catalog keeps
// securities for the lifetime of the resolver only.
func NewResolver(catalog Catalog, log zerolog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		seen:    make(map[string]models.Security),
		log:     log,
	}
}

// Resolve returns the security for an ISIN and whether this sighting created
// it, in which case the caller announces it with a SecurityItem. Later
// sightings in the same run return the first one's name and currency.
func (r *Resolver) Resolve(ctx context.Context, isin, name, currency string) (models.Security, bool, error) {
	if s, ok := r.seen[isin]; ok {
		return s, false, nil
	}

	sighting := models.Security{ISIN: isin, Name: name, Currency: currency}
	if r.catalog == nil {
		r.seen[isin] = sighting
		return sighting, true, nil
	}

	s, err := r.catalog.FindByISIN(ctx, isin)
	switch {
	case err == nil:
		r.seen[isin] = s
		return s, false, nil
	case !errors.Is(err, ErrNotFound):
		return models.Security{}, false, fmt.Errorf("find security %s: %w", isin, err)
	}

	s, created, err := r.catalog.Insert(ctx, sighting)
	if err != nil {
		return models.Security{}, false, fmt.Errorf("insert security %s: %w", isin, err)
	}
	if created {
		r.log.Debug().Str("isin", isin).Str("name", name).Msg("created security")
	}
	r.seen[isin] = s
	return s, created, nil
}
