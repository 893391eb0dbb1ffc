// Package codelist provides in-memory lookup of IATI codelist entries.
package codelist

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Well-known list names consulted by the parse handlers.
const (
	ListCountry         = "Country"
	ListTransactionType = "TransactionType"
)

// Store is the subset of the codelist repository the resolver needs.
type Store interface {
	GetAll(ctx context.Context) ([]models.CodelistItem, error)
}

// Resolver caches every codelist in memory. Codelists are small and change
// rarely, so one load per process plus explicit Reload is enough.
type Resolver struct {
	store  Store
	logger ectologger.Logger

	mu    sync.RWMutex
	items map[string]map[string]*models.CodelistItem // list -> code -> item
}

// NewResolver creates an empty resolver. Call Reload before first use.
func NewResolver(store Store, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		items:  map[string]map[string]*models.CodelistItem{},
	}
}

// Reload replaces the cache with the current database contents.
func (r *Resolver) Reload(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "codelist.Resolver.Reload")
	defer span.End()

	all, err := r.store.GetAll(ctx)
	if err != nil {
		return err
	}

	items := map[string]map[string]*models.CodelistItem{}
	for i := range all {
		item := all[i]
		if items[item.List] == nil {
			items[item.List] = map[string]*models.CodelistItem{}
		}
		items[item.List][item.Code] = &item
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()

	r.logger.WithContext(ctx).WithFields(map[string]any{"lists": len(items), "items": len(all)}).Info("Loaded codelists")
	return nil
}

// HasList reports whether any entries are loaded for the named list.
// Callers treat an absent list as "validate everything" so a missing
// codelist import never rejects activities.
func (r *Resolver) HasList(list string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[list]) > 0
}

// Find returns the item for (list, code) and whether it exists.
func (r *Resolver) Find(list, code string) (*models.CodelistItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCode, ok := r.items[list]
	if !ok {
		return nil, false
	}
	item, ok := byCode[code]
	return item, ok
}

// Exists reports whether (list, code) is a known codelist entry.
func (r *Resolver) Exists(list, code string) bool {
	_, ok := r.Find(list, code)
	return ok
}
