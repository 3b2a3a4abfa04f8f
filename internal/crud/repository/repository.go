// Package repository turns raw store results into domain outcomes: the
// empty sentinel for lookups, booleans for writes, and typed failures for
// updates that match nothing or change nothing.
package repository

import (
	"context"
	"time"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
)

// Repository is stateless apart from its gateway and may be shared
// between requests.
type Repository[T crud.Entity] struct {
	gw  store.Gateway[T]
	now func() time.Time
}

// New returns a repository over gw.
func New[T crud.Entity](gw store.Gateway[T]) *Repository[T] {
	return &Repository[T]{gw: gw, now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }}
}

// GetDocument returns the first match, or the empty sentinel.
func (r *Repository[T]) GetDocument(ctx context.Context, sel crud.Selector) (T, error) {
	return r.gw.FindOne(ctx, sel.Filter())
}

// GetDocuments returns every match; never nil.
func (r *Repository[T]) GetDocuments(ctx context.Context, filter crud.Filter, opts store.FindOptions) ([]T, error) {
	if filter == nil {
		filter = crud.Filter{}
	}
	docs, err := r.gw.FindMany(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// CreateDocument stamps doc with an identifier and timestamps and stores it.
func (r *Repository[T]) CreateDocument(ctx context.Context, doc T) (T, error) {
	if err := doc.Prepare(r.now()); err != nil {
		var zero T
		return zero, err
	}
	return r.gw.InsertOne(ctx, doc)
}

// CreateDocuments stores docs as one batch.
func (r *Repository[T]) CreateDocuments(ctx context.Context, docs []T) ([]T, error) {
	now := r.now()
	for _, d := range docs {
		if err := d.Prepare(now); err != nil {
			return nil, err
		}
	}
	return r.gw.InsertMany(ctx, docs)
}

// UpdateDocument applies u to the first match. It fails with NotFound when
// nothing matched and with BadRequest when the match was left unchanged.
func (r *Repository[T]) UpdateDocument(ctx context.Context, sel crud.Selector, u crud.Update) (bool, error) {
	if err := checkUpdate(u); err != nil {
		return false, err
	}
	res, err := r.gw.UpdateOne(ctx, sel.Filter(), u)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, apperrors.NotFound("No document found to update!")
	}
	if res.ModifiedCount == 0 {
		return false, apperrors.BadRequest("Unable to update document!")
	}
	return true, nil
}

// FindAndUpdateDocument applies u and returns the updated document, or the
// empty sentinel when nothing matched.
func (r *Repository[T]) FindAndUpdateDocument(ctx context.Context, sel crud.Selector, u crud.Update) (T, error) {
	if err := checkUpdate(u); err != nil {
		var zero T
		return zero, err
	}
	return r.gw.FindOneAndUpdate(ctx, sel.Filter(), u)
}

// checkUpdate rejects updates that carry nothing once the identifier is
// stripped.
func checkUpdate(u crud.Update) error {
	if len(store.NormalizeUpdate(u)) == 0 {
		return apperrors.BadRequest("Operational object has no property!")
	}
	return nil
}

// DeleteDocument reports whether exactly one document was removed.
func (r *Repository[T]) DeleteDocument(ctx context.Context, sel crud.Selector) (bool, error) {
	res, err := r.gw.DeleteOne(ctx, sel.Filter())
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
