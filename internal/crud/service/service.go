// Package service validates identifiers and turns empty lookups into
// NotFound failures before handing results to the HTTP layer.
package service

import (
	"context"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/repository"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/internal/objectid"
)

// Service is the business layer for one resource.
type Service[T crud.Entity] struct {
	repo *repository.Repository[T]
}

// New returns a service over repo.
func New[T crud.Entity](repo *repository.Repository[T]) *Service[T] {
	return &Service[T]{repo: repo}
}

// NewWithGateway wires a repository over gw.
func NewWithGateway[T crud.Entity](gw store.Gateway[T]) *Service[T] {
	return New(repository.New(gw))
}

// GetDocumentByID returns the document with the given identifier.
func (s *Service[T]) GetDocumentByID(ctx context.Context, id string) (T, error) {
	return s.GetDocument(ctx, crud.ByID(id))
}

// GetDocument returns the first document addressed by sel. An empty
// result is a NotFound failure.
func (s *Service[T]) GetDocument(ctx context.Context, sel crud.Selector) (T, error) {
	var zero T
	if err := validate(sel); err != nil {
		return zero, err
	}
	doc, err := s.repo.GetDocument(ctx, sel)
	if err != nil {
		return zero, err
	}
	if crud.IsEmpty(doc) {
		if sel.IsID() {
			return zero, apperrors.NotFound("No document found with ID " + sel.ID())
		}
		return zero, apperrors.NotFound("No document found")
	}
	return doc, nil
}

// GetDocuments returns all documents matching filter.
func (s *Service[T]) GetDocuments(ctx context.Context, filter crud.Filter, opts store.FindOptions) ([]T, error) {
	if err := validate(crud.ByFilter(filter)); err != nil {
		return nil, err
	}
	return s.repo.GetDocuments(ctx, filter, opts)
}

func (s *Service[T]) CreateDocument(ctx context.Context, doc T) (T, error) {
	var zero T
	if crud.IsNil(doc) {
		return zero, apperrors.BadRequest("Unable to create new document")
	}
	created, err := s.repo.CreateDocument(ctx, doc)
	if err != nil {
		return zero, err
	}
	if crud.IsEmpty(created) {
		return zero, apperrors.BadRequest("Unable to create new document")
	}
	return created, nil
}

func (s *Service[T]) CreateDocuments(ctx context.Context, docs []T) ([]T, error) {
	if len(docs) == 0 {
		return nil, apperrors.BadRequest("Unable to create new document")
	}
	for _, d := range docs {
		if crud.IsNil(d) {
			return nil, apperrors.BadRequest("Unable to create new document")
		}
	}
	return s.repo.CreateDocuments(ctx, docs)
}

// UpdateDocument reports true when a document was modified; see
// repository.Repository.UpdateDocument for the failure cases.
func (s *Service[T]) UpdateDocument(ctx context.Context, sel crud.Selector, u crud.Update) (bool, error) {
	if err := validate(sel); err != nil {
		return false, err
	}
	return s.repo.UpdateDocument(ctx, sel, u)
}

func (s *Service[T]) UpdateDocumentByID(ctx context.Context, id string, u crud.Update) (bool, error) {
	return s.UpdateDocument(ctx, crud.ByID(id), u)
}

// FindAndUpdate returns the post-update document.
func (s *Service[T]) FindAndUpdate(ctx context.Context, sel crud.Selector, u crud.Update) (T, error) {
	var zero T
	if err := validate(sel); err != nil {
		return zero, err
	}
	doc, err := s.repo.FindAndUpdateDocument(ctx, sel, u)
	if err != nil {
		return zero, err
	}
	if crud.IsEmpty(doc) {
		return zero, apperrors.NotFound("No document found to update!")
	}
	return doc, nil
}

func (s *Service[T]) FindAndUpdateByID(ctx context.Context, id string, u crud.Update) (T, error) {
	return s.FindAndUpdate(ctx, crud.ByID(id), u)
}

// DeleteDocument reports whether a document was removed. Deleting a
// missing document is not an error.
func (s *Service[T]) DeleteDocument(ctx context.Context, sel crud.Selector) (bool, error) {
	if err := validate(sel); err != nil {
		return false, err
	}
	return s.repo.DeleteDocument(ctx, sel)
}

func (s *Service[T]) DeleteDocumentByID(ctx context.Context, id string) (bool, error) {
	return s.DeleteDocument(ctx, crud.ByID(id))
}

func validate(sel crud.Selector) error {
	if sel.IsID() {
		return objectid.Validate(sel.ID())
	}
	if v, ok := sel.IDValue(); ok {
		return objectid.ValidateValue(v)
	}
	return nil
}
