// Package crud holds the document model shared by the generic store,
// repository, service and handler layers.
package crud

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

// Field names maintained on every stored document.
const (
	IDField        = "_id"
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// Filter selects zero or more documents.
type Filter = bson.M

// Update is a set of field mutations, either plain field values or
// update operators such as $set and $inc.
type Update = bson.M

// Entity is implemented by every document type stored through the generic layers.
type Entity interface {
	// Identifier returns the document id as a hex string, or "" when unset.
	Identifier() string
	// Prepare assigns an id when absent and stamps both timestamps.
	Prepare(now time.Time) error
}

// IsNil reports whether doc carries no value at all: a nil pointer or map,
// or a map without keys.
func IsNil[T Entity](doc T) bool {
	v := reflect.ValueOf(doc)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Map:
		return v.IsNil() || v.Len() == 0
	}
	return false
}

// IsEmpty reports whether doc is the empty sentinel: a nil document or
// one without an identifier.
func IsEmpty[T Entity](doc T) bool {
	return IsNil(doc) || doc.Identifier() == ""
}

// Selector addresses documents either by identifier or by filter.
type Selector struct {
	id     string
	filter Filter
	byID   bool
}

// ByID selects the document with the given identifier.
func ByID(id string) Selector { return Selector{id: id, byID: true} }

// ByFilter selects the documents matching f. A nil filter matches everything.
func ByFilter(f Filter) Selector { return Selector{filter: f} }

func (s Selector) IsID() bool { return s.byID }

// ID returns the identifier of a ByID selector.
func (s Selector) ID() string { return s.id }

// Filter returns the selector as a filter; ByID(x) becomes {_id: x}.
func (s Selector) Filter() Filter {
	if s.byID {
		return Filter{IDField: s.id}
	}
	if s.filter == nil {
		return Filter{}
	}
	return s.filter
}

// IDValue returns the identifier held by the selector, if any. For filters
// this is the raw value stored under _id.
func (s Selector) IDValue() (any, bool) {
	if s.byID {
		return s.id, true
	}
	v, ok := s.filter[IDField]
	return v, ok
}

func (s Selector) String() string {
	if s.byID {
		return "id=" + s.id
	}
	return fmt.Sprintf("filter=%v", s.filter)
}

// Base carries the fields every typed document shares. Embed it by value
// and use the embedding type's pointer as the Entity.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *Base) Identifier() string {
	if b.ID.IsZero() {
		return ""
	}
	return b.ID.Hex()
}

func (b *Base) Prepare(now time.Time) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// Record is a schema-less document.
type Record map[string]any

func (r Record) Identifier() string {
	switch v := r[IDField].(type) {
	case primitive.ObjectID:
		if v.IsZero() {
			return ""
		}
		return v.Hex()
	case string:
		return v
	}
	return ""
}

// Prepare converts a client supplied hex _id to an ObjectID, or generates one.
func (r Record) Prepare(now time.Time) error {
	switch v := r[IDField].(type) {
	case nil:
		r[IDField] = primitive.NewObjectID()
	case primitive.ObjectID:
		if v.IsZero() {
			r[IDField] = primitive.NewObjectID()
		}
	case string:
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return &apperrors.CastError{Field: IDField, Value: v}
		}
		r[IDField] = oid
	default:
		return &apperrors.CastError{Field: IDField, Value: v}
	}
	r[CreatedAtField] = now
	r[UpdatedAtField] = now
	return nil
}
