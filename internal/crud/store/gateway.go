// Package store performs raw document-store operations against a single
// collection. Results are reported exactly as the store reports them;
// interpreting them is left to the repository layer.
package store

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
)

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult reports how many documents were removed.
type DeleteResult struct {
	DeletedCount int64
}

// FindOptions narrows a FindMany call. Zero values mean "no limit",
// "no skip" and natural order.
type FindOptions struct {
	Limit int64
	Skip  int64
	Sort  bson.D
}

// Gateway is the CRUD surface of one collection.
//
// FindOne and FindOneAndUpdate return the zero value of T (the empty
// sentinel) with a nil error when nothing matches. UpdateOne bumps
// updatedAt only on documents it actually modified; FindOneAndUpdate
// always bumps it and returns the post-update document.
type Gateway[T any] interface {
	FindOne(ctx context.Context, filter crud.Filter) (T, error)
	FindMany(ctx context.Context, filter crud.Filter, opts FindOptions) ([]T, error)
	InsertOne(ctx context.Context, doc T) (T, error)
	InsertMany(ctx context.Context, docs []T) ([]T, error)
	UpdateOne(ctx context.Context, filter crud.Filter, update crud.Update) (UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter crud.Filter, update crud.Update) (T, error)
	DeleteOne(ctx context.Context, filter crud.Filter) (DeleteResult, error)
}

// NormalizeUpdate wraps plain field assignments in $set, the way document
// mappers do, so callers may send {"name": "x"} instead of {"$set": {...}}.
// The immutable _id field is dropped from plain assignments.
func NormalizeUpdate(u crud.Update) bson.M {
	out := bson.M{}
	set := bson.M{}
	for k, v := range u {
		if strings.HasPrefix(k, "$") {
			out[k] = v
			continue
		}
		if k == crud.IDField {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return out
	}
	if existing, ok := out["$set"]; ok {
		for k, v := range asMap(existing) {
			set[k] = v
		}
	}
	out["$set"] = set
	return out
}

// ParseSort turns "name,-createdAt" into a sort document.
func ParseSort(spec string) bson.D {
	var d bson.D
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := 1
		switch part[0] {
		case '-':
			dir = -1
			part = part[1:]
		case '+':
			part = part[1:]
		}
		if part != "" {
			d = append(d, bson.E{Key: part, Value: dir})
		}
	}
	return d
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case bson.M:
		return m
	case map[string]any:
		return m
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out
	}
	return nil
}
