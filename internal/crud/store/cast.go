package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
)

// CastFilter returns a copy of f with identifier values converted to
// ObjectIDs. Values that cannot be converted produce an *apperrors.CastError.
func CastFilter(f crud.Filter) (bson.M, error) {
	out := make(bson.M, len(f))
	for k, v := range f {
		switch k {
		case crud.IDField:
			cv, err := castID(v)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		case "$and", "$or", "$nor":
			list, err := castFilterList(v)
			if err != nil {
				return nil, err
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out, nil
}

func castFilterList(v any) (bson.A, error) {
	items, ok := toList(v)
	if !ok {
		return nil, &apperrors.CastError{Field: "$and", Value: v}
	}
	out := make(bson.A, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			return nil, &apperrors.CastError{Field: "$and", Value: item}
		}
		cf, err := CastFilter(m)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	return out, nil
}

func castID(v any) (any, error) {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(val)
		if err != nil {
			return nil, &apperrors.CastError{Field: crud.IDField, Value: val}
		}
		return oid, nil
	}
	if items, ok := toList(v); ok {
		out := make(bson.A, 0, len(items))
		for _, item := range items {
			c, err := castID(item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}
	if ops := asMap(v); ops != nil {
		out := bson.M{}
		for op, inner := range ops {
			switch op {
			case "$in", "$nin", "$eq", "$ne":
				c, err := castID(inner)
				if err != nil {
					return nil, err
				}
				out[op] = c
			default:
				out[op] = inner
			}
		}
		return out, nil
	}
	return nil, &apperrors.CastError{Field: crud.IDField, Value: v}
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case bson.A:
		return l, true
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []primitive.ObjectID:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []bson.M:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
