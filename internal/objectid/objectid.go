// Package objectid validates document identifiers.
package objectid

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

// Valid reports whether id is a 24 character hex ObjectID.
func Valid(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// Validate returns an InvalidIdentifier failure when id is malformed.
func Validate(id string) error {
	if !Valid(id) {
		return apperrors.InvalidIdentifier("Id is invalid!")
	}
	return nil
}

// ValidateValue validates an identifier held in a filter: a string, an
// ObjectID, or a list of either (as found under $in).
func ValidateValue(v any) error {
	switch val := v.(type) {
	case string:
		return Validate(val)
	case primitive.ObjectID:
		if val.IsZero() {
			return apperrors.InvalidIdentifier("Id is invalid!")
		}
		return nil
	case []string:
		for _, s := range val {
			if err := Validate(s); err != nil {
				return err
			}
		}
		return nil
	case []any:
		return validateList(val)
	case primitive.A:
		return validateList(val)
	case map[string]any:
		return validateOperators(val)
	case primitive.M:
		return validateOperators(val)
	default:
		return apperrors.InvalidIdentifier("Id is invalid!")
	}
}

func validateList(items []any) error {
	for _, item := range items {
		if err := ValidateValue(item); err != nil {
			return err
		}
	}
	return nil
}

func validateOperators(ops map[string]any) error {
	for op, inner := range ops {
		switch op {
		case "$in", "$nin", "$eq", "$ne":
			if err := ValidateValue(inner); err != nil {
				return err
			}
		}
	}
	return nil
}
