package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo server error codes used by the taxonomy.
const (
	codeDuplicateKey       = 11000
	codeDocumentValidation = 121
)

// Record is the serialized form of a failure. StatusCode is carried
// alongside the body and never written into it.
type Record struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func recordOf(e *Error) Record {
	return Record{Name: e.Kind.Name(), Message: e.Message, StatusCode: e.Kind.StatusCode()}
}

// Translate maps any error onto the taxonomy.
func Translate(err error) Record {
	return recordOf(Classify(err))
}

// Classify returns err as a typed failure, converting driver, decoding and
// validation errors along the way. Unknown errors become Internal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		if ae.Message == "" {
			return &Error{Kind: ae.Kind, Message: ae.Kind.Name(), Err: ae.Err}
		}
		return ae
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return Wrap(KindBadRequest, validationMessage(verrs), err)
	}
	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return Wrap(KindBadRequest, "Malformed request body!", err)
	}

	if mongo.IsDuplicateKeyError(err) {
		fields := duplicateFields(err)
		msg := "Duplicate value entered!"
		if len(fields) > 0 {
			msg = fmt.Sprintf("Duplicate value entered for %s field!", strings.Join(fields, ","))
		}
		return Wrap(KindBadRequest, msg, err)
	}
	if msg, ok := documentValidationMessage(err); ok {
		return Wrap(KindBadRequest, msg, err)
	}

	var castErr *CastError
	if errors.As(err, &castErr) {
		return Wrap(KindNotFound, fmt.Sprintf("No item found with %v", castErr.Value), err)
	}

	return Internal(err)
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed on '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return "Validation failed: " + strings.Join(parts, ", ")
}

var dupKeyPattern = regexp.MustCompile(`dup key: \{ ?"?([\w.]+)"?:`)

// duplicateFields extracts the offending field names of a duplicate key
// error, preferring the server supplied keyValue document.
func duplicateFields(err error) []string {
	seen := map[string]struct{}{}
	add := func(raw bson.Raw, msg string) {
		if raw != nil {
			if kv, ok := raw.Lookup("keyValue").DocumentOK(); ok {
				if elems, err := kv.Elements(); err == nil {
					for _, el := range elems {
						seen[el.Key()] = struct{}{}
					}
					return
				}
			}
		}
		if m := dupKeyPattern.FindStringSubmatch(msg); len(m) == 2 {
			seen[m[1]] = struct{}{}
		}
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codeDuplicateKey {
				add(e.Raw, e.Message)
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == codeDuplicateKey {
				add(e.Raw, e.Message)
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == codeDuplicateKey {
		add(ce.Raw, ce.Message)
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func documentValidationMessage(err error) (string, bool) {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codeDocumentValidation {
				return e.Message, true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == codeDocumentValidation {
		return ce.Message, true
	}
	return "", false
}
