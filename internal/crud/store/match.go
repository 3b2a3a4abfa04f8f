package store

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates the subset of the query language MemoryGateway
// supports: top-level field equality, $eq, $ne, $in, $nin, $exists,
// $gt, $gte, $lt, $lte, and the $and/$or/$nor combinators.
func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$and", "$or", "$nor":
			items, ok := toList(cond)
			if !ok {
				return false, fmt.Errorf("%s expects an array", key)
			}
			hit, err := combine(doc, key, items)
			if err != nil || !hit {
				return false, err
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return false, fmt.Errorf("unsupported query operator %s", key)
		}
		val, present := doc[key]
		ok, err := matchField(val, present, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func combine(doc bson.M, op string, items []any) (bool, error) {
	for _, item := range items {
		sub := asMap(item)
		if sub == nil {
			return false, fmt.Errorf("%s expects documents", op)
		}
		hit, err := matches(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !hit:
			return false, nil
		case op == "$or" && hit:
			return true, nil
		case op == "$nor" && hit:
			return false, nil
		}
	}
	return op != "$or", nil
}

func matchField(val any, present bool, cond any) (bool, error) {
	ops := asMap(cond)
	if ops == nil || !isOperatorDoc(ops) {
		return present && equalOrContains(val, cond), nil
	}
	for op, arg := range ops {
		var ok bool
		switch op {
		case "$eq":
			ok = present && equalOrContains(val, arg)
		case "$ne":
			ok = !present || !equalOrContains(val, arg)
		case "$in", "$nin":
			list, isList := toList(arg)
			if !isList {
				return false, fmt.Errorf("%s expects an array", op)
			}
			found := false
			for _, item := range list {
				if present && equalOrContains(val, item) {
					found = true
					break
				}
			}
			ok = found == (op == "$in")
		case "$exists":
			want, _ := arg.(bool)
			ok = present == want
		case "$gt", "$gte", "$lt", "$lte":
			if !present {
				return false, nil
			}
			c, comparable := compareValues(val, arg)
			if !comparable {
				return false, nil
			}
			ok = (op == "$gt" && c > 0) || (op == "$gte" && c >= 0) ||
				(op == "$lt" && c < 0) || (op == "$lte" && c <= 0)
		default:
			return false, fmt.Errorf("unsupported query operator %s", op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func isOperatorDoc(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// equalOrContains mirrors the store's array semantics: a scalar condition
// matches an array field when any element equals it.
func equalOrContains(val, cond any) bool {
	if valuesEqual(val, cond) {
		return true
	}
	if items, ok := toList(val); ok {
		for _, item := range items {
			if valuesEqual(item, cond) {
				return true
			}
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings, dates and ObjectIDs. The second
// result is false when the values are not of comparable kinds.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	if oa, ok := a.(primitive.ObjectID); ok {
		if ob, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(oa.Hex(), ob.Hex()), true
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
	}
	if a == nil && b == nil {
		return 0, true
	}
	if a == nil {
		return -1, false
	}
	if b == nil {
		return 1, false
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

// applyUpdate returns a modified copy of doc and whether anything changed.
// Supported operators: $set, $unset, $inc.
func applyUpdate(doc bson.M, update bson.M) (bson.M, bool, error) {
	next, err := toDoc(doc)
	if err != nil {
		return nil, false, err
	}
	for op, arg := range update {
		fields := asMap(arg)
		if fields == nil {
			return nil, false, fmt.Errorf("%s expects a document", op)
		}
		switch op {
		case "$set":
			for k, v := range fields {
				next[k] = v
			}
		case "$unset":
			for k := range fields {
				delete(next, k)
			}
		case "$inc":
			for k, v := range fields {
				delta, ok := toFloat(v)
				if !ok {
					return nil, false, fmt.Errorf("cannot increment with non-numeric argument %v", v)
				}
				cur, present := next[k]
				if !present {
					next[k] = v
					continue
				}
				base, ok := toFloat(cur)
				if !ok {
					return nil, false, fmt.Errorf("cannot apply $inc to non-numeric field %s", k)
				}
				next[k] = incremented(cur, base+delta)
			}
		default:
			return nil, false, fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return next, !reflect.DeepEqual(doc, next), nil
}

// incremented keeps the stored numeric type where the result fits it.
func incremented(cur any, sum float64) any {
	switch cur.(type) {
	case int32:
		if sum == float64(int32(sum)) {
			return int32(sum)
		}
	case int64:
		if sum == float64(int64(sum)) {
			return int64(sum)
		}
	}
	return sum
}
