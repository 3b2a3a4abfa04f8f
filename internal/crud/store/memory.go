package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
)

const duplicateKeyCode = 11000

// MemoryGateway is an in-process Gateway used for tests and when no
// database is configured. Documents are kept as BSON maps so values
// behave as they would after a round trip through the store.
type MemoryGateway[T any] struct {
	mu     sync.RWMutex
	name   string
	docs   []bson.M
	unique []string
	now    func() time.Time
}

// NewMemoryGateway returns an empty collection enforcing uniqueness of the
// given fields in addition to _id.
func NewMemoryGateway[T any](name string, unique ...string) *MemoryGateway[T] {
	return &MemoryGateway[T]{
		name:   name,
		unique: append([]string{crud.IDField}, unique...),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryGateway[T]) FindOne(ctx context.Context, filter crud.Filter) (T, error) {
	var zero T
	f, err := m.prepareFilter(filter)
	if err != nil {
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.docs {
		ok, err := matches(d, f)
		if err != nil {
			return zero, err
		}
		if ok {
			return fromDoc[T](d)
		}
	}
	return zero, nil
}

func (m *MemoryGateway[T]) FindMany(ctx context.Context, filter crud.Filter, opts FindOptions) ([]T, error) {
	f, err := m.prepareFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	hits := make([]bson.M, 0)
	for _, d := range m.docs {
		ok, err := matches(d, f)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			hits = append(hits, d)
		}
	}
	m.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			for _, key := range opts.Sort {
				c, _ := compareValues(hits[i][key.Key], hits[j][key.Key])
				if c == 0 {
					continue
				}
				if direction(key.Value) < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(hits)) {
			hits = hits[:0]
		} else {
			hits = hits[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(hits)) {
		hits = hits[:opts.Limit]
	}

	out := make([]T, 0, len(hits))
	for _, d := range hits {
		doc, err := fromDoc[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *MemoryGateway[T]) InsertOne(ctx context.Context, doc T) (T, error) {
	var zero T
	d, err := toDoc(doc)
	if err != nil {
		return zero, err
	}
	if _, ok := d[crud.IDField]; !ok {
		d[crud.IDField] = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(d, nil, -1); err != nil {
		return zero, err
	}
	m.docs = append(m.docs, d)
	return doc, nil
}

// InsertMany validates the whole batch before storing any of it.
func (m *MemoryGateway[T]) InsertMany(ctx context.Context, docs []T) ([]T, error) {
	batch := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		d, err := toDoc(doc)
		if err != nil {
			return nil, err
		}
		if _, ok := d[crud.IDField]; !ok {
			d[crud.IDField] = primitive.NewObjectID()
		}
		batch = append(batch, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range batch {
		if err := m.checkUnique(d, batch[:i], -1); err != nil {
			return nil, err
		}
	}
	m.docs = append(m.docs, batch...)
	return docs, nil
}

func (m *MemoryGateway[T]) UpdateOne(ctx context.Context, filter crud.Filter, update crud.Update) (UpdateResult, error) {
	f, err := m.prepareFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.firstMatch(f)
	if err != nil || idx < 0 {
		return UpdateResult{}, err
	}
	u, err := normalizeDoc(NormalizeUpdate(update))
	if err != nil {
		return UpdateResult{}, err
	}
	next, changed, err := applyUpdate(m.docs[idx], u)
	if err != nil {
		return UpdateResult{}, err
	}
	if !changed {
		return UpdateResult{MatchedCount: 1}, nil
	}
	if err := m.checkUnique(next, nil, idx); err != nil {
		return UpdateResult{}, err
	}
	next[crud.UpdatedAtField] = primitive.NewDateTimeFromTime(m.now())
	m.docs[idx] = next
	return UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *MemoryGateway[T]) FindOneAndUpdate(ctx context.Context, filter crud.Filter, update crud.Update) (T, error) {
	var zero T
	f, err := m.prepareFilter(filter)
	if err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.firstMatch(f)
	if err != nil || idx < 0 {
		return zero, err
	}
	u, err := normalizeDoc(withUpdatedAt(NormalizeUpdate(update), m.now()))
	if err != nil {
		return zero, err
	}
	next, _, err := applyUpdate(m.docs[idx], u)
	if err != nil {
		return zero, err
	}
	if err := m.checkUnique(next, nil, idx); err != nil {
		return zero, err
	}
	m.docs[idx] = next
	return fromDoc[T](next)
}

func (m *MemoryGateway[T]) DeleteOne(ctx context.Context, filter crud.Filter) (DeleteResult, error) {
	f, err := m.prepareFilter(filter)
	if err != nil {
		return DeleteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.firstMatch(f)
	if err != nil || idx < 0 {
		return DeleteResult{}, err
	}
	m.docs = append(m.docs[:idx], m.docs[idx+1:]...)
	return DeleteResult{DeletedCount: 1}, nil
}

// Len returns the number of stored documents.
func (m *MemoryGateway[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryGateway[T]) prepareFilter(filter crud.Filter) (bson.M, error) {
	f, err := CastFilter(filter)
	if err != nil {
		return nil, err
	}
	return normalizeDoc(f)
}

// firstMatch must be called with the lock held.
func (m *MemoryGateway[T]) firstMatch(f bson.M) (int, error) {
	for i, d := range m.docs {
		ok, err := matches(d, f)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// checkUnique must be called with the lock held. skip is the index of the
// stored document being replaced, or -1.
func (m *MemoryGateway[T]) checkUnique(d bson.M, pending []bson.M, skip int) error {
	for _, field := range m.unique {
		v, ok := d[field]
		if !ok {
			continue
		}
		clash := false
		for i, other := range m.docs {
			if i != skip && valuesEqual(other[field], v) {
				clash = true
				break
			}
		}
		for _, other := range pending {
			if valuesEqual(other[field], v) {
				clash = true
				break
			}
		}
		if clash {
			return m.duplicateKeyError(field, v)
		}
	}
	return nil
}

func (m *MemoryGateway[T]) duplicateKeyError(field string, v any) error {
	msg := fmt.Sprintf("E11000 duplicate key error collection: %s index: %s_1 dup key: { %s: %v }", m.name, field, field, v)
	raw, _ := bson.Marshal(bson.M{"code": duplicateKeyCode, "errmsg": msg, "keyValue": bson.M{field: v}})
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: duplicateKeyCode, Message: msg, Raw: raw}}}
}

func toDoc(v any) (bson.M, error) {
	if rv := reflect.ValueOf(v); !rv.IsValid() || ((rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map) && rv.IsNil()) {
		return nil, fmt.Errorf("cannot store empty document")
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var d bson.M
	if err := bson.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

func fromDoc[T any](d bson.M) (T, error) {
	var out T
	b, err := bson.Marshal(d)
	if err != nil {
		return out, fmt.Errorf("encode document: %w", err)
	}
	if err := bson.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// normalizeDoc round-trips m through BSON so its values have the same
// Go types as stored documents.
func normalizeDoc(m bson.M) (bson.M, error) {
	if len(m) == 0 {
		return bson.M{}, nil
	}
	return toDoc(m)
}

func direction(v any) int {
	switch d := v.(type) {
	case int:
		return d
	case int32:
		return int(d)
	case int64:
		return int(d)
	case float64:
		return int(d)
	}
	return 1
}
