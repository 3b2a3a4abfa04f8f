package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
)

// MongoGateway implements Gateway on a MongoDB collection.
type MongoGateway[T any] struct {
	col *mongo.Collection
	now func() time.Time
}

// NewMongoGateway wraps col. The caller owns the client.
func NewMongoGateway[T any](col *mongo.Collection) *MongoGateway[T] {
	return &MongoGateway[T]{col: col, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates a unique ascending index for each field.
func (g *MongoGateway[T]) EnsureIndexes(ctx context.Context, unique ...string) error {
	if len(unique) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(unique))
	for _, f := range unique {
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}, Options: options.Index().SetUnique(true)})
	}
	if _, err := g.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", g.col.Name(), err)
	}
	return nil
}

func (g *MongoGateway[T]) FindOne(ctx context.Context, filter crud.Filter) (T, error) {
	var doc T
	f, err := CastFilter(filter)
	if err != nil {
		return doc, err
	}
	if err := g.col.FindOne(ctx, f).Decode(&doc); err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, nil
		}
		return zero, fmt.Errorf("find one in %s: %w", g.col.Name(), err)
	}
	return doc, nil
}

func (g *MongoGateway[T]) FindMany(ctx context.Context, filter crud.Filter, fo FindOptions) ([]T, error) {
	f, err := CastFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if fo.Limit > 0 {
		opts.SetLimit(fo.Limit)
	}
	if fo.Skip > 0 {
		opts.SetSkip(fo.Skip)
	}
	if len(fo.Sort) > 0 {
		opts.SetSort(fo.Sort)
	}
	cur, err := g.col.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", g.col.Name(), err)
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", g.col.Name(), err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (g *MongoGateway[T]) InsertOne(ctx context.Context, doc T) (T, error) {
	if _, err := g.col.InsertOne(ctx, doc); err != nil {
		var zero T
		return zero, fmt.Errorf("insert into %s: %w", g.col.Name(), err)
	}
	return doc, nil
}

func (g *MongoGateway[T]) InsertMany(ctx context.Context, docs []T) ([]T, error) {
	if len(docs) == 0 {
		return []T{}, nil
	}
	raw := make([]interface{}, len(docs))
	for i, d := range docs {
		raw[i] = d
	}
	if _, err := g.col.InsertMany(ctx, raw, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, fmt.Errorf("insert many into %s: %w", g.col.Name(), err)
	}
	return docs, nil
}

// UpdateOne pins the first match by _id before updating so that the
// updatedAt bump lands on the same document even when the update changes
// fields used by the filter.
//
// The find, the update and the updatedAt bump are three separate calls and
// are not atomic: a delete racing between them reports no match, and a
// reader may see the new fields with the old updatedAt.
func (g *MongoGateway[T]) UpdateOne(ctx context.Context, filter crud.Filter, update crud.Update) (UpdateResult, error) {
	f, err := CastFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	var hit struct {
		ID interface{} `bson:"_id"`
	}
	err = g.col.FindOne(ctx, f, options.FindOne().SetProjection(bson.M{crud.IDField: 1})).Decode(&hit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return UpdateResult{}, nil
	}
	if err != nil {
		return UpdateResult{}, fmt.Errorf("find update target in %s: %w", g.col.Name(), err)
	}

	pinned := bson.M{crud.IDField: hit.ID}
	res, err := g.col.UpdateOne(ctx, pinned, NormalizeUpdate(update))
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update in %s: %w", g.col.Name(), err)
	}
	if res.ModifiedCount > 0 {
		touch := bson.M{"$set": bson.M{crud.UpdatedAtField: g.now()}}
		if _, err := g.col.UpdateOne(ctx, pinned, touch); err != nil {
			return UpdateResult{}, fmt.Errorf("touch in %s: %w", g.col.Name(), err)
		}
	}
	return UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (g *MongoGateway[T]) FindOneAndUpdate(ctx context.Context, filter crud.Filter, update crud.Update) (T, error) {
	var doc T
	f, err := CastFilter(filter)
	if err != nil {
		return doc, err
	}
	u := withUpdatedAt(NormalizeUpdate(update), g.now())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := g.col.FindOneAndUpdate(ctx, f, u, opts).Decode(&doc); err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, nil
		}
		return zero, fmt.Errorf("find and update in %s: %w", g.col.Name(), err)
	}
	return doc, nil
}

func (g *MongoGateway[T]) DeleteOne(ctx context.Context, filter crud.Filter) (DeleteResult, error) {
	f, err := CastFilter(filter)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := g.col.DeleteOne(ctx, f)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete from %s: %w", g.col.Name(), err)
	}
	return DeleteResult{DeletedCount: res.DeletedCount}, nil
}

// withUpdatedAt adds updatedAt to $set unless the caller set it already.
func withUpdatedAt(u bson.M, now time.Time) bson.M {
	set := bson.M{}
	for k, v := range asMap(u["$set"]) {
		set[k] = v
	}
	if _, ok := set[crud.UpdatedAtField]; !ok {
		set[crud.UpdatedAtField] = now
	}
	u["$set"] = set
	return u
}
