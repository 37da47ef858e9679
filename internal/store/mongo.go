// server/internal/store/mongo.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sistema-bup-api-server/internal/errs"
)

// ParentField links a sub-collection document to its parent document path.
const ParentField = "_parent"

// MongoStore maps collection paths onto MongoDB collections. A top-level path
// is a collection of the same name; a sub-collection path is stored in the
// collection named after its last segment, with ParentField holding the
// parent document path.
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

func (s *MongoStore) collection(ref collectionRef) (*mongo.Collection, bson.M) {
	filter := bson.M{}
	if ref.parent != "" {
		filter[ParentField] = ref.parent
	}
	return s.DB.Collection(ref.name), filter
}

func (s *MongoStore) Query(ctx context.Context, path string) ([]Document, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	coll, filter := s.collection(ref)

	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errs.StoreUnavailable("query "+ref.path, err)
	}
	return readAll(ctx, cursor, "query "+ref.path)
}

func (s *MongoStore) Get(ctx context.Context, path, id string) (*Document, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	coll, _ := s.collection(ref)

	var raw bson.M
	err = coll.FindOne(ctx, matchFilter(ref, id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.StoreUnavailable("get "+ref.path, err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

// QueryOrdered orders on field converted to a date where possible, so string
// and native timestamps written by different pipeline versions sort together.
// The sort runs on a computed key, so the {_parent, field} index narrows the
// $match only.
func (s *MongoStore) QueryOrdered(ctx context.Context, path, field string, descending bool, limit int) ([]Document, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	coll, filter := s.collection(ref)

	pipeline := orderedPipeline(filter, field, descending, limit)
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.StoreUnavailable("query ordered "+ref.path, err)
	}
	return readAll(ctx, cursor, "query ordered "+ref.path)
}

func orderedPipeline(filter bson.M, field string, descending bool, limit int) mongo.Pipeline {
	direction := 1
	if descending {
		direction = -1
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{"_order": bson.M{"$convert": bson.M{
			"input":   "$" + field,
			"to":      "date",
			"onError": "$" + field,
			"onNull":  nil,
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_order", Value: direction}, {Key: "_id", Value: direction}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return append(pipeline, bson.D{{Key: "$project", Value: bson.M{"_order": 0}}})
}

func (s *MongoStore) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	ref, err := parsePath(path)
	if err != nil {
		return "", err
	}
	coll, _ := s.collection(ref)

	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}
	if ref.parent != "" {
		doc[ParentField] = ref.parent
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", errs.StoreUnavailable("add "+ref.path, err)
	}
	return id, nil
}

// Set writes the document. With merge, nested objects are merged field by
// field through dotted $set keys; without it the document is replaced.
func (s *MongoStore) Set(ctx context.Context, path, id string, data map[string]any, merge bool) error {
	ref, err := parsePath(path)
	if err != nil {
		return err
	}
	coll, _ := s.collection(ref)
	key, err := storedID(ctx, coll, ref, id)
	if err != nil {
		return errs.StoreUnavailable("set "+ref.path, err)
	}
	filter := upsertFilter(ref, key)

	if merge {
		set := bson.M{}
		flatten("", data, set)
		if ref.parent != "" {
			set[ParentField] = ref.parent
		}
		if len(set) == 0 {
			return nil
		}
		_, err = coll.UpdateOne(ctx, filter, bson.M{"$set": set}, options.Update().SetUpsert(true))
	} else {
		doc := bson.M{}
		for k, v := range data {
			doc[k] = v
		}
		if ref.parent != "" {
			doc[ParentField] = ref.parent
		}
		_, err = coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return errs.StoreUnavailable("set "+ref.path, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, path, id string) error {
	ref, err := parsePath(path)
	if err != nil {
		return err
	}
	coll, _ := s.collection(ref)

	if _, err := coll.DeleteOne(ctx, matchFilter(ref, id)); err != nil {
		return errs.StoreUnavailable("delete "+ref.path, err)
	}
	return nil
}

func readAll(ctx context.Context, cursor *mongo.Cursor, op string) ([]Document, error) {
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, errs.StoreUnavailable(op, err)
	}
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

// matchFilter selects the document id within ref whichever id type it was
// stored with.
func matchFilter(ref collectionRef, id string) bson.M {
	filter := bson.M{"_id": idFilter(id)}
	if ref.parent != "" {
		filter[ParentField] = ref.parent
	}
	return filter
}

// upsertFilter pins the exact stored _id so an upsert never inserts a second
// copy of a document imported with an ObjectID.
func upsertFilter(ref collectionRef, key any) bson.M {
	filter := bson.M{"_id": key}
	if ref.parent != "" {
		filter[ParentField] = ref.parent
	}
	return filter
}

// storedID returns the _id an existing document was written with, or id
// itself when there is none yet.
func storedID(ctx context.Context, coll *mongo.Collection, ref collectionRef, id string) (any, error) {
	var raw bson.M
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := coll.FindOne(ctx, matchFilter(ref, id), opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return id, nil
	}
	if err != nil {
		return nil, err
	}
	return raw["_id"], nil
}

// idFilter matches documents written by this service (string ids) as well as
// documents imported with ObjectIDs.
func idFilter(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$in": bson.A{id, oid}}
	}
	return id
}

func toDocument(raw bson.M) Document {
	doc := Document{Data: make(map[string]any, len(raw))}
	switch id := raw["_id"].(type) {
	case string:
		doc.ID = id
	case primitive.ObjectID:
		doc.ID = id.Hex()
	}
	for k, v := range raw {
		if k == "_id" || k == ParentField {
			continue
		}
		doc.Data[k] = Normalize(v)
	}
	return doc
}

// Normalize converts driver container types into plain maps and slices.
// Native timestamps and Decimal128 are left for the flexible decoder.
func Normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

// flatten turns nested maps into dotted $set keys.
func flatten(prefix string, data map[string]any, out bson.M) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}
