package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"escuela/internal/registration/models"
	"escuela/pkg/platform/sentinel"
)

// MongoStore persists registrations as documents. A unique index on
// "cedula" makes InsertOne the uniqueness arbiter.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects, pings, and ensures indexes. The returned store owns the
// client; call Close on shutdown.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := NewMongoWithClient(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewMongoWithClient builds a store on an existing client.
func NewMongoWithClient(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(CollectionName),
	}
}

// EnsureIndexes creates the unique ID-number index and the listing indexes.
// Creating an index that already exists is a no-op.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cedula", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_cedula"),
		},
		{
			Keys:    bson.D{{Key: "departamento", Value: 1}, {Key: "fechaRegistro", Value: -1}},
			Options: options.Index().SetName("departamento_fecha"),
		},
		{
			Keys:    bson.D{{Key: "fechaRegistro", Value: -1}},
			Options: options.Index().SetName("fecha"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure registration indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, reg *models.Registration) error {
	if _, err := s.coll.InsertOne(ctx, reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert registration %s: %w", reg.IDNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *MongoStore) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "cedula", Value: idNumber}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check id number: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) List(ctx context.Context, department string) ([]*models.Registration, error) {
	filter := bson.D{}
	if department != "" {
		filter = bson.D{{Key: "departamento", Value: department}}
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "fechaRegistro", Value: -1}}))
}

func (s *MongoStore) CountByDepartment(ctx context.Context) ([]models.GroupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$departamento"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	return s.aggregate(ctx, pipeline)
}

func (s *MongoStore) CountByProfession(ctx context.Context, limit int) ([]models.GroupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$profesion"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return s.aggregate(ctx, pipeline)
}

func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) Latest(ctx context.Context, limit int) ([]*models.Registration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "fechaRegistro", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.D{}, opts)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*models.Registration, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	out := []*models.Registration{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return out, nil
}

func (s *MongoStore) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]models.GroupCount, error) {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate registrations: %w", err)
	}
	out := []models.GroupCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode aggregation: %w", err)
	}
	return out, nil
}
