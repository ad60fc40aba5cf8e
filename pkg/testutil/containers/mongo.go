//go:build integration

package containers

import (
	"context"
	"testing"

	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoContainer wraps a testcontainers MongoDB instance.
type MongoContainer struct {
	Container *tcmongodb.MongoDBContainer
	URI       string
	Client    *mongo.Client
}

// NewMongo starts MongoDB and connects a client to it. Both are released
// when the test finishes.
func NewMongo(t *testing.T) *MongoContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get mongodb connection string: %v", err)
	}

	client, err := Connect(ctx, uri)
	if err != nil {
		t.Fatalf("failed to connect to mongodb: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return &MongoContainer{Container: container, URI: uri, Client: client}
}

// Connect opens and pings an extra client against uri. The caller owns it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// DropCollections removes the given collections between tests.
func (m *MongoContainer) DropCollections(ctx context.Context, database string, collections ...string) error {
	for _, name := range collections {
		if err := m.Client.Database(database).Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
