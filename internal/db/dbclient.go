package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/db/model"
)

type Database struct {
	dbName string
	client *mongo.Client
}

func New(ctx context.Context, cfg config.DbConfig) (*Database, error) {
	clientOps := options.Client().ApplyURI(cfg.Address)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, err
	}

	return &Database{
		dbName: cfg.DbName,
		client: client,
	}, nil
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.dbName).Collection(name)
}

func (db *Database) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

// Setup creates the indexes the collections rely on.
func (db *Database) Setup(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		model.ContractCollection: {
			{Keys: bson.D{{Key: "manager", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}}},
		},
		model.EffortRecordCollection: {
			{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "manager", Value: 1}}},
		},
		model.SolvencySnapshotCollection: {
			{Keys: bson.D{{Key: "taken_at", Value: -1}}},
		},
	}

	for collectionName, models := range indexes {
		if _, err := db.collection(collectionName).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}

	return nil
}
