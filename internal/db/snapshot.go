package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
)

func (db *Database) SaveSolvencySnapshot(
	ctx context.Context, snapshot *model.SolvencySnapshotDocument,
) error {
	_, err := db.collection(model.SolvencySnapshotCollection).
		InsertOne(ctx, snapshot)
	return err
}

func (db *Database) GetLatestSolvencySnapshot(
	ctx context.Context,
) (*model.SolvencySnapshotDocument, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "taken_at", Value: -1}})
	res := db.collection(model.SolvencySnapshotCollection).
		FindOne(ctx, bson.M{}, opts)

	var snapshot model.SolvencySnapshotDocument
	err := res.Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.SolvencySnapshotCollection,
				Message: "no solvency snapshot recorded yet",
			}
		}
		return nil, err
	}

	return &snapshot, nil
}
