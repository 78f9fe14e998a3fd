package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
)

func (db *Database) SaveEffortRecord(
	ctx context.Context, record *model.EffortRecordDocument,
) error {
	_, err := db.collection(model.EffortRecordCollection).
		InsertOne(ctx, record)
	return err
}

func (db *Database) GetEffortRecordsByContract(
	ctx context.Context, contractID string,
) ([]*model.EffortRecordDocument, error) {
	filter := bson.M{"contract_id": contractID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := db.collection(model.EffortRecordCollection).
		Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.EffortRecordDocument
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
