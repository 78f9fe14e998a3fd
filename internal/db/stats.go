package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
)

// UpsertManagerStats updates or inserts the aggregate stats for a manager.
func (db *Database) UpsertManagerStats(
	ctx context.Context,
	manager string,
	lifetimeUnits int64,
	burnedUnits int64,
	lifetimeProfit string,
	contractCount int64,
	burnedContractCount int64,
) error {
	filter := bson.M{"_id": manager}
	update := bson.M{
		"$set": bson.M{
			"lifetime_units":        lifetimeUnits,
			"burned_units":          burnedUnits,
			"lifetime_profit":       lifetimeProfit,
			"contract_count":        contractCount,
			"burned_contract_count": burnedContractCount,
			"last_updated":          time.Now().Unix(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.ManagerStatsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetManagerStats(
	ctx context.Context, manager string,
) (*model.ManagerStatsDocument, error) {
	filter := bson.M{"_id": manager}
	res := db.collection(model.ManagerStatsCollection).FindOne(ctx, filter)

	var statsDoc model.ManagerStatsDocument
	err := res.Decode(&statsDoc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     manager,
				Message: "manager stats not found",
			}
		}
		return nil, err
	}

	return &statsDoc, nil
}
