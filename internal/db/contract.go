package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

func (db *Database) SaveContract(
	ctx context.Context, contractDoc *model.ContractDocument,
) error {
	_, err := db.collection(model.ContractCollection).
		InsertOne(ctx, contractDoc)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     contractDoc.ID,
						Message: "contract already exists",
					}
				}
			}
		}
		return err
	}
	return nil
}

// UpdateContractState flips the contract into newState, recording the
// settlement figures. The update only matches documents whose current state
// is one of qualifiedPreviousStates, so a terminal contract stays terminal.
func (db *Database) UpdateContractState(
	ctx context.Context,
	contractID string,
	qualifiedPreviousStates []types.ContractStatus,
	newState types.ContractStatus,
	finalBalance, providerPayout, managerPayout string,
) error {
	qualifiedStateStrs := make([]string, len(qualifiedPreviousStates))
	for i, state := range qualifiedPreviousStates {
		qualifiedStateStrs[i] = state.String()
	}

	filter := bson.M{
		"_id":   contractID,
		"state": bson.M{"$in": qualifiedStateStrs},
	}

	update := bson.M{
		"$set": bson.M{
			"state":           newState.String(),
			"final_balance":   finalBalance,
			"provider_payout": providerPayout,
			"manager_payout":  managerPayout,
			"settled_at":      time.Now(),
		},
	}

	res := db.collection(model.ContractCollection).
		FindOneAndUpdate(ctx, filter, update)

	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     contractID,
				Message: "contract not found or current state is not qualified states",
			}
		}
		return res.Err()
	}

	return nil
}

func (db *Database) GetContractByID(
	ctx context.Context, contractID string,
) (*model.ContractDocument, error) {
	filter := bson.M{"_id": contractID}
	res := db.collection(model.ContractCollection).
		FindOne(ctx, filter)

	var contractDoc model.ContractDocument
	err := res.Decode(&contractDoc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     contractID,
				Message: "contract not found",
			}
		}
		return nil, err
	}

	return &contractDoc, nil
}

func (db *Database) GetContractsByStates(
	ctx context.Context, states []types.ContractStatus,
) ([]*model.ContractDocument, error) {
	stateStrs := make([]string, len(states))
	for i, state := range states {
		stateStrs[i] = state.String()
	}

	filter := bson.M{"state": bson.M{"$in": stateStrs}}
	cursor, err := db.collection(model.ContractCollection).
		Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contracts []*model.ContractDocument
	if err := cursor.All(ctx, &contracts); err != nil {
		return nil, err
	}

	return contracts, nil
}

func (db *Database) GetContractsByManager(
	ctx context.Context, manager string,
) ([]*model.ContractDocument, error) {
	filter := bson.M{"manager": manager}
	cursor, err := db.collection(model.ContractCollection).
		Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contracts []*model.ContractDocument
	if err := cursor.All(ctx, &contracts); err != nil {
		return nil, err
	}

	return contracts, nil
}
