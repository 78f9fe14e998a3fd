package model

import (
	"time"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const EffortRecordCollection = "effort_records"

type EffortRecordDocument struct {
	ContractID string           `bson:"contract_id"`
	Manager    string           `bson:"manager"`
	ActionKind types.ActionKind `bson:"action_kind"`
	Weight     int64            `bson:"weight"`
	ProofRef   string           `bson:"proof_ref,omitempty"`
	Timestamp  time.Time        `bson:"timestamp"`
}
