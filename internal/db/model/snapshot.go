package model

import "time"

const SolvencySnapshotCollection = "solvency_snapshots"

// SolvencySnapshotDocument is a periodic record of the ledger position.
type SolvencySnapshotDocument struct {
	Assets          string    `bson:"assets"`
	Liabilities     string    `bson:"liabilities"`
	Deficit         string    `bson:"deficit"`
	Solvent         bool      `bson:"solvent"`
	EscrowBalance   string    `bson:"escrow_balance"`
	ActiveContracts int       `bson:"active_contracts"`
	TakenAt         time.Time `bson:"taken_at"`
}
