package db

import (
	"context"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	Setup(ctx context.Context) error

	SaveContract(ctx context.Context, contractDoc *model.ContractDocument) error
	UpdateContractState(
		ctx context.Context,
		contractID string,
		qualifiedPreviousStates []types.ContractStatus,
		newState types.ContractStatus,
		finalBalance, providerPayout, managerPayout string,
	) error
	GetContractByID(ctx context.Context, contractID string) (*model.ContractDocument, error)
	GetContractsByStates(ctx context.Context, states []types.ContractStatus) ([]*model.ContractDocument, error)
	GetContractsByManager(ctx context.Context, manager string) ([]*model.ContractDocument, error)

	SaveEffortRecord(ctx context.Context, record *model.EffortRecordDocument) error
	GetEffortRecordsByContract(ctx context.Context, contractID string) ([]*model.EffortRecordDocument, error)

	UpsertManagerStats(
		ctx context.Context,
		manager string,
		lifetimeUnits int64,
		burnedUnits int64,
		lifetimeProfit string,
		contractCount int64,
		burnedContractCount int64,
	) error
	GetManagerStats(ctx context.Context, manager string) (*model.ManagerStatsDocument, error)

	SaveSolvencySnapshot(ctx context.Context, snapshot *model.SolvencySnapshotDocument) error
	GetLatestSolvencySnapshot(ctx context.Context) (*model.SolvencySnapshotDocument, error)
}
