package db

import (
	"context"
	"time"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) Setup(ctx context.Context) error {
	return d.db.Setup(ctx)
}

func (d *DbWithMetrics) SaveContract(ctx context.Context, contractDoc *model.ContractDocument) error {
	return d.run("SaveContract", func() error {
		return d.db.SaveContract(ctx, contractDoc)
	})
}

func (d *DbWithMetrics) UpdateContractState(
	ctx context.Context,
	contractID string,
	qualifiedPreviousStates []types.ContractStatus,
	newState types.ContractStatus,
	finalBalance, providerPayout, managerPayout string,
) error {
	return d.run("UpdateContractState", func() error {
		return d.db.UpdateContractState(ctx, contractID, qualifiedPreviousStates, newState, finalBalance, providerPayout, managerPayout)
	})
}

func (d *DbWithMetrics) GetContractByID(ctx context.Context, contractID string) (result *model.ContractDocument, err error) {
	//nolint:errcheck
	d.run("GetContractByID", func() error {
		result, err = d.db.GetContractByID(ctx, contractID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetContractsByStates(ctx context.Context, states []types.ContractStatus) (result []*model.ContractDocument, err error) {
	//nolint:errcheck
	d.run("GetContractsByStates", func() error {
		result, err = d.db.GetContractsByStates(ctx, states)
		return err
	})
	return
}

func (d *DbWithMetrics) GetContractsByManager(ctx context.Context, manager string) (result []*model.ContractDocument, err error) {
	//nolint:errcheck
	d.run("GetContractsByManager", func() error {
		result, err = d.db.GetContractsByManager(ctx, manager)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveEffortRecord(ctx context.Context, record *model.EffortRecordDocument) error {
	return d.run("SaveEffortRecord", func() error {
		return d.db.SaveEffortRecord(ctx, record)
	})
}

func (d *DbWithMetrics) GetEffortRecordsByContract(ctx context.Context, contractID string) (result []*model.EffortRecordDocument, err error) {
	//nolint:errcheck
	d.run("GetEffortRecordsByContract", func() error {
		result, err = d.db.GetEffortRecordsByContract(ctx, contractID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertManagerStats(
	ctx context.Context,
	manager string,
	lifetimeUnits int64,
	burnedUnits int64,
	lifetimeProfit string,
	contractCount int64,
	burnedContractCount int64,
) error {
	return d.run("UpsertManagerStats", func() error {
		return d.db.UpsertManagerStats(ctx, manager, lifetimeUnits, burnedUnits, lifetimeProfit, contractCount, burnedContractCount)
	})
}

func (d *DbWithMetrics) GetManagerStats(ctx context.Context, manager string) (result *model.ManagerStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetManagerStats", func() error {
		result, err = d.db.GetManagerStats(ctx, manager)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveSolvencySnapshot(ctx context.Context, snapshot *model.SolvencySnapshotDocument) error {
	return d.run("SaveSolvencySnapshot", func() error {
		return d.db.SaveSolvencySnapshot(ctx, snapshot)
	})
}

func (d *DbWithMetrics) GetLatestSolvencySnapshot(ctx context.Context) (result *model.SolvencySnapshotDocument, err error) {
	//nolint:errcheck
	d.run("GetLatestSolvencySnapshot", func() error {
		result, err = d.db.GetLatestSolvencySnapshot(ctx)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
