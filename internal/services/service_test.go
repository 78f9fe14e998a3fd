package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fundlock-io/settlement-ledger/internal/clients/allowlist"
	"github.com/fundlock-io/settlement-ledger/internal/clients/pricefeed"
	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/queue"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

func TestMain(m *testing.M) {
	// metrics are package globals; register them once on a random port
	metrics.Init(0)
	os.Exit(m.Run())
}

const (
	testAdmin    = types.Identity("admin")
	testTreasury = types.Identity("treasury")
	testProvider = types.Identity("provider")
	testManager  = types.Identity("manager")
)

type fakeDb struct {
	mu        sync.Mutex
	contracts map[string]*model.ContractDocument
	records   []*model.EffortRecordDocument
	stats     map[string]*model.ManagerStatsDocument
	snapshots []*model.SolvencySnapshotDocument
}

func newFakeDb() *fakeDb {
	return &fakeDb{
		contracts: make(map[string]*model.ContractDocument),
		stats:     make(map[string]*model.ManagerStatsDocument),
	}
}

func (f *fakeDb) Ping(ctx context.Context) error  { return nil }
func (f *fakeDb) Setup(ctx context.Context) error { return nil }

func (f *fakeDb) SaveContract(ctx context.Context, doc *model.ContractDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contracts[doc.ID] = doc
	return nil
}

func (f *fakeDb) UpdateContractState(
	ctx context.Context,
	contractID string,
	qualifiedPreviousStates []types.ContractStatus,
	newState types.ContractStatus,
	finalBalance, providerPayout, managerPayout string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.contracts[contractID]
	if !ok {
		return errors.New("not found")
	}
	doc.State = newState
	doc.FinalBalance = finalBalance
	doc.ProviderPayout = providerPayout
	doc.ManagerPayout = managerPayout
	return nil
}

func (f *fakeDb) GetContractByID(ctx context.Context, contractID string) (*model.ContractDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.contracts[contractID]
	if !ok {
		return nil, errors.New("not found")
	}
	return doc, nil
}

func (f *fakeDb) GetContractsByStates(ctx context.Context, states []types.ContractStatus) ([]*model.ContractDocument, error) {
	return nil, nil
}

func (f *fakeDb) GetContractsByManager(ctx context.Context, manager string) ([]*model.ContractDocument, error) {
	return nil, nil
}

func (f *fakeDb) SaveEffortRecord(ctx context.Context, record *model.EffortRecordDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeDb) GetEffortRecordsByContract(ctx context.Context, contractID string) ([]*model.EffortRecordDocument, error) {
	return nil, nil
}

func (f *fakeDb) UpsertManagerStats(
	ctx context.Context,
	manager string,
	lifetimeUnits int64,
	burnedUnits int64,
	lifetimeProfit string,
	contractCount int64,
	burnedContractCount int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[manager] = &model.ManagerStatsDocument{
		ID:                  manager,
		LifetimeUnits:       lifetimeUnits,
		BurnedUnits:         burnedUnits,
		LifetimeProfit:      lifetimeProfit,
		ContractCount:       contractCount,
		BurnedContractCount: burnedContractCount,
	}
	return nil
}

func (f *fakeDb) GetManagerStats(ctx context.Context, manager string) (*model.ManagerStatsDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats, ok := f.stats[manager]
	if !ok {
		return nil, errors.New("not found")
	}
	return stats, nil
}

func (f *fakeDb) SaveSolvencySnapshot(ctx context.Context, snapshot *model.SolvencySnapshotDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeDb) GetLatestSolvencySnapshot(ctx context.Context) (*model.SolvencySnapshotDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil, errors.New("not found")
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

type fakeCustodian struct{}

func (fakeCustodian) TransferIn(ctx context.Context, from types.Identity, amount sdkmath.Int) error {
	return nil
}

func (fakeCustodian) TransferOut(ctx context.Context, to types.Identity, amount sdkmath.Int) error {
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*queue.Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event *queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(eventType types.EventType) []*queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*queue.Event
	for _, ev := range p.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fakePriceFeed struct {
	err error
}

func (f *fakePriceFeed) GetValidatedPrice(ctx context.Context, feed string) (*pricefeed.ValidatedPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pricefeed.ValidatedPrice{
		Price:     sdkmath.NewInt(100_000_000),
		Decimals:  8,
		UpdatedAt: time.Now(),
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Fee: config.FeeConfig{RateBps: 1500},
		PriceFeed: config.PriceFeedConfig{
			Feed: "USD/TOKEN",
		},
		Identity: config.IdentityConfig{
			Admin:    testAdmin.String(),
			Treasury: testTreasury.String(),
		},
	}
}

func newTestService(t *testing.T, priceFeed pricefeed.Client) (*Service, *fakeDb) {
	t.Helper()

	qm, err := queue.NewQueueManager(&config.QueueConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	database := newFakeDb()
	approver := allowlist.NewStaticClient([]string{
		testProvider.String(), testManager.String(),
	})

	svc, err := NewService(testConfig(), database, qm, approver, priceFeed, fakeCustodian{})
	require.NoError(t, err)
	return svc, database
}

func TestOpenAndSettleWithProfit(t *testing.T) {
	ctx := context.Background()
	svc, database := newTestService(t, &fakePriceFeed{})

	contract, err := svc.OpenContract(ctx, testProvider, testManager, sdkmath.NewInt(10_000), 6000, 4000)
	require.NoError(t, err)

	// contract is persisted and active
	doc, err := database.GetContractByID(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, doc.State)
	assert.Equal(t, "10000", doc.Capital)

	// record some effort so settlement has units to convert
	_, err = svc.RecordEffort(ctx, contract.ID, testManager, types.ActionTradeExecution, "trade-1")
	require.NoError(t, err)

	// grow custody so the final balance is actually available
	_, err = svc.AdjustCustodyValue(ctx, svc.Admin(), sdkmath.NewInt(5_000))
	require.NoError(t, err)

	outcome, err := svc.Settle(ctx, testManager, contract.ID, sdkmath.NewInt(15_000))
	require.NoError(t, err)
	require.True(t, outcome.IsProfit())
	assert.Equal(t, sdkmath.NewInt(5_000), outcome.Profit)
	// manager 40% of profit, provider takes the remainder
	assert.Equal(t, sdkmath.NewInt(2_000), outcome.ManagerPayout)
	assert.Equal(t, sdkmath.NewInt(13_000), outcome.ProviderPayout)

	// 15% protocol fee on realized profit sits in escrow
	assert.Equal(t, sdkmath.NewInt(750), svc.EscrowBalance())

	doc, err = database.GetContractByID(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, doc.State)
	assert.Equal(t, "15000", doc.FinalBalance)

	stats, err := database.GetManagerStats(ctx, testManager.String())
	require.NoError(t, err)
	assert.Equal(t, "5000", stats.LifetimeProfit)
	assert.Equal(t, int64(0), stats.BurnedUnits)
}

func TestSettleWithLossBurnsEffort(t *testing.T) {
	ctx := context.Background()
	svc, database := newTestService(t, &fakePriceFeed{})

	contract, err := svc.OpenContract(ctx, testProvider, testManager, sdkmath.NewInt(10_000), 5000, 5000)
	require.NoError(t, err)

	_, err = svc.RecordEffort(ctx, contract.ID, testManager, types.ActionRiskReview, "review-1")
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc.queueManager = publisher

	outcome, err := svc.Settle(ctx, testManager, contract.ID, sdkmath.NewInt(9_000))
	require.NoError(t, err)
	require.False(t, outcome.IsProfit())
	assert.Equal(t, sdkmath.NewInt(1_000), outcome.Loss)
	assert.True(t, outcome.ManagerPayout.IsZero())

	doc, err := database.GetContractByID(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBurned, doc.State)

	stats, ok := svc.ManagerStats(testManager)
	require.True(t, ok)
	assert.True(t, stats.BurnedUnits.Equal(stats.LifetimeUnits))
	assert.Equal(t, uint64(1), stats.BurnedContractCount)

	// the burn publishes its own event alongside the contract ones
	require.Len(t, publisher.byType(types.EventContractBurned), 1)
	require.Len(t, publisher.byType(types.EventLossReported), 1)
	burned := publisher.byType(types.EventEffortBurned)
	require.Len(t, burned, 1)
	assert.Equal(t, contract.ID, burned[0].ContractID)
	assert.Contains(t, string(burned[0].Payload), `"burned_units":"15"`)
}

func TestFeeBlockedWhileInsolvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakePriceFeed{})

	contract, err := svc.OpenContract(ctx, testProvider, testManager, sdkmath.NewInt(10_000), 5000, 5000)
	require.NoError(t, err)

	// a loss settlement leaves the ledger with less history but solvent;
	// mark custody down on a second contract to force a deficit
	second, err := svc.OpenContract(ctx, testProvider, testManager, sdkmath.NewInt(10_000), 5000, 5000)
	require.NoError(t, err)

	_, err = svc.AdjustCustodyValue(ctx, svc.Admin(), sdkmath.NewInt(-5_000))
	require.NoError(t, err)

	fee, blocked, err := svc.PreviewFee(sdkmath.NewInt(1_000))
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.True(t, fee.IsZero())

	_ = contract
	_ = second
}

func TestAdjustCustodyValueRequiresValidatedPrice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakePriceFeed{err: errors.New("stale round")})

	_, err := svc.AdjustCustodyValue(ctx, svc.Admin(), sdkmath.NewInt(1_000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validated price")
}

func TestSolvencySnapshotPersisted(t *testing.T) {
	ctx := context.Background()
	svc, database := newTestService(t, &fakePriceFeed{})

	_, err := svc.OpenContract(ctx, testProvider, testManager, sdkmath.NewInt(10_000), 5000, 5000)
	require.NoError(t, err)

	require.NoError(t, svc.takeSolvencySnapshot(ctx))

	snapshot, err := database.GetLatestSolvencySnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10000", snapshot.Assets)
	assert.Equal(t, "10000", snapshot.Liabilities)
	assert.True(t, snapshot.Solvent)
	assert.Equal(t, 1, snapshot.ActiveContracts)
}
