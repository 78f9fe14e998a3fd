package services

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/fundlock-io/settlement-ledger/internal/clients/allowlist"
	"github.com/fundlock-io/settlement-ledger/internal/clients/pricefeed"
	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/custody"
	"github.com/fundlock-io/settlement-ledger/internal/db"
	"github.com/fundlock-io/settlement-ledger/internal/effort"
	"github.com/fundlock-io/settlement-ledger/internal/escrow"
	"github.com/fundlock-io/settlement-ledger/internal/fee"
	"github.com/fundlock-io/settlement-ledger/internal/ledger"
	"github.com/fundlock-io/settlement-ledger/internal/queue"
	"github.com/fundlock-io/settlement-ledger/internal/settlement"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// Internal writer identities the components authenticate to the ledger
// with. They are not reachable from the outside.
const (
	engineWriterID = types.Identity("internal:settlement-engine")
	escrowWriterID = types.Identity("internal:escrow-buffer")
)

// eventPublisher is the queue manager's publish surface; the indirection
// lets tests capture emitted events.
type eventPublisher interface {
	PublishEvent(ctx context.Context, event *queue.Event) error
}

type Service struct {
	cfg          *config.Config
	db           db.DbInterface
	queueManager eventPublisher
	priceFeed    pricefeed.Client
	cust         custody.Custodian

	admin    types.Identity
	treasury types.Identity

	ledger  *ledger.Ledger
	feeCalc *fee.Calculator
	escrow  *escrow.Buffer
	engine  *settlement.Engine
	effort  *effort.Ledger
}

// NewService wires the full component graph: the solvency ledger with its
// writer set, the fee calculator bound to the ledger's deficit, the escrow
// buffer, the settlement engine behind the allow-list gate, and the effort
// ledger.
func NewService(
	cfg *config.Config,
	database db.DbInterface,
	qm *queue.QueueManager,
	approver allowlist.Client,
	priceFeed pricefeed.Client,
	cust custody.Custodian,
) (*Service, error) {
	admin := types.NormalizeIdentity(cfg.Identity.Admin)
	treasury := types.NormalizeIdentity(cfg.Identity.Treasury)

	solvencyLedger, err := ledger.New(admin)
	if err != nil {
		return nil, err
	}
	for _, writer := range []types.Identity{engineWriterID, escrowWriterID} {
		if err := solvencyLedger.AddWriter(admin, writer); err != nil {
			return nil, err
		}
	}

	feeCalc, err := fee.NewCalculator(admin, cfg.Fee.RateBps, solvencyLedger)
	if err != nil {
		return nil, err
	}

	escrowBuffer, err := escrow.NewBuffer(admin, escrowWriterID, solvencyLedger, cust)
	if err != nil {
		return nil, err
	}

	engine, err := settlement.NewEngine(admin, engineWriterID, solvencyLedger, cust, approver)
	if err != nil {
		return nil, err
	}

	weights, err := effortWeights(&cfg.Effort)
	if err != nil {
		return nil, err
	}
	effortLedger, err := effort.NewLedger(admin, weights)
	if err != nil {
		return nil, err
	}
	// the service records effort on behalf of authenticated callers
	if err := effortLedger.AddRecorder(admin, admin); err != nil {
		return nil, err
	}

	return &Service{
		cfg:          cfg,
		db:           database,
		queueManager: qm,
		priceFeed:    priceFeed,
		cust:         cust,
		admin:        admin,
		treasury:     treasury,
		ledger:       solvencyLedger,
		feeCalc:      feeCalc,
		escrow:       escrowBuffer,
		engine:       engine,
		effort:       effortLedger,
	}, nil
}

// effortWeights merges configured overrides into the built-in weight table.
func effortWeights(cfg *config.EffortConfig) (map[types.ActionKind]sdkmath.Int, error) {
	weights := effort.DefaultWeights()
	for kind, weight := range cfg.Weights {
		actionKind, err := types.ParseActionKind(kind)
		if err != nil {
			return nil, err
		}
		weights[actionKind] = sdkmath.NewInt(weight)
	}
	return weights, nil
}

func (s *Service) Admin() types.Identity {
	return s.admin
}
