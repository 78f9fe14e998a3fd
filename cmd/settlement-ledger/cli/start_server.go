package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fundlock-io/settlement-ledger/internal/api"
	"github.com/fundlock-io/settlement-ledger/internal/clients/allowlist"
	"github.com/fundlock-io/settlement-ledger/internal/clients/pricefeed"
	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/custody"
	"github.com/fundlock-io/settlement-ledger/internal/db"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/observability/tracing"
	"github.com/fundlock-io/settlement-ledger/internal/queue"
	"github.com/fundlock-io/settlement-ledger/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the settlement ledger server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	if err := dbClient.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while setting up db indexes")
	}
	dbClient = db.NewDbWithMetrics(dbClient)

	// Create a basic zap logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating zap logger")
	}
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			log.Error().Err(err).Msg("error while syncing zap logger")
		}
	}()

	qm, err := queue.NewQueueManager(&cfg.Queue, zapLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize queue manager")
	}
	defer qm.Shutdown()

	approver := allowlist.FromConfig(&cfg.Allowlist)
	priceFeed := pricefeed.NewHTTPClient(&cfg.PriceFeed)
	custodian := custody.NewLogCustodian()

	service, err := services.NewService(cfg, dbClient, qm, approver, priceFeed, custodian)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating service")
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service.StartSnapshotPoller(ctx)
	service.StartValuationPoller(ctx)

	return api.New(&cfg.Server, service).Start(ctx)
}
