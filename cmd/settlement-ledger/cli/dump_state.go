package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/db"
	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// DumpStateCmd prints the persisted ledger state for operator inspection.
// Usage: ./settlement-ledger dump-state --config config.yml [--manager <id>]
func DumpStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-state",
		Short: "Dump the latest solvency snapshot and open contracts",
		Run:   dumpState,
	}

	cmd.Flags().String("manager", "", "Restrict the contract dump to a single manager")

	return cmd
}

func dumpState(cmd *cobra.Command, args []string) {
	err := dumpStateE(cmd, args)
	// stop execution here so the root command does not fall through
	if err != nil {
		log.Err(err).Msg("Failed to dump state")
		os.Exit(1)
	}

	os.Exit(0)
}

func dumpStateE(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	snapshot, err := dbClient.GetLatestSolvencySnapshot(ctx)
	if err != nil {
		if !db.IsNotFoundError(err) {
			return err
		}
		fmt.Println("No solvency snapshot recorded yet")
	} else {
		fmt.Println("Latest solvency snapshot:")
		spew.Dump(snapshot)
	}

	manager, err := cmd.Flags().GetString("manager")
	if err != nil {
		return err
	}

	contracts, err := loadContracts(ctx, dbClient, manager)
	if err != nil {
		return err
	}

	fmt.Printf("Contracts (%d):\n", len(contracts))
	for _, contract := range contracts {
		spew.Dump(contract)

		records, err := dbClient.GetEffortRecordsByContract(ctx, contract.ID)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			fmt.Printf("Effort records for %s (%d):\n", contract.ID, len(records))
			spew.Dump(records)
		}
	}

	return nil
}

func loadContracts(ctx context.Context, dbClient db.DbInterface, manager string) ([]*model.ContractDocument, error) {
	if manager != "" {
		return dbClient.GetContractsByManager(ctx, manager)
	}

	return dbClient.GetContractsByStates(ctx, []types.ContractStatus{
		types.StatusActive,
		types.StatusSettled,
		types.StatusBurned,
	})
}
