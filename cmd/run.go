package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/etl"
	"github.com/agroproductivo/etl-cli/internal/etl/dimensional"
	"github.com/agroproductivo/etl-cli/internal/etl/resolve"
	"github.com/agroproductivo/etl-cli/internal/extract"
	"github.com/agroproductivo/etl-cli/internal/model"
)

var runProgram string

var runCmd = &cobra.Command{
	Use:   "run [--program <name> <file>...]",
	Short: "Execute the full pipeline",
	Long:  "Runs every phase in order: optional file staging, entity resolution for all programs, dimension sync, and fact loading. The run is recorded in etl.run_log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) > 0 && runProgram == "" {
			return eris.New("agroetl run: --program is required when staging files")
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		catalog, err := loadCatalog()
		if err != nil {
			return eris.Wrap(err, "agroetl run")
		}
		mode, err := dimMode()
		if err != nil {
			return eris.Wrap(err, "agroetl run")
		}

		pipe := etl.NewPipeline(pool,
			resolve.NewResolver(catalog),
			dimensional.NewLoader(pool, mode, catalog),
			cfg.ETL.BatchSize, cfg.ETL.FactBatchSize)

		if len(args) > 0 {
			program, err := model.ParseProgram(runProgram)
			if err != nil {
				return eris.Wrap(err, "agroetl run")
			}

			stager := extract.NewStager(pool)
			stager.SheetName = cfg.Extract.SheetName
			stager.SkipRows = cfg.Extract.SkipRows

			pipe.Extract = func(ctx context.Context) (int64, error) {
				return stager.StageFiles(ctx, program, args)
			}
		}

		report, err := pipe.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "agroetl run")
		}

		zap.L().Info("run report",
			zap.String("run_id", report.RunID),
			zap.String("state", string(report.State)),
			zap.Duration("duration", report.Duration),
			zap.Int("records_processed", report.Resolved.Processed),
			zap.Int("record_errors", report.Resolved.Errors),
			zap.Int64("facts_loaded", report.FactsLoaded),
			zap.Int64("facts_skipped", report.FactsSkipped))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runProgram, "program", "p", "", "program for staged files (semillas, fertilizantes, mecanizacion, plantas)")
	rootCmd.AddCommand(runCmd)
}
