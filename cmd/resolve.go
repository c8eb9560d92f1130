package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/etl"
	"github.com/agroproductivo/etl-cli/internal/etl/dimensional"
	"github.com/agroproductivo/etl-cli/internal/etl/resolve"
	"github.com/agroproductivo/etl-cli/internal/model"
)

var resolveProgram string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve staged rows into operational entities",
	Long:  "Drains the staging backlog, deduplicating beneficiaries, addresses, associations, and crop types, and recording one benefit per staged row. Restrict to one program with --program.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		programs := model.AllPrograms
		if resolveProgram != "" {
			p, err := model.ParseProgram(resolveProgram)
			if err != nil {
				return eris.Wrap(err, "agroetl resolve")
			}
			programs = []model.Program{p}
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		catalog, err := loadCatalog()
		if err != nil {
			return eris.Wrap(err, "agroetl resolve")
		}
		mode, err := dimMode()
		if err != nil {
			return eris.Wrap(err, "agroetl resolve")
		}

		pipe := etl.NewPipeline(pool,
			resolve.NewResolver(catalog),
			dimensional.NewLoader(pool, mode, catalog),
			cfg.ETL.BatchSize, cfg.ETL.FactBatchSize)

		var total model.BatchStats
		for _, program := range programs {
			stats, recErrs, err := pipe.ResolveProgram(ctx, program)
			total.Add(stats)
			if err != nil {
				return eris.Wrapf(err, "agroetl resolve: %s", program)
			}
			for _, re := range recErrs {
				zap.L().Warn("record rejected",
					zap.String("program", string(re.Program)),
					zap.Int64("record_id", re.RecordID),
					zap.String("reason", re.Reason))
			}
		}

		zap.L().Info("resolution complete",
			zap.Int("processed", total.Processed),
			zap.Int("success", total.Success),
			zap.Int("errors", total.Errors),
			zap.Int("beneficiarios_created", total.Beneficiarios),
			zap.Int("beneficios_created", total.Beneficios))
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveProgram, "program", "p", "", "restrict to one program (semillas, fertilizantes, mecanizacion, plantas)")
	rootCmd.AddCommand(resolveCmd)
}
