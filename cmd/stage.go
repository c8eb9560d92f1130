package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/extract"
	"github.com/agroproductivo/etl-cli/internal/model"
)

var stageProgram string

var stageCmd = &cobra.Command{
	Use:   "stage --program <name> <file>...",
	Short: "Load extract files into staging",
	Long:  "Parses XLSX or CSV extract files for one program and appends the rows to its staging table. Rows land unprocessed and are picked up by the next resolve.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		program, err := model.ParseProgram(stageProgram)
		if err != nil {
			return eris.Wrap(err, "agroetl stage")
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		stager := extract.NewStager(pool)
		stager.SheetName = cfg.Extract.SheetName
		stager.SkipRows = cfg.Extract.SkipRows

		n, err := stager.StageFiles(ctx, program, args)
		if err != nil {
			return eris.Wrap(err, "agroetl stage")
		}

		zap.L().Info("staging complete",
			zap.String("program", string(program)),
			zap.Int("files", len(args)),
			zap.Int64("rows_staged", n))
		return nil
	},
}

func init() {
	stageCmd.Flags().StringVarP(&stageProgram, "program", "p", "", "program to stage (semillas, fertilizantes, mecanizacion, plantas)")
	_ = stageCmd.MarkFlagRequired("program")
	rootCmd.AddCommand(stageCmd)
}
