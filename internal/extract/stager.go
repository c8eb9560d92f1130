package extract

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/agroproductivo/etl-cli/internal/model"
)

// Parallel file parses per staging call.
const parseConcurrency = 4

// Stager parses extract files and COPYs them into a program's staging table.
type Stager struct {
	pool db.Pool
	log  *zap.Logger

	// Workbook options applied to every XLSX file.
	SheetName string
	SkipRows  int
}

// NewStager builds a Stager on the given pool.
func NewStager(pool db.Pool) *Stager {
	return &Stager{
		pool: pool,
		log:  zap.L().With(zap.String("component", "extract")),
	}
}

// StageFiles parses the given files concurrently and loads all rows into the
// program's staging table in one COPY. Returns the number of rows staged.
func (s *Stager) StageFiles(ctx context.Context, program model.Program, paths []string) (int64, error) {
	cols, err := StagingColumns(program)
	if err != nil {
		return 0, err
	}

	var mu sync.Mutex
	var rows [][]any

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fileRows, err := s.parseFile(path)
			if err != nil {
				return err
			}

			batch := make([][]any, 0, len(fileRows))
			for _, fr := range fileRows {
				row, err := StagingRow(program, fr)
				if err != nil {
					return err
				}
				batch = append(batch, row)
			}

			s.log.Info("file parsed",
				zap.String("program", string(program)),
				zap.String("file", filepath.Base(path)),
				zap.Int("rows", len(batch)))

			mu.Lock()
			rows = append(rows, batch...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n, err := db.CopyInto(ctx, s.pool, program.StagingTable(), cols, rows)
	if err != nil {
		return 0, err
	}

	s.log.Info("staging load complete",
		zap.String("program", string(program)),
		zap.Int64("rows_staged", n))
	return n, nil
}

func (s *Stager) parseFile(path string) ([]fileRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(path)
	}

	header, raw, err := ReadXLSX(path, XLSXOptions{SheetName: s.SheetName, SkipRows: s.SkipRows})
	if err != nil {
		return nil, err
	}
	return decodeRows(header, raw)
}
