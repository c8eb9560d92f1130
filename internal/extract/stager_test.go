package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStageFiles_CSV(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeCSV(t, "fertilizantes.csv",
		"CEDULA,NOMBRES Y APELLIDOS,CANTON,NITROGENADO,NPK,PRECIO KIT\n"+
			"0912345678,JUAN PEREZ,DAULE,2,1,85.50\n"+
			"0900000001,ANA MERA,MILAGRO,1,,\n")

	cols, err := StagingColumns(model.ProgramFertilizantes)
	require.NoError(t, err)

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "stg_fertilizantes"}, cols).
		WillReturnResult(2)

	s := NewStager(mock)
	n, err := s.StageFiles(context.Background(), model.ProgramFertilizantes, []string{path})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageFiles_MultipleFiles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := writeCSV(t, "a.csv", "CEDULA,CULTIVO\n0912345678,MAIZ\n")
	b := writeCSV(t, "b.csv", "CEDULA,CULTIVO\n0900000001,ARROZ\n0900000002,CACAO\n")

	cols, err := StagingColumns(model.ProgramSemillas)
	require.NoError(t, err)

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "stg_semillas"}, cols).
		WillReturnResult(3)

	s := NewStager(mock)
	n, err := s.StageFiles(context.Background(), model.ProgramSemillas, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageFiles_BadFileAborts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewStager(mock)
	_, err = s.StageFiles(context.Background(), model.ProgramPlantas, []string{"/nonexistent/plantas.csv"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
