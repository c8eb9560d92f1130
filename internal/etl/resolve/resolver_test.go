package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/cropcat"
	"github.com/agroproductivo/etl-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestResolver() *Resolver {
	return NewResolver(cropcat.Default())
}

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func idRows(id int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id"}).AddRow(id)
}

func TestResolveBatch_NewEverything(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := model.StagingRecord{
		ID:               1,
		Program:          model.ProgramSemillas,
		Cedula:           " 0912345678 ",
		NombresCompletos: "Juan Pérez",
		Canton:           "Daule",
		Parroquia:        "Laurel",
		Organizacion:     "Asoc. El Progreso",
		Cultivo:          "maíz",
		Anio:             intPtr(2024),
		Edad:             intPtr(40),
		Semillas:         &model.SemillasFields{NumeroActa: "A-100", Variedad: "INIAP 543"},
	}

	// Address: miss, insert.
	mock.ExpectQuery("SELECT id FROM operational.direccion").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.direccion").WillReturnRows(idRows(3))

	// Beneficiary: miss, insert.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WithArgs("0912345678").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.beneficiario").WillReturnRows(idRows(10))

	// Association: miss, insert, link.
	mock.ExpectQuery("SELECT id FROM operational.asociacion").
		WithArgs("ASOC. EL PROGRESO").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.asociacion").WillReturnRows(idRows(5))
	mock.ExpectExec("INSERT INTO operational.beneficiario_asociacion").
		WithArgs(int64(10), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Crop type: miss, insert. Canonical form of "maíz" is MAIZ.
	mock.ExpectQuery("SELECT id FROM operational.tipo_cultivo").
		WithArgs("MAIZ").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.tipo_cultivo").WillReturnRows(idRows(7))

	// Benefit supertype + subtype.
	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(100))
	mock.ExpectExec("INSERT INTO operational.beneficio_semillas").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Bookmark.
	mock.ExpectExec("UPDATE staging.stg_semillas SET processed = TRUE, error_message = NULL").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, recErrs, err := newTestResolver().ResolveBatch(context.Background(), mock, []model.StagingRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, stats.Direcciones)
	assert.Equal(t, 1, stats.Beneficiarios)
	assert.Equal(t, 1, stats.Asociaciones)
	assert.Equal(t, 1, stats.TiposCultivo)
	assert.Equal(t, 1, stats.Beneficios)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_MissingCedula(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := model.StagingRecord{
		ID:      7,
		Program: model.ProgramFertilizantes,
		Cedula:  "   ",
	}

	// Only the error bookmark is written; no entity statements run.
	mock.ExpectExec("UPDATE staging.stg_fertilizantes SET processed = TRUE, error_message").
		WithArgs("cedula faltante", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, recErrs, err := newTestResolver().ResolveBatch(context.Background(), mock, []model.StagingRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Success)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, recErrs, 1)
	assert.Equal(t, int64(7), recErrs[0].RecordID)
	assert.Equal(t, "cedula faltante", recErrs[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_ExistingBeneficiaryBackfillsAddress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := model.StagingRecord{
		ID:      2,
		Program: model.ProgramFertilizantes,
		Cedula:  "0900000001",
		Canton:  "Milagro",
		Fertilizantes: &model.FertilizantesFields{
			Nitrogenado: intPtr(2),
			PrecioKit:   floatPtr(85.5),
		},
	}

	// Address hit.
	mock.ExpectQuery("SELECT id FROM operational.direccion").WillReturnRows(idRows(9))

	// Beneficiary exists without an address: backfill.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WithArgs("0900000001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "direccion_id"}).AddRow(int64(20), nil))
	mock.ExpectExec("UPDATE operational.beneficiario SET direccion_id").
		WithArgs(int64(9), int64(20)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	// No organization, no crop for fertilizer rows without cultivo.
	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(101))
	mock.ExpectExec("INSERT INTO operational.beneficio_fertilizantes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("UPDATE staging.stg_fertilizantes SET processed = TRUE, error_message = NULL").
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, recErrs, err := newTestResolver().ResolveBatch(context.Background(), mock, []model.StagingRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 0, stats.Beneficiarios) // reused, not created
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_PlantasDefaultsCropToCacao(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := model.StagingRecord{
		ID:      3,
		Program: model.ProgramPlantas,
		Cedula:  "0900000002",
		Plantas: &model.PlantasFields{Contratista: "Viveros SA"},
	}

	// No address fields → no direccion statements.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WillReturnRows(pgxmock.NewRows([]string{"id", "direccion_id"}).AddRow(int64(30), int64(4)))

	mock.ExpectQuery("SELECT id FROM operational.tipo_cultivo").
		WithArgs("CACAO").
		WillReturnRows(idRows(12))

	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(102))
	mock.ExpectExec("INSERT INTO operational.beneficio_plantas").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("UPDATE staging.stg_plantas SET processed = TRUE, error_message = NULL").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, _, err := newTestResolver().ResolveBatch(context.Background(), mock, []model.StagingRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_SharedAssociationLinksBoth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	recs := []model.StagingRecord{
		{ID: 11, Program: model.ProgramFertilizantes, Cedula: "0900000010", Organizacion: "El Progreso"},
		{ID: 12, Program: model.ProgramFertilizantes, Cedula: "0900000011", Organizacion: "el progreso "},
	}

	// First record creates the association and links it.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WithArgs("0900000010").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.beneficiario").WillReturnRows(idRows(50))
	mock.ExpectQuery("SELECT id FROM operational.asociacion").
		WithArgs("EL PROGRESO").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.asociacion").WillReturnRows(idRows(8))
	mock.ExpectExec("INSERT INTO operational.beneficiario_asociacion").
		WithArgs(int64(50), int64(8)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(110))
	mock.ExpectExec("INSERT INTO operational.beneficio_fertilizantes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE staging.stg_fertilizantes SET processed = TRUE, error_message = NULL").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	// Second record normalizes to the same name, finds the existing row,
	// and only adds its own link.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WithArgs("0900000011").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.beneficiario").WillReturnRows(idRows(51))
	mock.ExpectQuery("SELECT id FROM operational.asociacion").
		WithArgs("EL PROGRESO").
		WillReturnRows(idRows(8))
	mock.ExpectExec("INSERT INTO operational.beneficiario_asociacion").
		WithArgs(int64(51), int64(8)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(111))
	mock.ExpectExec("INSERT INTO operational.beneficio_fertilizantes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE staging.stg_fertilizantes SET processed = TRUE, error_message = NULL").
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, recErrs, err := newTestResolver().ResolveBatch(context.Background(), mock, recs)
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 2, stats.Beneficiarios)
	assert.Equal(t, 1, stats.Asociaciones) // one row, two links
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_InsertRaceFallsBackToSelect(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := model.StagingRecord{
		ID:           4,
		Program:      model.ProgramMecanizacion,
		Cedula:       "0900000003",
		Mecanizacion: &model.MecanizacionFields{Estado: "entregado"},
	}

	// Beneficiary: select misses, concurrent insert wins (DO NOTHING returns
	// no row), reselect finds it.
	mock.ExpectQuery("SELECT id, direccion_id FROM operational.beneficiario").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO operational.beneficiario").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM operational.beneficiario").
		WithArgs("0900000003").
		WillReturnRows(idRows(40))

	mock.ExpectQuery("INSERT INTO operational.beneficio").WillReturnRows(idRows(103))
	mock.ExpectExec("INSERT INTO operational.beneficio_mecanizacion").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("UPDATE staging.stg_mecanizacion SET processed = TRUE, error_message = NULL").
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stats, _, err := newTestResolver().ResolveBatch(context.Background(), mock, []model.StagingRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 0, stats.Beneficiarios)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatch_StorageErrorAborts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	recs := []model.StagingRecord{
		{ID: 5, Program: model.ProgramSemillas, Cedula: "0900000004", Canton: "Daule"},
		{ID: 6, Program: model.ProgramSemillas, Cedula: "0900000005"},
	}

	mock.ExpectQuery("SELECT id FROM operational.direccion").
		WillReturnError(fmt.Errorf("connection reset"))

	stats, _, err := newTestResolver().ResolveBatch(context.Background(), mock, recs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select direccion")
	// Second record never processed.
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkError_TruncatesLongReasons(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	want := string(long[:maxErrorLen])

	mock.ExpectExec("UPDATE staging.stg_semillas SET processed = TRUE, error_message").
		WithArgs(want, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := &model.StagingRecord{ID: 9, Program: model.ProgramSemillas}
	require.NoError(t, newTestResolver().markError(context.Background(), mock, rec, string(long)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
