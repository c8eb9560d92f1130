package dimensional

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factQueryCols() []string {
	return []string{
		"id", "tipo", "monto", "hectareas", "tipo_cultivo_id",
		"persona_key", "ubicacion_key", "organizacion_key", "tiempo_key",
		"cultivo_key", "categoria", "cantidad", "fecha",
	}
}

func iptr(v int64) *int64 { return &v }

func tptr(t time.Time) *time.Time { return &t }

var factDate = time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

func TestLoadFactBatch_InsertsAndSkips(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(factQueryCols()).
		// Fully resolvable benefit.
		AddRow(int64(100), "SEMILLAS", float64(120), 2.5, iptr(7),
			int64(1), iptr(3), int64(5), iptr(9), iptr(12), "MAIZ", func() *int { v := 1; return &v }(), tptr(factDate)).
		// Crop recorded but missing from dim_cultivo: skipped.
		AddRow(int64(101), "PLANTAS", float64(0), float64(0), iptr(8),
			int64(2), (*int64)(nil), int64(-1), (*int64)(nil), (*int64)(nil), "", (*int)(nil), tptr(factDate))
	mock.ExpectQuery("FROM operational.beneficio b").
		WithArgs(500).
		WillReturnRows(rows)

	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "fact_beneficio"}, factCols).
		WillReturnResult(1)

	l := newTestLoader(mock, ModeOverwrite)
	inserted, skipped, err := l.LoadFactBatch(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, int64(1), skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFactBatch_NoCropIsNotSkipped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// tipo_cultivo_id NULL: no referential gap, loads with NULL cultivo_key.
	rows := pgxmock.NewRows(factQueryCols()).
		AddRow(int64(102), "MECANIZACION", float64(300), float64(10), (*int64)(nil),
			int64(4), (*int64)(nil), int64(-1), (*int64)(nil), (*int64)(nil), "", (*int)(nil), tptr(factDate))
	mock.ExpectQuery("FROM operational.beneficio b").
		WithArgs(100).
		WillReturnRows(rows)

	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "fact_beneficio"}, factCols).
		WillReturnResult(1)

	l := newTestLoader(mock, ModeOverwrite)
	inserted, skipped, err := l.LoadFactBatch(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, int64(0), skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFactBatch_DefaultsNullMeasures(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// The wide SELECT coalesces NULL monto/hectareas to 0, so a benefit
	// without measures still loads, with the hectare range bucketed from 0.
	rows := pgxmock.NewRows(factQueryCols()).
		AddRow(int64(103), "FERTILIZANTES", float64(0), float64(0), (*int64)(nil),
			int64(5), (*int64)(nil), int64(-1), iptr(9), (*int64)(nil), "", (*int)(nil), tptr(factDate))
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(b.monto, 0), COALESCE(b.hectareas, 0)")).
		WithArgs(50).
		WillReturnRows(rows)

	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "fact_beneficio"}, factCols).
		WillReturnResult(1)

	l := newTestLoader(mock, ModeOverwrite)
	inserted, skipped, err := l.LoadFactBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, int64(0), skipped)

	zero := float64(0)
	assert.Equal(t, "MICRO", HectareRange(&zero))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFactBatch_SkipsDatelessBenefit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Neither fecha_entrega nor anio: no calendar key can be derived, the
	// benefit stays pending and nothing is copied.
	rows := pgxmock.NewRows(factQueryCols()).
		AddRow(int64(104), "SEMILLAS", float64(80), float64(1), (*int64)(nil),
			int64(6), (*int64)(nil), int64(-1), (*int64)(nil), (*int64)(nil), "", (*int)(nil), (*time.Time)(nil))
	mock.ExpectQuery("FROM operational.beneficio b").
		WithArgs(10).
		WillReturnRows(rows)

	l := newTestLoader(mock, ModeOverwrite)
	inserted, skipped, err := l.LoadFactBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)
	assert.Equal(t, int64(1), skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFactColumnsCarryCalendarFields(t *testing.T) {
	assert.Contains(t, factCols, "anio")
	assert.Contains(t, factCols, "mes")
	assert.Contains(t, factCols, "trimestre")
}

func TestLoadFacts_StopsWhenBatchInsertsNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// First batch inserts one fact.
	first := pgxmock.NewRows(factQueryCols()).
		AddRow(int64(100), "SEMILLAS", float64(120), float64(0), (*int64)(nil),
			int64(1), (*int64)(nil), int64(-1), iptr(9), (*int64)(nil), "", (*int)(nil), tptr(factDate))
	mock.ExpectQuery("FROM operational.beneficio b").WithArgs(1).WillReturnRows(first)
	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "fact_beneficio"}, factCols).
		WillReturnResult(1)

	// Second batch is empty: the loop ends.
	mock.ExpectQuery("FROM operational.beneficio b").WithArgs(1).
		WillReturnRows(pgxmock.NewRows(factQueryCols()))

	l := newTestLoader(mock, ModeOverwrite)
	inserted, skipped, err := l.LoadFacts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, int64(0), skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
