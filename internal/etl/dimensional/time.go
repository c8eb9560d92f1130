package dimensional

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/db"
)

var monthNames = [...]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

var dayNames = [...]string{
	"DOMINGO", "LUNES", "MARTES", "MIERCOLES", "JUEVES", "VIERNES", "SABADO",
}

// CalendarRow computes the dim_tiempo attributes for a date.
func CalendarRow(d time.Time) []any {
	month := int(d.Month())
	wd := d.Weekday()
	return []any{
		d,
		d.Year(),
		month,
		d.Day(),
		(month-1)/3 + 1,
		(month-1)/6 + 1,
		monthNames[month-1],
		dayNames[wd],
		wd == time.Saturday || wd == time.Sunday,
	}
}

var dimTiempoCols = []string{
	"fecha", "anio", "mes", "dia", "trimestre", "semestre",
	"nombre_mes", "nombre_dia", "es_fin_de_semana",
}

// SyncDimTiempo inserts calendar rows for every benefit date not yet in
// dim_tiempo. Benefits without a delivery date fall back to Jan 1 of their
// benefit year. Returns the post-sync member count.
func (l *Loader) SyncDimTiempo(ctx context.Context) (int64, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT DISTINCT COALESCE(b.fecha_entrega, make_date(b.anio, 1, 1)) AS fecha
		FROM operational.beneficio b
		WHERE (b.fecha_entrega IS NOT NULL OR b.anio IS NOT NULL)
		  AND NOT EXISTS (
			SELECT 1 FROM analytics.dim_tiempo t
			WHERE t.fecha = COALESCE(b.fecha_entrega, make_date(b.anio, 1, 1))
		  )`)
	if err != nil {
		return 0, eris.Wrap(err, "dimensional: query missing dates")
	}
	defer rows.Close()

	var inserts [][]any
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return 0, eris.Wrap(err, "dimensional: scan date")
		}
		inserts = append(inserts, CalendarRow(d))
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "dimensional: iterate dates")
	}

	if len(inserts) > 0 {
		if _, err := db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        "analytics.dim_tiempo",
			Columns:      dimTiempoCols,
			ConflictKeys: []string{"fecha"},
			DoNothing:    true,
		}, inserts); err != nil {
			return 0, err
		}
		l.log.Info("dim_tiempo synced", zap.Int("new_dates", len(inserts)))
	}

	return l.countRows(ctx, "SELECT count(*) FROM analytics.dim_tiempo")
}
