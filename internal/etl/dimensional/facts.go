package dimensional

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/db"
)

var factCols = []string{
	"beneficio_id", "tipo_beneficio", "persona_key", "ubicacion_key",
	"organizacion_key", "tiempo_key", "cultivo_key", "monto", "hectareas",
	"cantidad", "rango_hectareas", "categoria_beneficio",
	"anio", "mes", "trimestre",
}

// LoadFactBatch loads up to limit benefits into fact_beneficio. Pending
// benefits are selected by anti-join on beneficio_id, so re-running never
// duplicates facts. A benefit whose crop has no dim_cultivo member, or that
// carries neither a delivery date nor a year, is skipped and logged;
// everything else joins its dimension keys, falling back to the -1
// organization sentinel when the beneficiary has none. NULL monetary value
// and hectares load as 0.
func (l *Loader) LoadFactBatch(ctx context.Context, limit int) (inserted, skipped int64, err error) {
	rows, err := l.pool.Query(ctx, `
		SELECT b.id, b.tipo, COALESCE(b.monto, 0), COALESCE(b.hectareas, 0), b.tipo_cultivo_id,
		       p.persona_key,
		       u.ubicacion_key,
		       COALESCE(org.organizacion_key, -1),
		       t.tiempo_key,
		       c.cultivo_key,
		       COALESCE(c.categoria, ''),
		       COALESCE(bs.entrega, bp.entrega),
		       COALESCE(b.fecha_entrega, make_date(b.anio, 1, 1))
		FROM operational.beneficio b
		JOIN operational.beneficiario ben ON ben.id = b.beneficiario_id
		JOIN analytics.dim_persona p ON p.beneficiario_id = ben.id AND p.vigente
		LEFT JOIN analytics.dim_ubicacion u ON u.direccion_id = ben.direccion_id AND u.vigente
		LEFT JOIN LATERAL (
			SELECT d.organizacion_key
			FROM operational.beneficiario_asociacion ba
			JOIN analytics.dim_organizacion d ON d.asociacion_id = ba.asociacion_id AND d.vigente
			WHERE ba.beneficiario_id = ben.id
			ORDER BY ba.asociacion_id
			LIMIT 1
		) org ON TRUE
		LEFT JOIN analytics.dim_tiempo t ON t.fecha = COALESCE(b.fecha_entrega, make_date(b.anio, 1, 1))
		LEFT JOIN operational.tipo_cultivo tc ON tc.id = b.tipo_cultivo_id
		LEFT JOIN analytics.dim_cultivo c ON c.codigo = tc.nombre
		LEFT JOIN operational.beneficio_semillas bs ON bs.beneficio_id = b.id
		LEFT JOIN operational.beneficio_plantas bp ON bp.beneficio_id = b.id
		WHERE NOT EXISTS (
			SELECT 1 FROM analytics.fact_beneficio f WHERE f.beneficio_id = b.id
		)
		ORDER BY b.id
		LIMIT $1`, limit)
	if err != nil {
		return 0, 0, eris.Wrap(err, "dimensional: query pending beneficios")
	}

	var inserts [][]any
	func() {
		defer rows.Close()
		for rows.Next() {
			var (
				benefitID    int64
				tipo         string
				monto        float64
				hectareas    float64
				cropID       *int64
				personaKey   int64
				ubicacionKey *int64
				orgKey       int64
				tiempoKey    *int64
				cultivoKey   *int64
				categoria    string
				cantidad     *int
				fecha        *time.Time
			)
			if scanErr := rows.Scan(&benefitID, &tipo, &monto, &hectareas, &cropID,
				&personaKey, &ubicacionKey, &orgKey, &tiempoKey, &cultivoKey, &categoria, &cantidad, &fecha); scanErr != nil {
				err = eris.Wrap(scanErr, "dimensional: scan pending beneficio")
				return
			}

			// Crop recorded operationally but absent from the dimension:
			// the benefit stays pending rather than load a dangling key.
			if cropID != nil && cultivoKey == nil {
				skipped++
				l.log.Warn("benefit skipped, crop missing from dim_cultivo",
					zap.Int64("beneficio_id", benefitID),
					zap.Int64("tipo_cultivo_id", *cropID))
				continue
			}

			// No delivery date and no benefit year: the calendar natural key
			// cannot be derived, so the benefit stays pending too.
			if fecha == nil {
				skipped++
				l.log.Warn("benefit skipped, no delivery date or year",
					zap.Int64("beneficio_id", benefitID))
				continue
			}

			month := int(fecha.Month())
			inserts = append(inserts, []any{
				benefitID, tipo, personaKey, ubicacionKey, orgKey, tiempoKey,
				cultivoKey, monto, hectareas, cantidad, HectareRange(&hectareas), categoria,
				fecha.Year(), month, (month-1)/3 + 1,
			})
		}
		if err == nil {
			err = rows.Err()
		}
	}()
	if err != nil {
		return 0, skipped, err
	}

	if len(inserts) > 0 {
		if _, err := db.CopyInto(ctx, l.pool, "analytics.fact_beneficio", factCols, inserts); err != nil {
			return 0, skipped, err
		}
		inserted = int64(len(inserts))
	}

	return inserted, skipped, nil
}

// LoadFacts drains pending benefits in batches until a batch inserts
// nothing. Returns the totals across all batches.
func (l *Loader) LoadFacts(ctx context.Context, batchSize int) (inserted, skipped int64, err error) {
	for {
		n, s, err := l.LoadFactBatch(ctx, batchSize)
		if err != nil {
			return inserted, skipped, err
		}
		inserted += n
		skipped += s
		if n == 0 {
			break
		}
	}
	l.log.Info("fact load complete",
		zap.Int64("inserted", inserted), zap.Int64("skipped", skipped))
	return inserted, skipped, nil
}
