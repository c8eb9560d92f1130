package dimensional

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/cropcat"
	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/agroproductivo/etl-cli/internal/model"
)

// Mode selects how attribute changes on existing dimension members are
// applied: rewrite the current row, or version it SCD2-style.
type Mode string

const (
	ModeOverwrite Mode = "overwrite"
	ModeSCD2      Mode = "scd2"
)

// ParseMode validates a configured dimension update mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOverwrite, ModeSCD2:
		return Mode(s), nil
	default:
		return "", eris.Errorf("unknown dimension update mode: %q (valid: overwrite, scd2)", s)
	}
}

// Loader syncs the analytics dimensions from operational entities and loads
// the fact table.
type Loader struct {
	pool    db.Pool
	mode    Mode
	catalog *cropcat.Catalog
	log     *zap.Logger
	now     func() time.Time
}

// NewLoader builds a Loader. The catalog drives dim_cultivo membership and
// crop classification on facts.
func NewLoader(pool db.Pool, mode Mode, catalog *cropcat.Catalog) *Loader {
	return &Loader{
		pool:    pool,
		mode:    mode,
		catalog: catalog,
		log:     zap.L().With(zap.String("component", "etl.dimensional")),
		now:     time.Now,
	}
}

// SyncDimensions refreshes all five dimensions and returns their post-sync
// member counts.
func (l *Loader) SyncDimensions(ctx context.Context) (model.DimCounts, error) {
	var counts model.DimCounts
	var err error

	if counts.Personas, err = l.SyncDimPersona(ctx); err != nil {
		return counts, err
	}
	if counts.Ubicaciones, err = l.SyncDimUbicacion(ctx); err != nil {
		return counts, err
	}
	if counts.Organizaciones, err = l.SyncDimOrganizacion(ctx); err != nil {
		return counts, err
	}
	if counts.Tiempos, err = l.SyncDimTiempo(ctx); err != nil {
		return counts, err
	}
	if counts.Cultivos, err = l.SyncDimCultivo(ctx); err != nil {
		return counts, err
	}
	return counts, nil
}

// SyncDimPersona adds dimension members for new beneficiaries and applies
// attribute changes per the configured mode. Returns the current member count.
func (l *Loader) SyncDimPersona(ctx context.Context) (int64, error) {
	today := l.now()

	rows, err := l.pool.Query(ctx, `
		SELECT b.id, b.cedula, COALESCE(b.nombres_completos, ''), COALESCE(b.genero, ''), b.fecha_nacimiento
		FROM operational.beneficiario b
		WHERE NOT EXISTS (
			SELECT 1 FROM analytics.dim_persona d
			WHERE d.beneficiario_id = b.id AND d.vigente
		)`)
	if err != nil {
		return 0, eris.Wrap(err, "dimensional: query new beneficiarios")
	}
	inserts, err := scanPersonaRows(rows, today)
	if err != nil {
		return 0, err
	}

	if len(inserts) > 0 {
		if _, err := db.CopyInto(ctx, l.pool, "analytics.dim_persona",
			[]string{"beneficiario_id", "cedula", "nombres_completos", "genero", "grupo_etario", "valido_desde"},
			inserts,
		); err != nil {
			return 0, err
		}
		l.log.Info("dim_persona synced", zap.Int("new_members", len(inserts)))
	}

	if err := l.applyPersonaChanges(ctx, today); err != nil {
		return 0, err
	}

	return l.countRows(ctx, "SELECT count(*) FROM analytics.dim_persona WHERE vigente")
}

func scanPersonaRows(rows pgx.Rows, today time.Time) ([][]any, error) {
	defer rows.Close()
	var out [][]any
	for rows.Next() {
		var id int64
		var cedula, nombres, genero string
		var birth *time.Time
		if err := rows.Scan(&id, &cedula, &nombres, &genero, &birth); err != nil {
			return nil, eris.Wrap(err, "dimensional: scan beneficiario")
		}
		out = append(out, []any{id, cedula, nombres, genero, AgeGroupAt(birth, today), today})
	}
	return out, rows.Err()
}

func (l *Loader) applyPersonaChanges(ctx context.Context, today time.Time) error {
	rows, err := l.pool.Query(ctx, `
		SELECT d.persona_key, b.id, b.cedula, COALESCE(b.nombres_completos, ''), COALESCE(b.genero, ''), b.fecha_nacimiento
		FROM operational.beneficiario b
		JOIN analytics.dim_persona d ON d.beneficiario_id = b.id AND d.vigente
		WHERE (b.cedula, COALESCE(b.nombres_completos, ''), COALESCE(b.genero, ''))
		      IS DISTINCT FROM (d.cedula, d.nombres_completos, d.genero)`)
	if err != nil {
		return eris.Wrap(err, "dimensional: query changed beneficiarios")
	}
	defer rows.Close()

	type change struct {
		key    int64
		id     int64
		cedula string
		nombre string
		genero string
		birth  *time.Time
	}
	var changes []change
	for rows.Next() {
		var c change
		if err := rows.Scan(&c.key, &c.id, &c.cedula, &c.nombre, &c.genero, &c.birth); err != nil {
			return eris.Wrap(err, "dimensional: scan changed beneficiario")
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "dimensional: iterate changed beneficiarios")
	}

	for _, c := range changes {
		grupo := AgeGroupAt(c.birth, today)
		switch l.mode {
		case ModeSCD2:
			if _, err := l.pool.Exec(ctx,
				`UPDATE analytics.dim_persona
				 SET vigente = FALSE, valido_hasta = $1 WHERE persona_key = $2`,
				today, c.key,
			); err != nil {
				return eris.Wrap(err, "dimensional: retire persona version")
			}
			if _, err := l.pool.Exec(ctx,
				`INSERT INTO analytics.dim_persona
				     (beneficiario_id, cedula, nombres_completos, genero, grupo_etario, valido_desde)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				c.id, c.cedula, c.nombre, c.genero, grupo, today,
			); err != nil {
				return eris.Wrap(err, "dimensional: insert persona version")
			}
		default:
			if _, err := l.pool.Exec(ctx,
				`UPDATE analytics.dim_persona
				 SET cedula = $1, nombres_completos = $2, genero = $3, grupo_etario = $4
				 WHERE persona_key = $5`,
				c.cedula, c.nombre, c.genero, grupo, c.key,
			); err != nil {
				return eris.Wrap(err, "dimensional: update persona")
			}
		}
	}
	if len(changes) > 0 {
		l.log.Info("dim_persona changes applied",
			zap.Int("changed", len(changes)), zap.String("mode", string(l.mode)))
	}
	return nil
}

// SyncDimUbicacion adds members for new addresses, deriving province, zone,
// and region from the canton. Returns the current member count.
func (l *Loader) SyncDimUbicacion(ctx context.Context) (int64, error) {
	today := l.now()

	rows, err := l.pool.Query(ctx, `
		SELECT a.id, COALESCE(a.canton, ''), COALESCE(a.parroquia, ''), COALESCE(a.sector, '')
		FROM operational.direccion a
		WHERE NOT EXISTS (
			SELECT 1 FROM analytics.dim_ubicacion d
			WHERE d.direccion_id = a.id AND d.vigente
		)`)
	if err != nil {
		return 0, eris.Wrap(err, "dimensional: query new direcciones")
	}

	var inserts [][]any
	func() {
		defer rows.Close()
		for rows.Next() {
			var id int64
			var canton, parroquia, sector string
			if scanErr := rows.Scan(&id, &canton, &parroquia, &sector); scanErr != nil {
				err = eris.Wrap(scanErr, "dimensional: scan direccion")
				return
			}
			g := GeoForCanton(canton)
			inserts = append(inserts, []any{id, canton, parroquia, sector, g.Provincia, g.Zona, g.Region, today})
		}
		err = rows.Err()
	}()
	if err != nil {
		return 0, err
	}

	if len(inserts) > 0 {
		if _, err := db.CopyInto(ctx, l.pool, "analytics.dim_ubicacion",
			[]string{"direccion_id", "canton", "parroquia", "sector", "provincia", "zona", "region", "valido_desde"},
			inserts,
		); err != nil {
			return 0, err
		}
		l.log.Info("dim_ubicacion synced", zap.Int("new_members", len(inserts)))
	}

	return l.countRows(ctx, "SELECT count(*) FROM analytics.dim_ubicacion WHERE vigente")
}

// SyncDimOrganizacion adds members for new associations, classifying each by
// name. The -1 sentinel member is seeded by migration and never touched here.
// Returns the current member count, sentinel included.
func (l *Loader) SyncDimOrganizacion(ctx context.Context) (int64, error) {
	today := l.now()

	rows, err := l.pool.Query(ctx, `
		SELECT a.id, a.nombre
		FROM operational.asociacion a
		WHERE NOT EXISTS (
			SELECT 1 FROM analytics.dim_organizacion d
			WHERE d.asociacion_id = a.id AND d.vigente
		)`)
	if err != nil {
		return 0, eris.Wrap(err, "dimensional: query new asociaciones")
	}

	var inserts [][]any
	func() {
		defer rows.Close()
		for rows.Next() {
			var id int64
			var nombre string
			if scanErr := rows.Scan(&id, &nombre); scanErr != nil {
				err = eris.Wrap(scanErr, "dimensional: scan asociacion")
				return
			}
			inserts = append(inserts, []any{id, nombre, OrgCategory(nombre), today})
		}
		err = rows.Err()
	}()
	if err != nil {
		return 0, err
	}

	if len(inserts) > 0 {
		if _, err := db.CopyInto(ctx, l.pool, "analytics.dim_organizacion",
			[]string{"asociacion_id", "nombre", "categoria", "valido_desde"},
			inserts,
		); err != nil {
			return 0, err
		}
		l.log.Info("dim_organizacion synced", zap.Int("new_members", len(inserts)))
	}

	return l.countRows(ctx, "SELECT count(*) FROM analytics.dim_organizacion WHERE vigente")
}

var dimCultivoCols = []string{
	"codigo", "nombre", "nombre_cientifico", "familia_botanica",
	"tipo_ciclo", "clasificacion_economica", "uso_principal", "categoria",
}

// SyncDimCultivo upserts the full crop catalog, then adds members for any
// resolved crop types the catalog does not know. Returns the member count.
func (l *Loader) SyncDimCultivo(ctx context.Context) (int64, error) {
	var rows [][]any
	for _, e := range l.catalog.Entries {
		rows = append(rows, []any{
			e.Codigo, e.Nombre, e.NombreCientifico, e.FamiliaBotanica,
			e.TipoCiclo, e.ClasificacionEconomica, e.UsoPrincipal, e.Categoria,
		})
	}
	if len(rows) > 0 {
		if _, err := db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        "analytics.dim_cultivo",
			Columns:      dimCultivoCols,
			ConflictKeys: []string{"codigo"},
		}, rows); err != nil {
			return 0, err
		}
	}

	// Free-text crops that resolved into tipo_cultivo but are not catalog
	// members still need a dimension row so their facts can join.
	extra, err := l.pool.Query(ctx, `
		SELECT t.nombre FROM operational.tipo_cultivo t
		WHERE NOT EXISTS (
			SELECT 1 FROM analytics.dim_cultivo d WHERE d.codigo = t.nombre
		)`)
	if err != nil {
		return 0, eris.Wrap(err, "dimensional: query unknown cultivos")
	}

	var extras [][]any
	func() {
		defer extra.Close()
		for extra.Next() {
			var nombre string
			if scanErr := extra.Scan(&nombre); scanErr != nil {
				err = eris.Wrap(scanErr, "dimensional: scan cultivo")
				return
			}
			extras = append(extras, []any{nombre, nombre, "", "", "", "", "", l.catalog.Classify(nombre)})
		}
		err = extra.Err()
	}()
	if err != nil {
		return 0, err
	}

	if len(extras) > 0 {
		if _, err := db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        "analytics.dim_cultivo",
			Columns:      dimCultivoCols,
			ConflictKeys: []string{"codigo"},
			DoNothing:    true,
		}, extras); err != nil {
			return 0, err
		}
		l.log.Info("dim_cultivo extended", zap.Int("uncataloged", len(extras)))
	}

	return l.countRows(ctx, "SELECT count(*) FROM analytics.dim_cultivo")
}

func (l *Loader) countRows(ctx context.Context, sql string) (int64, error) {
	var n int64
	if err := l.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "dimensional: count members")
	}
	return n, nil
}
