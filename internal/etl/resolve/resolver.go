package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/cropcat"
	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/agroproductivo/etl-cli/internal/model"
)

// Error messages written to staging.error_message are capped so a pathological
// input cannot bloat the bookmark column.
const maxErrorLen = 500

// defaultPlantCrop backfills the crop for plant-kit rows that arrive without
// one; the program overwhelmingly distributes cacao seedlings.
const defaultPlantCrop = "CACAO"

// ValidationError marks a record-local failure: the record is skipped and
// bookmarked, the batch continues.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Resolver resolves staging records into operational entities. All writes go
// through the caller's transaction, so a storage failure aborts the whole
// batch while validation failures only bookmark the offending record.
type Resolver struct {
	catalog *cropcat.Catalog
	log     *zap.Logger
}

// NewResolver builds a Resolver using the given crop catalog.
func NewResolver(catalog *cropcat.Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		log:     zap.L().With(zap.String("component", "etl.resolve")),
	}
}

// ResolveBatch processes one batch of staging records inside q (normally a
// transaction). Validation failures are written back to the staging row and
// counted; a storage error aborts the batch and is returned with the partial
// stats.
func (r *Resolver) ResolveBatch(ctx context.Context, q db.Querier, records []model.StagingRecord) (model.BatchStats, []model.RecordError, error) {
	var stats model.BatchStats
	var recErrs []model.RecordError

	for i := range records {
		rec := &records[i]
		stats.Processed++

		err := r.resolveRecord(ctx, q, rec, &stats)
		if err == nil {
			stats.Success++
			if err := r.markProcessed(ctx, q, rec); err != nil {
				return stats, recErrs, err
			}
			continue
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			stats.Errors++
			recErrs = append(recErrs, model.RecordError{
				Program:  rec.Program,
				RecordID: rec.ID,
				Reason:   verr.Reason,
			})
			r.log.Warn("record rejected",
				zap.String("program", string(rec.Program)),
				zap.Int64("record_id", rec.ID),
				zap.String("reason", verr.Reason))
			if err := r.markError(ctx, q, rec, verr.Reason); err != nil {
				return stats, recErrs, err
			}
			continue
		}

		return stats, recErrs, err
	}

	return stats, recErrs, nil
}

func (r *Resolver) resolveRecord(ctx context.Context, q db.Querier, rec *model.StagingRecord, stats *model.BatchStats) error {
	cedula := NormalizeCedula(rec.Cedula)
	if cedula == "" {
		return &ValidationError{Reason: "cedula faltante"}
	}

	dirID, err := r.resolveAddress(ctx, q, rec, stats)
	if err != nil {
		return err
	}

	benID, err := r.resolveBeneficiary(ctx, q, rec, cedula, dirID, stats)
	if err != nil {
		return err
	}

	if err := r.resolveAssociation(ctx, q, rec, benID, stats); err != nil {
		return err
	}

	cropID, err := r.resolveCropType(ctx, q, rec, stats)
	if err != nil {
		return err
	}

	return r.insertBenefit(ctx, q, rec, benID, cropID, stats)
}

// resolveAddress returns nil when the record carries no location at all.
func (r *Resolver) resolveAddress(ctx context.Context, q db.Querier, rec *model.StagingRecord, stats *model.BatchStats) (*int64, error) {
	addr := model.Address{
		Canton:    CleanText(rec.Canton),
		Parroquia: CleanText(rec.Parroquia),
		Sector:    CleanText(rec.Sector),
		CoordX:    CleanText(rec.CoordX),
		CoordY:    CleanText(rec.CoordY),
	}
	if addr.Canton == "" && addr.Parroquia == "" && addr.Sector == "" && addr.CoordX == "" && addr.CoordY == "" {
		return nil, nil
	}

	var id int64
	err := q.QueryRow(ctx,
		`SELECT id FROM operational.direccion
		 WHERE canton = $1 AND parroquia = $2 AND sector = $3 AND coord_x = $4 AND coord_y = $5`,
		addr.Canton, addr.Parroquia, addr.Sector, addr.CoordX, addr.CoordY,
	).Scan(&id)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "resolve: select direccion")
	}

	err = q.QueryRow(ctx,
		`INSERT INTO operational.direccion (canton, parroquia, sector, coord_x, coord_y)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT uq_direccion DO NOTHING
		 RETURNING id`,
		addr.Canton, addr.Parroquia, addr.Sector, addr.CoordX, addr.CoordY,
	).Scan(&id)
	if err == nil {
		stats.Direcciones++
		return &id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "resolve: insert direccion")
	}

	// Concurrent insert won the race; fetch the surviving row.
	err = q.QueryRow(ctx,
		`SELECT id FROM operational.direccion
		 WHERE canton = $1 AND parroquia = $2 AND sector = $3 AND coord_x = $4 AND coord_y = $5`,
		addr.Canton, addr.Parroquia, addr.Sector, addr.CoordX, addr.CoordY,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: reselect direccion")
	}
	return &id, nil
}

func (r *Resolver) resolveBeneficiary(ctx context.Context, q db.Querier, rec *model.StagingRecord, cedula string, dirID *int64, stats *model.BatchStats) (int64, error) {
	ben := model.Beneficiary{
		Cedula:           cedula,
		NombresCompletos: CleanText(rec.NombresCompletos),
		Telefono:         CleanText(rec.Telefono),
		Genero:           NormalizeName(rec.Genero),
		FechaNacimiento:  model.BirthDateFromAge(rec.Edad, rec.Anio),
		DireccionID:      dirID,
	}

	var existingDir *int64
	err := q.QueryRow(ctx,
		`SELECT id, direccion_id FROM operational.beneficiario WHERE cedula = $1`,
		ben.Cedula,
	).Scan(&ben.ID, &existingDir)
	if err == nil {
		// Backfill the address when an earlier record arrived without one.
		if existingDir == nil && dirID != nil {
			if _, err := q.Exec(ctx,
				`UPDATE operational.beneficiario SET direccion_id = $1 WHERE id = $2`,
				*dirID, ben.ID,
			); err != nil {
				return 0, eris.Wrap(err, "resolve: backfill direccion")
			}
		}
		return ben.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrap(err, "resolve: select beneficiario")
	}

	err = q.QueryRow(ctx,
		`INSERT INTO operational.beneficiario
		     (cedula, nombres_completos, telefono, genero, fecha_nacimiento, direccion_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cedula) DO NOTHING
		 RETURNING id`,
		ben.Cedula, ben.NombresCompletos, ben.Telefono, ben.Genero,
		ben.FechaNacimiento, ben.DireccionID,
	).Scan(&ben.ID)
	if err == nil {
		stats.Beneficiarios++
		return ben.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrap(err, "resolve: insert beneficiario")
	}

	err = q.QueryRow(ctx,
		`SELECT id FROM operational.beneficiario WHERE cedula = $1`, ben.Cedula,
	).Scan(&ben.ID)
	if err != nil {
		return 0, eris.Wrap(err, "resolve: reselect beneficiario")
	}
	return ben.ID, nil
}

func (r *Resolver) resolveAssociation(ctx context.Context, q db.Querier, rec *model.StagingRecord, benID int64, stats *model.BatchStats) error {
	asoc := model.Association{Nombre: NormalizeName(rec.Organizacion)}
	if asoc.Nombre == "" {
		return nil
	}

	err := q.QueryRow(ctx,
		`SELECT id FROM operational.asociacion WHERE nombre = $1`, asoc.Nombre,
	).Scan(&asoc.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = q.QueryRow(ctx,
			`INSERT INTO operational.asociacion (nombre) VALUES ($1)
			 ON CONFLICT (nombre) DO NOTHING
			 RETURNING id`,
			asoc.Nombre,
		).Scan(&asoc.ID)
		if err == nil {
			stats.Asociaciones++
		} else if errors.Is(err, pgx.ErrNoRows) {
			err = q.QueryRow(ctx,
				`SELECT id FROM operational.asociacion WHERE nombre = $1`, asoc.Nombre,
			).Scan(&asoc.ID)
		}
	}
	if err != nil {
		return eris.Wrap(err, "resolve: asociacion")
	}

	if _, err := q.Exec(ctx,
		`INSERT INTO operational.beneficiario_asociacion (beneficiario_id, asociacion_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		benID, asoc.ID,
	); err != nil {
		return eris.Wrap(err, "resolve: link asociacion")
	}
	return nil
}

// resolveCropType returns nil when the record names no crop.
func (r *Resolver) resolveCropType(ctx context.Context, q db.Querier, rec *model.StagingRecord, stats *model.BatchStats) (*int64, error) {
	crop := model.CropType{Nombre: r.catalog.Canonical(rec.Cultivo)}
	if crop.Nombre == "" {
		if rec.Program != model.ProgramPlantas {
			return nil, nil
		}
		crop.Nombre = defaultPlantCrop
	}

	err := q.QueryRow(ctx,
		`SELECT id FROM operational.tipo_cultivo WHERE nombre = $1`, crop.Nombre,
	).Scan(&crop.ID)
	if err == nil {
		return &crop.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "resolve: select tipo_cultivo")
	}

	err = q.QueryRow(ctx,
		`INSERT INTO operational.tipo_cultivo (nombre) VALUES ($1)
		 ON CONFLICT (nombre) DO NOTHING
		 RETURNING id`,
		crop.Nombre,
	).Scan(&crop.ID)
	if err == nil {
		stats.TiposCultivo++
		return &crop.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "resolve: insert tipo_cultivo")
	}

	err = q.QueryRow(ctx,
		`SELECT id FROM operational.tipo_cultivo WHERE nombre = $1`, crop.Nombre,
	).Scan(&crop.ID)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: reselect tipo_cultivo")
	}
	return &crop.ID, nil
}

func (r *Resolver) insertBenefit(ctx context.Context, q db.Querier, rec *model.StagingRecord, benID int64, cropID *int64, stats *model.BatchStats) error {
	b := model.Benefit{
		Program:        rec.Program,
		BeneficiarioID: benID,
		TipoCultivoID:  cropID,
		FechaEntrega:   rec.FechaEntrega,
		Monto:          rec.Monto,
		Hectareas:      rec.Hectareas,
		LugarEntrega:   CleanText(rec.LugarEntrega),
		Observaciones:  CleanText(rec.Observacion),
		Anio:           rec.Anio,
		Payload:        benefitPayload(rec),
	}
	if b.Payload == nil {
		return eris.Errorf("resolve: unknown program %q", rec.Program)
	}

	err := q.QueryRow(ctx,
		`INSERT INTO operational.beneficio
		     (tipo, beneficiario_id, tipo_cultivo_id, fecha_entrega, monto, hectareas, lugar_entrega, observaciones, anio)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		string(b.Payload.Program()), b.BeneficiarioID, b.TipoCultivoID, b.FechaEntrega,
		b.Monto, b.Hectareas, b.LugarEntrega, b.Observaciones, b.Anio,
	).Scan(&b.ID)
	if err != nil {
		return eris.Wrap(err, "resolve: insert beneficio")
	}

	if err := r.insertSubtype(ctx, q, &b); err != nil {
		return err
	}

	stats.Beneficios++
	return nil
}

// benefitPayload returns the record's program payload, substituting an empty
// variant when the extract carried none.
func benefitPayload(rec *model.StagingRecord) model.BenefitPayload {
	switch rec.Program {
	case model.ProgramSemillas:
		if rec.Semillas != nil {
			return rec.Semillas
		}
		return &model.SemillasFields{}
	case model.ProgramFertilizantes:
		if rec.Fertilizantes != nil {
			return rec.Fertilizantes
		}
		return &model.FertilizantesFields{}
	case model.ProgramMecanizacion:
		if rec.Mecanizacion != nil {
			return rec.Mecanizacion
		}
		return &model.MecanizacionFields{}
	case model.ProgramPlantas:
		if rec.Plantas != nil {
			return rec.Plantas
		}
		return &model.PlantasFields{}
	default:
		return nil
	}
}

func (r *Resolver) insertSubtype(ctx context.Context, q db.Querier, b *model.Benefit) error {
	var err error
	switch p := b.Payload.(type) {
	case *model.SemillasFields:
		_, err = q.Exec(ctx,
			`INSERT INTO operational.beneficio_semillas
			     (beneficio_id, numero_acta, variedad, entrega, responsable_agencia, cedula_responsable)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			b.ID, CleanText(p.NumeroActa), NormalizeName(p.Variedad), p.Entrega,
			CleanText(p.ResponsableAgencia), NormalizeCedula(p.CedulaResponsable),
		)
	case *model.FertilizantesFields:
		_, err = q.Exec(ctx,
			`INSERT INTO operational.beneficio_fertilizantes
			     (beneficio_id, nitrogenado, npk, organico_foliar, precio_kit)
			 VALUES ($1, $2, $3, $4, $5)`,
			b.ID, p.Nitrogenado, p.NPK, p.OrganicoFoliar, p.PrecioKit,
		)
	case *model.MecanizacionFields:
		_, err = q.Exec(ctx,
			`INSERT INTO operational.beneficio_mecanizacion
			     (beneficio_id, estado, cu_ha, inversion, agrupacion)
			 VALUES ($1, $2, $3, $4, $5)`,
			b.ID, NormalizeName(p.Estado), p.CuHa, p.Inversion, CleanText(p.Agrupacion),
		)
	case *model.PlantasFields:
		_, err = q.Exec(ctx,
			`INSERT INTO operational.beneficio_plantas
			     (beneficio_id, actas, contratista, cedula_contratista, entrega, precio_unitario, rubro)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, CleanText(p.Actas), CleanText(p.Contratista),
			NormalizeCedula(p.CedulaContratista), p.Entrega, p.PrecioUnitario, CleanText(p.Rubro),
		)
	default:
		return eris.Errorf("resolve: unknown payload for program %q", b.Program)
	}
	if err != nil {
		return eris.Wrapf(err, "resolve: insert %s subtype", b.Program)
	}
	return nil
}

func (r *Resolver) markProcessed(ctx context.Context, q db.Querier, rec *model.StagingRecord) error {
	sql := fmt.Sprintf(
		"UPDATE %s SET processed = TRUE, error_message = NULL WHERE id = $1",
		rec.Program.StagingTable(),
	)
	if _, err := q.Exec(ctx, sql, rec.ID); err != nil {
		return eris.Wrapf(err, "resolve: mark processed %d", rec.ID)
	}
	return nil
}

func (r *Resolver) markError(ctx context.Context, q db.Querier, rec *model.StagingRecord, reason string) error {
	if len(reason) > maxErrorLen {
		reason = reason[:maxErrorLen]
	}
	sql := fmt.Sprintf(
		"UPDATE %s SET processed = TRUE, error_message = $1 WHERE id = $2",
		rec.Program.StagingTable(),
	)
	if _, err := q.Exec(ctx, sql, reason, rec.ID); err != nil {
		return eris.Wrapf(err, "resolve: mark error %d", rec.ID)
	}
	return nil
}
