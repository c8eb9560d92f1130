package resolve

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/agroproductivo/etl-cli/internal/model"
)

// Columns shared by every staging table. Nullable text comes back as ''
// so the resolver never deals with string pointers.
const stagingCommonCols = `id,
	COALESCE(cedula, ''), COALESCE(nombres_completos, ''), COALESCE(telefono, ''), COALESCE(genero, ''), edad,
	COALESCE(canton, ''), COALESCE(parroquia, ''), COALESCE(sector, ''), COALESCE(coord_x, ''), COALESCE(coord_y, ''),
	COALESCE(organizacion, ''), COALESCE(cultivo, ''),
	hectareas, monto, fecha_entrega, COALESCE(lugar_entrega, ''), COALESCE(observacion, ''), anio`

// FetchPending reads up to limit unprocessed staging rows for a program,
// oldest first. Rows already bookmarked (processed = true) are never
// returned, which is what makes re-running the resolver idempotent.
func FetchPending(ctx context.Context, q db.Querier, program model.Program, limit int) ([]model.StagingRecord, error) {
	var payloadCols string
	switch program {
	case model.ProgramSemillas:
		payloadCols = `COALESCE(numero_acta, ''), COALESCE(variedad, ''), entrega,
			COALESCE(responsable_agencia, ''), COALESCE(cedula_responsable, '')`
	case model.ProgramFertilizantes:
		payloadCols = `nitrogenado, npk, organico_foliar, precio_kit`
	case model.ProgramMecanizacion:
		payloadCols = `COALESCE(estado, ''), cu_ha, inversion, COALESCE(agrupacion, '')`
	case model.ProgramPlantas:
		payloadCols = `COALESCE(actas, ''), COALESCE(contratista, ''), COALESCE(cedula_contratista, ''),
			entrega, precio_unitario, COALESCE(rubro, '')`
	default:
		return nil, eris.Errorf("resolve: unknown program %q", program)
	}

	sql := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE NOT processed ORDER BY id LIMIT $1",
		stagingCommonCols, payloadCols, program.StagingTable(),
	)

	rows, err := q.Query(ctx, sql, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: fetch pending %s", program)
	}
	defer rows.Close()

	var records []model.StagingRecord
	for rows.Next() {
		rec := model.StagingRecord{Program: program}
		common := []any{
			&rec.ID,
			&rec.Cedula, &rec.NombresCompletos, &rec.Telefono, &rec.Genero, &rec.Edad,
			&rec.Canton, &rec.Parroquia, &rec.Sector, &rec.CoordX, &rec.CoordY,
			&rec.Organizacion, &rec.Cultivo,
			&rec.Hectareas, &rec.Monto, &rec.FechaEntrega, &rec.LugarEntrega, &rec.Observacion, &rec.Anio,
		}

		var dest []any
		switch program {
		case model.ProgramSemillas:
			p := &model.SemillasFields{}
			rec.Semillas = p
			dest = append(common, &p.NumeroActa, &p.Variedad, &p.Entrega, &p.ResponsableAgencia, &p.CedulaResponsable)
		case model.ProgramFertilizantes:
			p := &model.FertilizantesFields{}
			rec.Fertilizantes = p
			dest = append(common, &p.Nitrogenado, &p.NPK, &p.OrganicoFoliar, &p.PrecioKit)
		case model.ProgramMecanizacion:
			p := &model.MecanizacionFields{}
			rec.Mecanizacion = p
			dest = append(common, &p.Estado, &p.CuHa, &p.Inversion, &p.Agrupacion)
		case model.ProgramPlantas:
			p := &model.PlantasFields{}
			rec.Plantas = p
			dest = append(common, &p.Actas, &p.Contratista, &p.CedulaContratista, &p.Entrega, &p.PrecioUnitario, &p.Rubro)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrapf(err, "resolve: scan %s row", program)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
