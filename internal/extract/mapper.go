package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agroproductivo/etl-cli/internal/model"
)

// Staging columns loaded per program, matching the staging table layout.
// The id, processed, error_message, and created_at columns take their
// defaults.
var commonStagingCols = []string{
	"cedula", "nombres_completos", "telefono", "genero", "edad",
	"canton", "parroquia", "sector", "coord_x", "coord_y",
	"organizacion", "cultivo",
	"hectareas", "monto", "fecha_entrega", "lugar_entrega", "observacion", "anio",
}

// StagingColumns returns the COPY column list for a program's staging table.
func StagingColumns(p model.Program) ([]string, error) {
	var payload []string
	switch p {
	case model.ProgramSemillas:
		payload = []string{"numero_acta", "variedad", "entrega", "responsable_agencia", "cedula_responsable"}
	case model.ProgramFertilizantes:
		payload = []string{"nitrogenado", "npk", "organico_foliar", "precio_kit"}
	case model.ProgramMecanizacion:
		payload = []string{"estado", "cu_ha", "inversion", "agrupacion"}
	case model.ProgramPlantas:
		payload = []string{"actas", "contratista", "cedula_contratista", "entrega", "precio_unitario", "rubro"}
	default:
		return nil, eris.Errorf("extract: unknown program %q", p)
	}
	return append(append([]string{}, commonStagingCols...), payload...), nil
}

// StagingRow converts a decoded file row into COPY values for a program.
// Unparseable numbers and dates load as NULL; the raw text that matters for
// resolution is kept verbatim.
func StagingRow(p model.Program, r fileRow) ([]any, error) {
	row := []any{
		strings.TrimSpace(r.Cedula),
		strings.TrimSpace(r.NombresCompletos),
		strings.TrimSpace(r.Telefono),
		strings.TrimSpace(r.Genero),
		parseIntPtr(r.Edad),
		strings.TrimSpace(r.Canton),
		strings.TrimSpace(r.Parroquia),
		strings.TrimSpace(r.Sector),
		strings.TrimSpace(r.CoordX),
		strings.TrimSpace(r.CoordY),
		strings.TrimSpace(r.Organizacion),
		strings.TrimSpace(r.Cultivo),
		parseFloatPtr(r.Hectareas),
		parseFloatPtr(r.Monto),
		parseDatePtr(r.FechaEntrega),
		strings.TrimSpace(r.LugarEntrega),
		strings.TrimSpace(r.Observacion),
		parseIntPtr(r.Anio),
	}

	switch p {
	case model.ProgramSemillas:
		row = append(row,
			strings.TrimSpace(r.NumeroActa),
			strings.TrimSpace(r.Variedad),
			parseIntPtr(r.Entrega),
			strings.TrimSpace(r.ResponsableAgencia),
			strings.TrimSpace(r.CedulaResponsable),
		)
	case model.ProgramFertilizantes:
		row = append(row,
			parseIntPtr(r.Nitrogenado),
			parseIntPtr(r.NPK),
			parseIntPtr(r.OrganicoFoliar),
			parseFloatPtr(r.PrecioKit),
		)
	case model.ProgramMecanizacion:
		row = append(row,
			strings.TrimSpace(r.Estado),
			parseFloatPtr(r.CuHa),
			parseFloatPtr(r.Inversion),
			strings.TrimSpace(r.Agrupacion),
		)
	case model.ProgramPlantas:
		row = append(row,
			strings.TrimSpace(r.Actas),
			strings.TrimSpace(r.Contratista),
			strings.TrimSpace(r.CedulaContratista),
			parseIntPtr(r.Entrega),
			parseFloatPtr(r.PrecioUnitario),
			strings.TrimSpace(r.Rubro),
		)
	default:
		return nil, eris.Errorf("extract: unknown program %q", p)
	}
	return row, nil
}

func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Workbooks often carry integers as "12.0".
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		v := int(f)
		return &v
	}
	return nil
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	// Comma decimals ("1,5") appear in older extracts.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"01-02-06", // xlsx short date rendering
}

func parseDatePtr(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
