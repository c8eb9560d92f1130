package extract

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fileRow mirrors one extract row. The csv tags match the column headers the
// program workbooks use after normalization; columns a file does not carry
// stay empty. All fields are raw strings, coercion happens in the mapper.
type fileRow struct {
	Cedula           string `csv:"CEDULA"`
	NombresCompletos string `csv:"NOMBRES_COMPLETOS"`
	Telefono         string `csv:"TELEFONO"`
	Genero           string `csv:"GENERO"`
	Edad             string `csv:"EDAD"`
	Canton           string `csv:"CANTON"`
	Parroquia        string `csv:"PARROQUIA"`
	Sector           string `csv:"SECTOR"`
	CoordX           string `csv:"COORD_X"`
	CoordY           string `csv:"COORD_Y"`
	Organizacion     string `csv:"ORGANIZACION"`
	Cultivo          string `csv:"CULTIVO"`
	Hectareas        string `csv:"HECTAREAS"`
	Monto            string `csv:"MONTO"`
	FechaEntrega     string `csv:"FECHA_ENTREGA"`
	LugarEntrega     string `csv:"LUGAR_ENTREGA"`
	Observacion      string `csv:"OBSERVACION"`
	Anio             string `csv:"ANIO"`

	// Seeds
	NumeroActa         string `csv:"NUMERO_ACTA"`
	Variedad           string `csv:"VARIEDAD"`
	Entrega            string `csv:"ENTREGA"`
	ResponsableAgencia string `csv:"RESPONSABLE_AGENCIA"`
	CedulaResponsable  string `csv:"CEDULA_RESPONSABLE"`

	// Fertilizer kits
	Nitrogenado    string `csv:"NITROGENADO"`
	NPK            string `csv:"NPK"`
	OrganicoFoliar string `csv:"ORGANICO_FOLIAR"`
	PrecioKit      string `csv:"PRECIO_KIT"`

	// Mechanization
	Estado     string `csv:"ESTADO"`
	CuHa       string `csv:"CU_HA"`
	Inversion  string `csv:"INVERSION"`
	Agrupacion string `csv:"AGRUPACION"`

	// Plant kits
	Actas             string `csv:"ACTAS"`
	Contratista       string `csv:"CONTRATISTA"`
	CedulaContratista string `csv:"CEDULA_CONTRATISTA"`
	PrecioUnitario    string `csv:"PRECIO_UNITARIO"`
	Rubro             string `csv:"RUBRO"`
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeader maps raw header cells onto the csv tag vocabulary: trim,
// uppercase, fold accents, and join words with underscores ("Fecha de
// Entrega" → "FECHA_DE_ENTREGA" → alias → "FECHA_ENTREGA").
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		folded, _, err := transform.String(foldAccents, strings.ToUpper(h))
		if err != nil {
			folded = strings.ToUpper(h)
		}
		key := strings.Join(strings.Fields(folded), "_")
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		out[i] = key
	}
	return out
}

// headerAliases absorbs the spelling drift between yearly workbooks.
var headerAliases = map[string]string{
	"CEDULA_BENEFICIARIO":  "CEDULA",
	"NO._CEDULA":           "CEDULA",
	"NOMBRES_Y_APELLIDOS":  "NOMBRES_COMPLETOS",
	"BENEFICIARIO":         "NOMBRES_COMPLETOS",
	"CELULAR":              "TELEFONO",
	"SEXO":                 "GENERO",
	"X":                    "COORD_X",
	"Y":                    "COORD_Y",
	"COORDENADA_X":         "COORD_X",
	"COORDENADA_Y":         "COORD_Y",
	"ASOCIACION":           "ORGANIZACION",
	"RUBRO_CULTIVO":        "CULTIVO",
	"HAS":                  "HECTAREAS",
	"HECTAREAS_SEMBRADAS":  "HECTAREAS",
	"MONTO_USD":            "MONTO",
	"FECHA_DE_ENTREGA":     "FECHA_ENTREGA",
	"LUGAR_DE_ENTREGA":     "LUGAR_ENTREGA",
	"OBSERVACIONES":        "OBSERVACION",
	"ANO":                  "ANIO",
	"NO._ACTA":             "NUMERO_ACTA",
	"KITS_ENTREGADOS":      "ENTREGA",
	"PLANTAS_ENTREGADAS":   "ENTREGA",
	"ABONO_ORGANICO":       "ORGANICO_FOLIAR",
	"COSTO_UNITARIO_HA":    "CU_HA",
	"PRECIO_POR_PLANTA":    "PRECIO_UNITARIO",
}

// sliceReader adapts in-memory rows to csvutil's Reader interface so XLSX
// sheets and CSV files decode through the same tags.
type sliceReader struct {
	rows [][]string
	i    int
}

func (r *sliceReader) Read() ([]string, error) {
	if r.i >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.i]
	r.i++
	return row, nil
}

// decodeRows decodes raw rows into fileRows using the normalized header.
// Ragged rows are padded or truncated to the header width first.
func decodeRows(header []string, rows [][]string) ([]fileRow, error) {
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row[:len(header)]
	}

	dec, err := csvutil.NewDecoder(&sliceReader{rows: rows}, normalizeHeader(header)...)
	if err != nil {
		return nil, eris.Wrap(err, "extract: build decoder")
	}

	var out []fileRow
	for {
		var row fileRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "extract: decode row")
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadCSV reads a delimited file and returns its rows decoded through the
// same header vocabulary as the workbooks.
func ReadCSV(path string) ([]fileRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: open csv %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read csv %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("extract: csv %s is empty", path)
	}

	return decodeRows(records[0], records[1:])
}
