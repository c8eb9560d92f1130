package model

import "time"

// StagingRecord is one raw extract row awaiting resolution. Text fields are
// coalesced to "" on read; numeric and date fields keep NULL as nil. The
// extractors coerce types before staging, so the resolver never parses raw
// strings.
type StagingRecord struct {
	ID      int64
	Program Program

	// Beneficiary fields
	Cedula           string
	NombresCompletos string
	Telefono         string
	Genero           string
	Edad             *int

	// Location fields
	Canton    string
	Parroquia string
	Sector    string
	CoordX    string
	CoordY    string

	// Organization and crop
	Organizacion string
	Cultivo      string

	// Common benefit fields
	Hectareas    *float64
	Monto        *float64
	FechaEntrega *time.Time
	LugarEntrega string
	Observacion  string
	Anio         *int

	// Exactly one of these is non-nil, matching Program.
	Semillas      *SemillasFields
	Fertilizantes *FertilizantesFields
	Mecanizacion  *MecanizacionFields
	Plantas       *PlantasFields

	// Processing bookmark
	Processed    bool
	ErrorMessage string
}

// SemillasFields holds the seeds-program payload columns.
type SemillasFields struct {
	NumeroActa         string
	Variedad           string
	Entrega            *int
	ResponsableAgencia string
	CedulaResponsable  string
}

// FertilizantesFields holds the fertilizer-kit payload columns.
type FertilizantesFields struct {
	Nitrogenado    *int
	NPK            *int
	OrganicoFoliar *int
	PrecioKit      *float64
}

// MecanizacionFields holds the mechanization payload columns.
type MecanizacionFields struct {
	Estado     string
	CuHa       *float64
	Inversion  *float64
	Agrupacion string
}

// PlantasFields holds the plant-kit payload columns.
type PlantasFields struct {
	Actas             string
	Contratista       string
	CedulaContratista string
	Entrega           *int
	PrecioUnitario    *float64
	Rubro             string
}
