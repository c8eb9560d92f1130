package model

import "time"

// Address is a deduplicated geographic location. Natural key: the exact
// (canton, parroquia, sector, coord_x, coord_y) tuple. No update path —
// a differing tuple is a new address.
type Address struct {
	ID        int64
	Canton    string
	Parroquia string
	Sector    string
	CoordX    string
	CoordY    string
}

// Beneficiary is a person receiving benefits, keyed by national ID.
type Beneficiary struct {
	ID               int64
	Cedula           string
	NombresCompletos string
	Telefono         string
	Genero           string
	FechaNacimiento  *time.Time
	DireccionID      *int64
}

// BirthDateFromAge derives an approximate birth date (Jan 1) from the
// beneficiary's reported age and the benefit year. Returns nil when
// either is missing.
func BirthDateFromAge(edad, anio *int) *time.Time {
	if edad == nil || anio == nil {
		return nil
	}
	t := time.Date(*anio-*edad, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// Association is a producer organization, unique by trimmed name.
type Association struct {
	ID     int64
	Nombre string
}

// CropType is a catalog entry for a crop, unique by normalized name
// (trimmed, upper-cased, accents folded).
type CropType struct {
	ID     int64
	Nombre string
}
