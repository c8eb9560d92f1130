package model

import "time"

// Benefit is one benefit event: a common header plus a program-specific
// payload variant. Persisting a Benefit writes the operational.beneficio
// supertype row and the matching subtype row under the same id.
type Benefit struct {
	ID             int64
	Program        Program
	FechaEntrega   *time.Time
	Monto          *float64
	BeneficiarioID int64
	TipoCultivoID  *int64
	Hectareas      *float64
	LugarEntrega   string
	Observaciones  string
	Anio           *int
	Payload        BenefitPayload
}

// BenefitPayload is the program-specific part of a benefit.
type BenefitPayload interface {
	Program() Program
}

// Program implementations for the four payload variants. The staging
// payload structs double as benefit payloads: the subtype tables persist
// the same columns the extracts carry.

func (*SemillasFields) Program() Program      { return ProgramSemillas }
func (*FertilizantesFields) Program() Program { return ProgramFertilizantes }
func (*MecanizacionFields) Program() Program  { return ProgramMecanizacion }
func (*PlantasFields) Program() Program       { return ProgramPlantas }
