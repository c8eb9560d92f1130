// Package model defines the domain types shared across the ETL pipeline:
// staging records, operational entities, the benefit variant type, and
// run reporting structures.
package model

import "github.com/rotisserie/eris"

// Program identifies a benefit-distribution program. The value doubles as
// the tipo_beneficio discriminator persisted on operational.beneficio and
// on the fact table.
type Program string

const (
	ProgramSemillas      Program = "SEMILLAS"
	ProgramFertilizantes Program = "FERTILIZANTES"
	ProgramMecanizacion  Program = "MECANIZACION"
	ProgramPlantas       Program = "PLANTAS"
)

// AllPrograms lists every program in pipeline processing order.
var AllPrograms = []Program{ProgramSemillas, ProgramFertilizantes, ProgramMecanizacion, ProgramPlantas}

// StagingTable returns the staging table fed by this program's extracts.
func (p Program) StagingTable() string {
	switch p {
	case ProgramSemillas:
		return "staging.stg_semillas"
	case ProgramFertilizantes:
		return "staging.stg_fertilizantes"
	case ProgramMecanizacion:
		return "staging.stg_mecanizacion"
	case ProgramPlantas:
		return "staging.stg_plantas"
	default:
		return ""
	}
}

// SubtypeTable returns the operational subtype table sharing the benefit PK.
func (p Program) SubtypeTable() string {
	switch p {
	case ProgramSemillas:
		return "operational.beneficio_semillas"
	case ProgramFertilizantes:
		return "operational.beneficio_fertilizantes"
	case ProgramMecanizacion:
		return "operational.beneficio_mecanizacion"
	case ProgramPlantas:
		return "operational.beneficio_plantas"
	default:
		return ""
	}
}

// ParseProgram converts a user-supplied name into a Program.
func ParseProgram(s string) (Program, error) {
	switch s {
	case "semillas", "SEMILLAS":
		return ProgramSemillas, nil
	case "fertilizantes", "FERTILIZANTES":
		return ProgramFertilizantes, nil
	case "mecanizacion", "MECANIZACION":
		return ProgramMecanizacion, nil
	case "plantas", "PLANTAS":
		return ProgramPlantas, nil
	default:
		return "", eris.Errorf("unknown program: %q (valid: semillas, fertilizantes, mecanizacion, plantas)", s)
	}
}
