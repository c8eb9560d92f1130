// Package dimensional projects operational entities into the analytics star
// schema: dimension sync, calendar generation, and fact loading.
package dimensional

import (
	"strings"
	"time"
)

// Bucket label used whenever a classification input is missing.
const noValue = "NO DEFINIDO"

// AgeGroup buckets an age in years for dim_persona.grupo_etario.
func AgeGroup(age int) string {
	switch {
	case age < 0:
		return noValue
	case age < 18:
		return "MENOR"
	case age < 30:
		return "JOVEN"
	case age < 50:
		return "ADULTO"
	case age < 65:
		return "ADULTO MAYOR"
	default:
		return "TERCERA EDAD"
	}
}

// AgeGroupAt derives the age group from a birth date as of a reference time.
// A nil birth date classifies as NO DEFINIDO.
func AgeGroupAt(birth *time.Time, at time.Time) string {
	if birth == nil {
		return noValue
	}
	years := at.Year() - birth.Year()
	if at.YearDay() < birth.YearDay() {
		years--
	}
	return AgeGroup(years)
}

// HectareRange buckets a cultivated area for the fact table.
func HectareRange(hectares *float64) string {
	if hectares == nil {
		return noValue
	}
	switch h := *hectares; {
	case h < 0:
		return noValue
	case h < 1:
		return "MICRO"
	case h <= 5:
		return "PEQUEÑO"
	case h <= 20:
		return "MEDIANO"
	default:
		return "GRANDE"
	}
}

// orgRules classify organization names by substring, first match wins.
var orgRules = []struct {
	contains  []string
	categoria string
}{
	{[]string{"COOPERATIVA", "COOP."}, "COOPERATIVA"},
	{[]string{"ASOCIACION", "ASOC"}, "ASOCIACION"},
	{[]string{"JUNTA"}, "JUNTA"},
	{[]string{"COMUNA"}, "COMUNA"},
	{[]string{"CENTRO AGRICOLA", "CENTRO"}, "CENTRO AGRICOLA"},
	{[]string{"CORPORACION"}, "CORPORACION"},
	{[]string{"FEDERACION"}, "FEDERACION"},
}

// OrgCategory classifies an organization name for dim_organizacion.categoria.
// Names are expected already normalized (upper, accents folded).
func OrgCategory(nombre string) string {
	n := strings.ToUpper(strings.TrimSpace(nombre))
	if n == "" {
		return noValue
	}
	for _, r := range orgRules {
		for _, sub := range r.contains {
			if strings.Contains(n, sub) {
				return r.categoria
			}
		}
	}
	return "OTROS"
}
