package dimensional

import "strings"

// Canton-to-province lookup covering the cantons that appear in the benefit
// extracts. Keys are upper-case without accents, matching how the resolver
// stores canton names.
var cantonProvince = map[string]string{
	// Guayas
	"GUAYAQUIL": "GUAYAS", "DAULE": "GUAYAS", "DURAN": "GUAYAS", "MILAGRO": "GUAYAS",
	"SAMBORONDON": "GUAYAS", "SALITRE": "GUAYAS", "YAGUACHI": "GUAYAS", "NARANJAL": "GUAYAS",
	"BALZAR": "GUAYAS", "COLIMES": "GUAYAS", "EL EMPALME": "GUAYAS", "PEDRO CARBO": "GUAYAS",
	"NOBOL": "GUAYAS", "SANTA LUCIA": "GUAYAS", "PALESTINA": "GUAYAS", "LOMAS DE SARGENTILLO": "GUAYAS",
	"ISIDRO AYORA": "GUAYAS", "ALFREDO BAQUERIZO MORENO": "GUAYAS", "SIMON BOLIVAR": "GUAYAS",
	"NARANJITO": "GUAYAS", "MARCELINO MARIDUENA": "GUAYAS", "EL TRIUNFO": "GUAYAS",
	"GENERAL ANTONIO ELIZALDE": "GUAYAS", "BALAO": "GUAYAS", "PLAYAS": "GUAYAS",
	// Los Rios
	"BABAHOYO": "LOS RIOS", "QUEVEDO": "LOS RIOS", "VENTANAS": "LOS RIOS", "VINCES": "LOS RIOS",
	"BABA": "LOS RIOS", "PUEBLOVIEJO": "LOS RIOS", "URDANETA": "LOS RIOS", "MONTALVO": "LOS RIOS",
	"PALENQUE": "LOS RIOS", "BUENA FE": "LOS RIOS", "VALENCIA": "LOS RIOS", "MOCACHE": "LOS RIOS",
	"QUINSALOMA": "LOS RIOS",
	// Manabi
	"PORTOVIEJO": "MANABI", "MANTA": "MANABI", "CHONE": "MANABI", "JIPIJAPA": "MANABI",
	"EL CARMEN": "MANABI", "BAHIA DE CARAQUEZ": "MANABI", "SUCRE": "MANABI", "ROCAFUERTE": "MANABI",
	"TOSAGUA": "MANABI", "SANTA ANA": "MANABI", "PAJAN": "MANABI", "BOLIVAR": "MANABI",
	"JUNIN": "MANABI", "MONTECRISTI": "MANABI", "FLAVIO ALFARO": "MANABI", "PICHINCHA": "MANABI",
	// El Oro
	"MACHALA": "EL ORO", "PASAJE": "EL ORO", "SANTA ROSA": "EL ORO", "EL GUABO": "EL ORO",
	"ARENILLAS": "EL ORO", "HUAQUILLAS": "EL ORO", "ZARUMA": "EL ORO", "PINAS": "EL ORO",
	// Esmeraldas
	"ESMERALDAS": "ESMERALDAS", "QUININDE": "ESMERALDAS", "ATACAMES": "ESMERALDAS",
	"MUISNE": "ESMERALDAS", "SAN LORENZO": "ESMERALDAS", "ELOY ALFARO": "ESMERALDAS",
	"RIOVERDE": "ESMERALDAS",
	// Santa Elena
	"SANTA ELENA": "SANTA ELENA", "LA LIBERTAD": "SANTA ELENA", "SALINAS": "SANTA ELENA",
	// Santo Domingo
	"SANTO DOMINGO": "SANTO DOMINGO DE LOS TSACHILAS", "LA CONCORDIA": "SANTO DOMINGO DE LOS TSACHILAS",
	// Sierra
	"QUITO": "PICHINCHA", "CAYAMBE": "PICHINCHA", "MEJIA": "PICHINCHA", "RUMINAHUI": "PICHINCHA",
	"PEDRO MONCAYO": "PICHINCHA", "SAN MIGUEL DE LOS BANCOS": "PICHINCHA", "PEDRO VICENTE MALDONADO": "PICHINCHA",
	"CUENCA": "AZUAY", "GUALACEO": "AZUAY", "PAUTE": "AZUAY", "SANTA ISABEL": "AZUAY",
	"LOJA": "LOJA", "CATAMAYO": "LOJA", "PALTAS": "LOJA", "MACARA": "LOJA",
	"AMBATO": "TUNGURAHUA", "PELILEO": "TUNGURAHUA", "PILLARO": "TUNGURAHUA",
	"RIOBAMBA": "CHIMBORAZO", "GUANO": "CHIMBORAZO", "ALAUSI": "CHIMBORAZO", "COLTA": "CHIMBORAZO",
	"LATACUNGA": "COTOPAXI", "LA MANA": "COTOPAXI", "PUJILI": "COTOPAXI", "SALCEDO": "COTOPAXI",
	"GUARANDA": "BOLIVAR", "SAN MIGUEL": "BOLIVAR", "CHILLANES": "BOLIVAR", "ECHEANDIA": "BOLIVAR",
	"AZOGUES": "CANAR", "LA TRONCAL": "CANAR", "CANAR": "CANAR",
	"TULCAN": "CARCHI", "MONTUFAR": "CARCHI", "ESPEJO": "CARCHI",
	"IBARRA": "IMBABURA", "OTAVALO": "IMBABURA", "COTACACHI": "IMBABURA", "ANTONIO ANTE": "IMBABURA",
	// Oriente
	"TENA": "NAPO", "ARCHIDONA": "NAPO", "EL CHACO": "NAPO",
	"FRANCISCO DE ORELLANA": "ORELLANA", "LA JOYA DE LOS SACHAS": "ORELLANA", "LORETO": "ORELLANA",
	"PUYO": "PASTAZA", "PASTAZA": "PASTAZA", "MERA": "PASTAZA",
	"MACAS": "MORONA SANTIAGO", "MORONA": "MORONA SANTIAGO", "GUALAQUIZA": "MORONA SANTIAGO",
	"ZAMORA": "ZAMORA CHINCHIPE", "YANTZAZA": "ZAMORA CHINCHIPE",
	"NUEVA LOJA": "SUCUMBIOS", "LAGO AGRIO": "SUCUMBIOS", "SHUSHUFINDI": "SUCUMBIOS",
	// Insular
	"SAN CRISTOBAL": "GALAPAGOS", "SANTA CRUZ": "GALAPAGOS", "ISABELA": "GALAPAGOS",
}

var provinceRegion = map[string]string{
	"GUAYAS": "COSTA", "LOS RIOS": "COSTA", "MANABI": "COSTA", "EL ORO": "COSTA",
	"ESMERALDAS": "COSTA", "SANTA ELENA": "COSTA", "SANTO DOMINGO DE LOS TSACHILAS": "COSTA",
	"PICHINCHA": "SIERRA", "AZUAY": "SIERRA", "LOJA": "SIERRA", "TUNGURAHUA": "SIERRA",
	"CHIMBORAZO": "SIERRA", "COTOPAXI": "SIERRA", "BOLIVAR": "SIERRA", "CANAR": "SIERRA",
	"CARCHI": "SIERRA", "IMBABURA": "SIERRA",
	"NAPO": "ORIENTE", "ORELLANA": "ORIENTE", "PASTAZA": "ORIENTE",
	"MORONA SANTIAGO": "ORIENTE", "ZAMORA CHINCHIPE": "ORIENTE", "SUCUMBIOS": "ORIENTE",
	"GALAPAGOS": "INSULAR",
}

// Planning zones (Senplades zonal administration).
var provinceZone = map[string]string{
	"ESMERALDAS": "ZONA 1", "CARCHI": "ZONA 1", "IMBABURA": "ZONA 1", "SUCUMBIOS": "ZONA 1",
	"PICHINCHA": "ZONA 2", "NAPO": "ZONA 2", "ORELLANA": "ZONA 2",
	"COTOPAXI": "ZONA 3", "TUNGURAHUA": "ZONA 3", "CHIMBORAZO": "ZONA 3", "PASTAZA": "ZONA 3",
	"MANABI": "ZONA 4", "SANTO DOMINGO DE LOS TSACHILAS": "ZONA 4",
	"SANTA ELENA": "ZONA 5", "GUAYAS": "ZONA 5", "BOLIVAR": "ZONA 5", "LOS RIOS": "ZONA 5",
	"GALAPAGOS": "ZONA 5",
	"AZUAY": "ZONA 6", "CANAR": "ZONA 6", "MORONA SANTIAGO": "ZONA 6",
	"EL ORO": "ZONA 7", "LOJA": "ZONA 7", "ZAMORA CHINCHIPE": "ZONA 7",
}

// Geo holds the derived geographic attributes for dim_ubicacion.
type Geo struct {
	Provincia string
	Zona      string
	Region    string
}

// GeoForCanton derives province, planning zone, and natural region from a
// canton name. Unknown cantons classify as NO DEFINIDO across the board.
func GeoForCanton(canton string) Geo {
	prov, ok := cantonProvince[strings.ToUpper(strings.TrimSpace(canton))]
	if !ok {
		return Geo{Provincia: noValue, Zona: noValue, Region: noValue}
	}
	g := Geo{Provincia: prov, Zona: noValue, Region: noValue}
	if z, ok := provinceZone[prov]; ok {
		g.Zona = z
	}
	if r, ok := provinceRegion[prov]; ok {
		g.Region = r
	}
	return g
}
