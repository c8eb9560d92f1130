// Package cropcat holds the canonical crop vocabulary: catalog entries for
// the dim_cultivo dimension, spelling aliases, and the ordered substring
// rules that classify free-text crop names into reporting categories.
//
// The catalog ships embedded; operators can point extract.crop_catalog at a
// YAML file to extend it without a rebuild.
package cropcat

import (
	_ "embed"
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Entry describes one canonical crop for the dim_cultivo dimension.
type Entry struct {
	Codigo                 string `yaml:"codigo"`
	Nombre                 string `yaml:"nombre"`
	NombreCientifico       string `yaml:"nombre_cientifico"`
	FamiliaBotanica        string `yaml:"familia_botanica"`
	TipoCiclo              string `yaml:"tipo_ciclo"`
	ClasificacionEconomica string `yaml:"clasificacion_economica"`
	UsoPrincipal           string `yaml:"uso_principal"`
	Categoria              string `yaml:"categoria,omitempty"` // reporting category; defaults to Codigo
}

// Rule maps substring patterns to a reporting category. Rules are
// evaluated in order, first match wins.
type Rule struct {
	Contains  []string `yaml:"contains"`
	Categoria string   `yaml:"categoria"`
}

// Catalog is the full crop vocabulary.
type Catalog struct {
	Entries  []Entry           `yaml:"cultivos"`
	Aliases  map[string]string `yaml:"aliases"`
	Rules    []Rule            `yaml:"categorias"`
	Fallback string            `yaml:"categoria_defecto"`

	byCode map[string]*Entry
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalogYAML)
	if err != nil {
		// The embedded catalog is validated by tests; a parse failure here
		// is a build defect.
		panic(err)
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cropcat: read catalog %s", path)
	}
	c, err := parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "cropcat: parse catalog %s", path)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "cropcat: unmarshal")
	}
	if c.Fallback == "" {
		c.Fallback = "OTROS CULTIVOS"
	}
	c.byCode = make(map[string]*Entry, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Categoria == "" {
			e.Categoria = e.Codigo
		}
		c.byCode[e.Codigo] = e
	}
	return &c, nil
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize standardizes a crop name for matching: trim, uppercase, and
// fold accents (MAÍZ → MAIZ, PLÁTANO → PLATANO).
func Normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		return name
	}
	return folded
}

// Canonical resolves a raw crop name to its canonical code: normalize,
// then apply the alias table. Unknown names come back normalized but
// unchanged.
func (c *Catalog) Canonical(name string) string {
	n := Normalize(name)
	if n == "" {
		return ""
	}
	if alias, ok := c.Aliases[n]; ok {
		return alias
	}
	return n
}

// Lookup returns the catalog entry for a raw crop name, if any.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.byCode[c.Canonical(name)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Classify maps a raw crop name to a reporting category: exact canonical
// code first, then the ordered substring rules, then the catch-all.
func (c *Catalog) Classify(name string) string {
	n := c.Canonical(name)
	if n == "" {
		return c.Fallback
	}
	if e, ok := c.byCode[n]; ok {
		return e.Categoria
	}
	for _, r := range c.Rules {
		for _, sub := range r.Contains {
			if strings.Contains(n, sub) {
				return r.Categoria
			}
		}
	}
	return c.Fallback
}
