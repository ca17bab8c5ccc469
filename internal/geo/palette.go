package geo

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultColor is used for types of work missing from the palette.
const DefaultColor = "blue"

//go:embed palette.yaml
var defaultPaletteYAML []byte

// PaletteEntry maps one type of work to its short label and marker color.
type PaletteEntry struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`
}

// Palette colors markers by type of work.
type Palette struct {
	Default string         `yaml:"default" json:"default"`
	Types   []PaletteEntry `yaml:"types" json:"types"`

	byName  map[string]int
	byLabel map[string]int
}

// DefaultPalette returns the embedded palette.
func DefaultPalette() *Palette {
	p, err := ParsePalette(defaultPaletteYAML)
	if err != nil {
		panic(err) // embedded asset
	}
	return p
}

// LoadPalette reads a palette file. An empty path yields the embedded palette.
func LoadPalette(path string) (*Palette, error) {
	if path == "" {
		return DefaultPalette(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read palette %s", path)
	}
	p, err := ParsePalette(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: palette %s", path)
	}
	return p, nil
}

// ParsePalette decodes palette YAML.
func ParsePalette(data []byte) (*Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "geo: parse palette")
	}
	if strings.TrimSpace(p.Default) == "" {
		p.Default = DefaultColor
	}
	p.byName = make(map[string]int, len(p.Types))
	p.byLabel = make(map[string]int, len(p.Types))
	for i, e := range p.Types {
		if e.Name == "" || e.Color == "" {
			return nil, eris.Errorf("geo: palette entry %d needs name and color", i)
		}
		if _, dup := p.byName[e.Name]; dup {
			return nil, eris.Errorf("geo: duplicate palette entry %q", e.Name)
		}
		p.byName[e.Name] = i
		if e.Label != "" {
			p.byLabel[e.Label] = i
		}
	}
	return &p, nil
}

// Color returns the marker color for a type of work.
func (p *Palette) Color(typeOfWork string) string {
	if i, ok := p.byName[typeOfWork]; ok {
		return p.Types[i].Color
	}
	return p.Default
}

// NameForLabel resolves a short label to the full type-of-work name.
func (p *Palette) NameForLabel(label string) (string, bool) {
	i, ok := p.byLabel[label]
	if !ok {
		return "", false
	}
	return p.Types[i].Name, true
}

// Legend lists the palette entries in file order.
func (p *Palette) Legend() []PaletteEntry {
	out := make([]PaletteEntry, len(p.Types))
	copy(out, p.Types)
	return out
}
