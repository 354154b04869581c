package country

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed overrides.yaml
var defaultOverridesYAML []byte

// Overrides is the manual exception table applied to raw country codes
// before resolution.
type Overrides struct {
	// Replace maps a raw cell (compared after trimming) to the code to use.
	Replace map[string]string `yaml:"replace"`
	// Invalid lists codes that are syntactically fine but not real countries.
	Invalid []string `yaml:"invalid"`

	invalid map[string]struct{}
}

// DefaultOverrides returns the built-in exception table.
func DefaultOverrides() *Overrides {
	o, err := ParseOverrides(defaultOverridesYAML)
	if err != nil {
		panic(fmt.Sprintf("country: embedded overrides are invalid: %v", err))
	}
	return o
}

// LoadOverrides reads an exception table from a YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes an exception table.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse country overrides: %w", err)
	}
	for raw, code := range o.Replace {
		if !isAlpha2(strings.ToUpper(strings.TrimSpace(code))) {
			return nil, fmt.Errorf("parse country overrides: replacement for %q is not a two-letter code: %q", raw, code)
		}
	}
	o.index()
	return &o, nil
}

func (o *Overrides) index() {
	o.invalid = make(map[string]struct{}, len(o.Invalid))
	for _, code := range o.Invalid {
		o.invalid[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	if o.Replace == nil {
		o.Replace = map[string]string{}
	}
}

func (o *Overrides) replacement(raw string) (string, bool) {
	code, ok := o.Replace[raw]
	if !ok {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(code)), true
}

func (o *Overrides) isInvalid(code string) bool {
	_, ok := o.invalid[code]
	return ok
}
