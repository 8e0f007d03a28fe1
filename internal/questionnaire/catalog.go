package questionnaire

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/feedback.yaml
var defaultCatalogYAML []byte

// Catalog is the ordered set of question pools for a deployment. It is built
// once at startup and shared read-only.
type Catalog struct {
	Pools []Pool `json:"pools" yaml:"pools"`
}

// DefaultCatalog returns the built-in feedback questionnaire.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the default.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questionnaire: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("questionnaire: decode catalog: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize() {
	for i := range c.Pools {
		for j := range c.Pools[i].Questions {
			q := &c.Pools[i].Questions[j]
			if q.Kind == "" {
				q.Kind = KindText
			}
			for k := range q.Options {
				if q.Options[k].Label == "" {
					q.Options[k].Label = q.Options[k].Value
				}
			}
		}
	}
}

// Validate checks catalog-wide invariants: unique pool names and question
// ids, options on choice questions, and conditions that reference a declared
// question.
func (c *Catalog) Validate() error {
	if len(c.Pools) == 0 {
		return ErrEmptyCatalog
	}
	pools := make(map[string]struct{}, len(c.Pools))
	ids := make(map[string]struct{})
	for _, p := range c.Pools {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("questionnaire: pool without name")
		}
		if _, dup := pools[p.Name]; dup {
			return fmt.Errorf("questionnaire: duplicate pool %q", p.Name)
		}
		pools[p.Name] = struct{}{}
		for _, q := range p.Questions {
			if strings.TrimSpace(q.ID) == "" {
				return fmt.Errorf("questionnaire: pool %q has a question without id", p.Name)
			}
			if _, dup := ids[q.ID]; dup {
				return fmt.Errorf("questionnaire: duplicate question id %q", q.ID)
			}
			ids[q.ID] = struct{}{}
			switch q.Kind {
			case KindText:
			case KindChoice:
				if len(q.Options) == 0 {
					return fmt.Errorf("questionnaire: choice question %q has no options", q.ID)
				}
			default:
				return fmt.Errorf("questionnaire: question %q has unknown kind %q", q.ID, q.Kind)
			}
		}
	}
	for _, p := range c.Pools {
		for _, q := range p.Questions {
			if q.When == nil {
				continue
			}
			if _, ok := ids[q.When.DependsOn]; !ok {
				return fmt.Errorf("%w: question %q depends on undeclared %q", ErrInvalidCondition, q.ID, q.When.DependsOn)
			}
			if q.When.DependsOn == q.ID {
				return fmt.Errorf("%w: question %q depends on itself", ErrInvalidCondition, q.ID)
			}
		}
	}
	return nil
}

// Pool returns the named pool.
func (c *Catalog) Pool(name string) (Pool, error) {
	for _, p := range c.Pools {
		if p.Name == name {
			return p, nil
		}
	}
	return Pool{}, fmt.Errorf("%w: %q", ErrUnknownPool, name)
}

// Primary returns the first pool not marked as a follow-up.
func (c *Catalog) Primary() Pool {
	for _, p := range c.Pools {
		if !p.FollowUp {
			return p
		}
	}
	return c.Pools[0]
}

// FollowUp returns the first follow-up pool, if any.
func (c *Catalog) FollowUp() (Pool, bool) {
	for _, p := range c.Pools {
		if p.FollowUp {
			return p, true
		}
	}
	return Pool{}, false
}

// PrimaryPools returns every pool not marked as a follow-up, in catalog order.
func (c *Catalog) PrimaryPools() []Pool {
	var out []Pool
	for _, p := range c.Pools {
		if !p.FollowUp {
			out = append(out, p)
		}
	}
	return out
}
