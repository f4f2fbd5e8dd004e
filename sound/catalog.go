package sound

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lixenwraith/muffle/parameter"
)

type keywordRule struct {
	tag     Tag
	keyword string
}

// Catalog registers definitions and resolves their tags exactly once
type Catalog struct {
	defs  map[string]*Definition
	rules []keywordRule

	// categoryTags are added to every definition of the category
	categoryTags [categoryCount]Tag
}

// NewCatalog builds a catalog from keyword rules (tag name → path keywords)
// and the categories that propagate through walls by default
func NewCatalog(keywords map[string][]string, propagating []string) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition)}
	var errs []error

	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tag, err := ParseTag(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, kw := range keywords[name] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			c.rules = append(c.rules, keywordRule{tag: tag, keyword: kw})
		}
	}

	for _, name := range propagating {
		cat, err := ParseCategory(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.categoryTags[cat] |= Propagate
	}

	return c, errors.Join(errs...)
}

// Register validates def, resolves tags, fills defaults and stores it
// The returned pointer is shared and must not be mutated
func (c *Catalog) Register(def Definition) (*Definition, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("empty name: %w", ErrInvalid)
	}
	if _, exists := c.defs[def.Name]; exists {
		return nil, fmt.Errorf("%q: %w", def.Name, ErrDuplicate)
	}
	if def.Category < 0 || def.Category >= categoryCount {
		return nil, fmt.Errorf("%q: %w", def.Name, ErrUnknownCategory)
	}
	if def.Path == "" && def.Tone == nil {
		return nil, fmt.Errorf("%q has neither path nor tone: %w", def.Name, ErrInvalid)
	}

	def.Tags |= c.resolve(def.Path) | c.categoryTags[def.Category]

	if def.Range <= 0 {
		def.Range = parameter.DefaultSoundRange
	}
	if def.NearRange <= 0 || def.NearRange > def.Range {
		def.NearRange = min(parameter.DefaultSoundNearRange, def.Range)
	}
	if def.Volume <= 0 {
		def.Volume = 1
	}
	if def.Tags.Has(Loud) && def.LoudStrength <= 0 {
		def.LoudStrength = 1
	}
	if def.LoudGroup == "" {
		def.LoudGroup = def.Name
	}

	stored := def
	c.defs[def.Name] = &stored
	return &stored, nil
}

// resolve matches keyword rules against an asset path
func (c *Catalog) resolve(path string) Tag {
	if path == "" {
		return 0
	}
	lower := strings.ToLower(path)
	var tags Tag
	for _, r := range c.rules {
		if strings.Contains(lower, r.keyword) {
			tags |= r.tag
		}
	}
	return tags
}

// Lookup returns a registered definition
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Len returns the number of definitions
func (c *Catalog) Len() int { return len(c.defs) }

// Names returns registered names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
