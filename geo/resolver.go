// geo/resolver.go
package geo

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/gewnthar/samsync/models"
)

// Method records which step of the lookup matched.
type Method string

const (
	MethodISO3       Method = "iso3"
	MethodISO2       Method = "iso2"
	MethodName       Method = "name"
	MethodAlias      Method = "alias"
	MethodFuzzy      Method = "fuzzy"
	MethodUnresolved Method = "unresolved"
)

// Resolution is the canonical classification of a raw country value.
type Resolution struct {
	CountryCode string `json:"country_code"`
	Region      string `json:"region"`
	SubRegion   string `json:"sub_region"`
	Resolved    bool   `json:"resolved"`
	Method      Method `json:"method"`
}

var unresolved = Resolution{
	CountryCode: models.UnresolvedCountry,
	Region:      models.Unclassified,
	SubRegion:   models.Unclassified,
	Method:      MethodUnresolved,
}

func resolved(c *Country, m Method) Resolution {
	return Resolution{CountryCode: c.ISO3, Region: c.Region, SubRegion: c.SubRegion, Resolved: true, Method: m}
}

// isoInParens finds codes written like "KENYA (KEN)".
var isoInParens = regexp.MustCompile(`\(([A-Z]{2,4})\)`)

type index struct {
	byISO3  map[string]*Country
	byISO2  map[string]*Country
	byName  map[string]*Country
	byAlias map[string]*Country
	byFuzzy map[string]*Country
}

var (
	tables     *index
	tablesOnce sync.Once
)

func loadIndex() *index {
	tablesOnce.Do(func() {
		idx := &index{
			byISO3:  make(map[string]*Country, len(countries)),
			byISO2:  make(map[string]*Country, len(countries)),
			byName:  make(map[string]*Country, len(countries)),
			byAlias: make(map[string]*Country, len(aliases)),
			byFuzzy: make(map[string]*Country, len(countries)+len(aliases)),
		}
		for i := range countries {
			c := &countries[i]
			idx.byISO3[c.ISO3] = c
			idx.byISO2[c.ISO2] = c
			idx.byName[NormalizeName(c.Name)] = c
			idx.byFuzzy[fuzzyKey(c.Name)] = c
		}
		for alias, iso3 := range aliases {
			c, ok := idx.byISO3[iso3]
			if !ok {
				continue
			}
			idx.byAlias[NormalizeName(alias)] = c
			if _, taken := idx.byFuzzy[fuzzyKey(alias)]; !taken {
				idx.byFuzzy[fuzzyKey(alias)] = c
			}
		}
		tables = idx
	})
	return tables
}

// Resolver maps raw PopCountry values to (country code, region, sub-region).
// It is safe for concurrent use.
type Resolver struct {
	idx    *index
	logger *slog.Logger
	misses sync.Map
}

// NewResolver builds a resolver over the static tables. A nil logger uses slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{idx: loadIndex(), logger: logger.With("component", "resolver")}
}

// Resolve never fails: unknown input yields the UNRESOLVED/UNCLASSIFIED fallback.
func (r *Resolver) Resolve(raw string) Resolution {
	key := NormalizeName(raw)
	if nonValues[key] {
		return unresolved
	}

	if c, ok := r.idx.byISO3[key]; ok {
		return resolved(c, MethodISO3)
	}
	if c, ok := r.idx.byISO2[key]; ok {
		return resolved(c, MethodISO2)
	}
	if c, ok := r.idx.byName[key]; ok {
		return resolved(c, MethodName)
	}
	if c, ok := r.idx.byAlias[key]; ok {
		return resolved(c, MethodAlias)
	}
	if c := r.fuzzy(key); c != nil {
		return resolved(c, MethodFuzzy)
	}

	if _, seen := r.misses.LoadOrStore(raw, struct{}{}); !seen {
		r.logger.Warn("unresolved country", "raw", raw)
	}
	return unresolved
}

func (r *Resolver) fuzzy(key string) *Country {
	if m := isoInParens.FindStringSubmatch(key); m != nil {
		if c := r.code(m[1]); c != nil {
			return c
		}
	}

	fk := fuzzyKey(key)
	if fk == "" {
		return nil
	}
	if c, ok := r.idx.byFuzzy[fk]; ok {
		return c
	}
	if c := r.code(initialism(fk)); c != nil {
		return c
	}

	// "MYANMAR (BURMA)" -> "MYANMAR"
	if i := strings.IndexByte(key, '('); i > 0 {
		if c, ok := r.idx.byFuzzy[fuzzyKey(key[:i])]; ok {
			return c
		}
	}
	return nil
}

func (r *Resolver) code(s string) *Country {
	if s == "" {
		return nil
	}
	if c, ok := r.idx.byISO3[s]; ok {
		return c
	}
	if c, ok := r.idx.byISO2[s]; ok {
		return c
	}
	if c, ok := r.idx.byAlias[s]; ok {
		return c
	}
	return nil
}

// Regions returns the five portfolios in display order.
func Regions() []string {
	return append([]string(nil), regionOrder...)
}

// ValidRegion reports whether name is one of the portfolios.
func ValidRegion(name string) bool {
	for _, r := range regionOrder {
		if r == name {
			return true
		}
	}
	return false
}

// SubRegions lists the sub-regions of region in table order.
func SubRegions(region string) []string {
	var subs []string
	seen := make(map[string]bool)
	for _, c := range countries {
		if c.Region == region && !seen[c.SubRegion] {
			seen[c.SubRegion] = true
			subs = append(subs, c.SubRegion)
		}
	}
	return subs
}

// Countries lists the table entries of a region and sub-region. Empty arguments match everything.
func Countries(region, subRegion string) []Country {
	var out []Country
	for _, c := range countries {
		if (region == "" || c.Region == region) && (subRegion == "" || c.SubRegion == subRegion) {
			out = append(out, c)
		}
	}
	return out
}

// LookupCountry returns the table entry for an ISO3 code.
func LookupCountry(iso3 string) (Country, bool) {
	c, ok := loadIndex().byISO3[NormalizeName(iso3)]
	if !ok {
		return Country{}, false
	}
	return *c, true
}
