// Package registry reads product registry files: gateway product metadata
// kept on disk for local runs and for linting rule definitions.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Wildcard matches any country or currency.
const Wildcard = "*"

type ProductRegistry struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Products    []Product `json:"products"`
}

type Product struct {
	ID                 string          `json:"id"`
	DisplayName        string          `json:"displayName"`
	Countries          []string        `json:"countries"`
	Currencies         []string        `json:"currencies"`
	AllowsRecurring    bool            `json:"allowsRecurring"`
	AllowsTokenization bool            `json:"allowsTokenization"`
	MinAmount          *int64          `json:"minAmount,omitempty"`
	MaxAmount          *int64          `json:"maxAmount,omitempty"`
	Fields             json.RawMessage `json:"fields"`
}

func LoadRegistry(path string) (*ProductRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ProductRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Validate checks the registry's own structure. One id may appear several
// times with different country or currency lists; repeating the same id with
// the same lists is an error. Field definitions are left to the rule parser.
func (r *ProductRegistry) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(r.Products))
	for i, p := range r.Products {
		if strings.TrimSpace(p.ID) == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: id is required", i))
			continue
		}
		variant := p.variantKey()
		if seen[variant] {
			problems = append(problems, fmt.Sprintf("products[%d]: duplicate id %s for countries=%s currencies=%s",
				i, p.ID, joinCodes(p.Countries), joinCodes(p.Currencies)))
		}
		seen[variant] = true

		if len(p.Fields) == 0 {
			problems = append(problems, fmt.Sprintf("product %s: fields are required", p.ID))
		}
		if p.MinAmount != nil && p.MaxAmount != nil && *p.MinAmount > *p.MaxAmount {
			problems = append(problems, fmt.Sprintf("product %s: minAmount %d exceeds maxAmount %d", p.ID, *p.MinAmount, *p.MaxAmount))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid registry: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Find returns the first product with id that is offered in the given
// purchase context.
func (r *ProductRegistry) Find(id, country, currency string, amount int64, recurring bool) (*Product, bool) {
	for i := range r.Products {
		p := &r.Products[i]
		if p.ID != id {
			continue
		}
		if p.Offers(country, currency, amount, recurring) {
			return p, true
		}
	}
	return nil, false
}

// Offers reports whether the product is available in a purchase context.
// Country and currency comparisons are case-sensitive; empty lists and the
// Wildcard entry match anything.
func (p *Product) Offers(country, currency string, amount int64, recurring bool) bool {
	if recurring && !p.AllowsRecurring {
		return false
	}
	if p.MinAmount != nil && amount < *p.MinAmount {
		return false
	}
	if p.MaxAmount != nil && amount > *p.MaxAmount {
		return false
	}
	return matches(p.Countries, country) && matches(p.Currencies, currency)
}

// variantKey identifies a product row by id and its sorted country and
// currency lists. An empty list and the Wildcard entry both mean any.
func (p *Product) variantKey() string {
	return p.ID + "|" + joinCodes(p.Countries) + "|" + joinCodes(p.Currencies)
}

func joinCodes(codes []string) string {
	if len(codes) == 0 {
		return Wildcard
	}
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	for _, c := range sorted {
		if c == Wildcard {
			return Wildcard
		}
	}
	return strings.Join(sorted, ",")
}

func matches(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == Wildcard || a == v {
			return true
		}
	}
	return false
}

// IDs returns the product ids in sorted order without duplicates.
func (r *ProductRegistry) IDs() []string {
	seen := make(map[string]bool, len(r.Products))
	ids := make([]string, 0, len(r.Products))
	for _, p := range r.Products {
		if !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
