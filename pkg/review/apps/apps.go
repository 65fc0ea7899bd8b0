// Package apps holds the per-application resolution and filter policies.
// Adding an application is one registry entry plus one policy file.
package apps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

var registry = map[string]func() review.App{
	"great-plains":   func() review.App { return &GreatPlains{} },
	"defi-los":       func() review.App { return &DefiLOS{} },
	"defi-servicing": func() review.App { return &DefiServicing{} },
	"defi-xlos":      func() review.App { return &DefiXLOS{} },
}

// New returns a fresh App for the given application type.
func New(name string) (review.App, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, &review.ConfigurationError{
			Reason: fmt.Sprintf("unknown application type %q (known: %s)", name, strings.Join(Names(), ", ")),
		}
	}
	return factory(), nil
}

// Names lists the registered application types, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// header resolves column names case-insensitively and remembers positions.
type header struct {
	columns []string
	index   map[string]int
}

func bindHeader(columns []string, required ...string) (*header, error) {
	h := &header{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, seen := h.index[key]; !seen {
			h.index[key] = i
		}
	}

	var missing []string
	for _, c := range required {
		if _, ok := h.index[strings.ToLower(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &review.StructuralError{Columns: missing}
	}
	return h, nil
}

// column returns the source header spelling for a case-insensitive name, or
// "" when the column is absent.
func (h *header) column(name string) string {
	i, ok := h.index[strings.ToLower(name)]
	if !ok {
		return ""
	}
	return h.columns[i]
}

// at returns the header name at a position, for the index-addressed columns
// some exports use ("column J"), or "" when out of range.
func (h *header) at(i int) string {
	if h == nil || i < 0 || i >= len(h.columns) {
		return ""
	}
	return h.columns[i]
}

// get reads a trimmed cell by case-insensitive column name.
func (h *header) get(row review.Row, name string) string {
	col := h.column(name)
	if col == "" {
		return ""
	}
	return strings.TrimSpace(row[col])
}
