package listing

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Filter is a conjunction of optional criteria. Nil or empty fields impose no constraint.
type Filter struct {
	Category string   `json:"category,omitempty"`
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	MinBeds  *float64 `json:"minBeds,omitempty"`
	MinBaths *float64 `json:"minBaths,omitempty"`
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f.Category == "" && f.Location == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinBeds == nil && f.MinBaths == nil
}

// Match reports whether r satisfies every criterion. Text criteria are
// case-insensitive substring matches; numeric bounds are inclusive and a
// record without the numeric field never satisfies a bound on it.
func (f Filter) Match(r Record) bool {
	if f.Category != "" && !containsFold(r.Text(AttrCategory), f.Category) {
		return false
	}
	if f.Location != "" && !containsFold(r.Text(AttrLocation), f.Location) {
		return false
	}
	if !atLeast(r, AttrPrice, f.MinPrice) || !atMost(r, AttrPrice, f.MaxPrice) {
		return false
	}
	if !atLeast(r, AttrBedrooms, f.MinBeds) || !atLeast(r, AttrBathrooms, f.MinBaths) {
		return false
	}
	return true
}

// Apply returns the records matching f in their original order. With no
// criteria the input slice is returned unchanged.
func Apply(records []Record, f Filter) []Record {
	if f.IsZero() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseFilter reads criteria from query parameters
// (category, location, minPrice, maxPrice, minBeds, minBaths).
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Location: strings.TrimSpace(q.Get("location")),
	}

	numbers := []struct {
		key string
		dst **float64
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
		{"minBeds", &f.MinBeds},
		{"minBaths", &f.MinBaths},
	}
	for _, n := range numbers {
		raw := strings.TrimSpace(q.Get(n.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			return Filter{}, fmt.Errorf("%s must be a number", n.key)
		}
		*n.dst = &v
	}
	return f, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func atLeast(r Record, key string, bound *float64) bool {
	if bound == nil {
		return true
	}
	v, ok := r.Number(key)
	return ok && v >= *bound
}

func atMost(r Record, key string, bound *float64) bool {
	if bound == nil {
		return true
	}
	v, ok := r.Number(key)
	return ok && v <= *bound
}
