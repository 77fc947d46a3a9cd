package listing

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abduss/homelist/internal/image"
)

// Well-known attribute keys read by the filter.
const (
	AttrCategory  = "category"
	AttrLocation  = "location"
	AttrPrice     = "price"
	AttrBedrooms  = "bedrooms"
	AttrBathrooms = "bathrooms"
)

// Keys owned by the store; callers can never set them through attributes.
const (
	keyID        = "id"
	keyImages    = "images"
	keyCreatedAt = "createdAt"
	keyUpdatedAt = "updatedAt"
)

var reservedKeys = []string{keyID, keyImages, keyCreatedAt, keyUpdatedAt}

// Record is a persisted property listing. It serializes as one flat JSON
// object: the attributes plus id, images, createdAt and updatedAt.
type Record struct {
	ID         string
	Attributes map[string]any
	Images     []image.Asset
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Patch describes an update. Attributes are shallow-merged over the record;
// Images replace the current list only when ReplaceImages is set.
type Patch struct {
	Attributes    map[string]any
	Images        []image.Asset
	ReplaceImages bool
}

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Attributes)+len(reservedKeys))
	for k, v := range r.Attributes {
		flat[k] = v
	}
	images := r.Images
	if images == nil {
		images = []image.Asset{}
	}
	flat[keyID] = r.ID
	flat[keyImages] = images
	flat[keyCreatedAt] = r.CreatedAt
	flat[keyUpdatedAt] = r.UpdatedAt
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("listing must be a JSON object")
	}

	var out Record
	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &out.ID); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
	}
	if out.ID == "" {
		return fmt.Errorf("listing without id")
	}
	if v, ok := raw[keyImages]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &out.Images); err != nil {
			return fmt.Errorf("decode images of %s: %w", out.ID, err)
		}
	}
	if v, ok := raw[keyCreatedAt]; ok {
		if err := json.Unmarshal(v, &out.CreatedAt); err != nil {
			return fmt.Errorf("decode createdAt of %s: %w", out.ID, err)
		}
	}
	if v, ok := raw[keyUpdatedAt]; ok {
		if err := json.Unmarshal(v, &out.UpdatedAt); err != nil {
			return fmt.Errorf("decode updatedAt of %s: %w", out.ID, err)
		}
	}

	out.Attributes = make(map[string]any, len(raw))
	for k, v := range raw {
		if isReserved(k) {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s of %s: %w", k, out.ID, err)
		}
		out.Attributes[k] = val
	}

	*r = out
	return nil
}

// Text returns a text attribute, or "" when absent or not a string.
func (r Record) Text(key string) string {
	s, _ := r.Attributes[key].(string)
	return s
}

// Number returns a numeric attribute. Numeric strings are accepted.
func (r Record) Number(key string) (float64, bool) {
	return toNumber(r.Attributes[key])
}

func (r Record) clone() Record {
	out := r
	out.Attributes = maps.Clone(r.Attributes)
	out.Images = slices.Clone(r.Images)
	return out
}

// cleanAttributes copies attrs without the store-owned keys.
func cleanAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if isReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// merge applies a patch to rec in place.
func merge(rec *Record, p Patch, now time.Time) {
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]any, len(p.Attributes))
	}
	for k, v := range cleanAttributes(p.Attributes) {
		rec.Attributes[k] = v
	}
	if p.ReplaceImages {
		rec.Images = append([]image.Asset{}, p.Images...)
	}
	rec.UpdatedAt = nextTimestamp(rec.UpdatedAt, now)
}

// nextTimestamp returns now at microsecond precision, bumped past prev if the clock did not advance.
func nextTimestamp(prev, now time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if !ts.After(prev) {
		ts = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return ts
}

func isReserved(key string) bool {
	for _, k := range reservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// toNumber converts v to a finite float64.
func toNumber(v any) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
