package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnspecifiedCategory is the bucket for incidents without a category.
const UnspecifiedCategory = "unspecified"

// HoursPerDay is the number of hour histogram bins.
const HoursPerDay = 24

// DangerSlot is a half-open circular hour range [Start, End). End is the
// first non-critical hour after the run and is less than Start when the run
// spans midnight. {0, 0} means the whole day was critical.
type DangerSlot struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// String formats the slot as "HH:00-HH:00".
func (s DangerSlot) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.Start, s.End)
}

// HourHistogram holds incident counts per hour of day.
type HourHistogram [HoursPerDay]int

// Total returns the sum of all bins.
func (h HourHistogram) Total() int {
	var n int
	for _, c := range h {
		n += c
	}
	return n
}

// MarshalJSON encodes the histogram as an object keyed "0".."23" in hour order.
func (h HourHistogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":%d`, i, c)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by hour. Missing hours stay zero.
func (h *HourHistogram) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode hour histogram: %w", err)
	}
	*h = HourHistogram{}
	for k, v := range m {
		hour, err := strconv.Atoi(k)
		if err != nil || hour < 0 || hour >= HoursPerDay {
			return fmt.Errorf("decode hour histogram: invalid hour %q", k)
		}
		h[hour] = v
	}
	return nil
}

// CategoryCounts counts incidents per category and remembers the order in
// which categories were first seen. The zero value is ready to use.
type CategoryCounts struct {
	keys   []string
	counts map[string]int
}

// Add increments the count for key.
func (c *CategoryCounts) Add(key string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
}

// Get returns the count for key.
func (c CategoryCounts) Get(key string) int {
	return c.counts[key]
}

// Keys returns categories in first-seen order.
func (c CategoryCounts) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of distinct categories.
func (c CategoryCounts) Len() int {
	return len(c.keys)
}

// Total returns the sum of all counts.
func (c CategoryCounts) Total() int {
	var n int
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Dominant returns the category with the highest count. Ties go to the
// category seen first. It returns "" for an empty counter.
func (c CategoryCounts) Dominant() (string, int) {
	var best string
	bestCount := 0
	for _, k := range c.keys {
		if n := c.counts[k]; n > bestCount {
			best, bestCount = k, n
		}
	}
	return best, bestCount
}

// Map returns a copy of the counts as a plain map.
func (c CategoryCounts) Map() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the counts as an object with keys in first-seen order.
func (c CategoryCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.counts[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping the key order of the document.
func (c *CategoryCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode category counts: %w", err)
	}
	if tok == nil {
		*c = CategoryCounts{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode category counts: expected object, got %v", tok)
	}
	*c = CategoryCounts{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode category counts: %w", err)
		}
		key, _ := tok.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("decode category counts: %q: %w", key, err)
		}
		if c.counts == nil {
			c.counts = make(map[string]int)
		}
		if _, ok := c.counts[key]; !ok {
			c.keys = append(c.keys, key)
		}
		c.counts[key] += n
	}
	return nil
}

// Bounds is a bounding box as [min_lng, min_lat, max_lng, max_lat].
type Bounds [4]float64

// RiskZone is one enriched, non-noise cluster.
type RiskZone struct {
	ID               int            `json:"id"`
	Lat              float64        `json:"lat"`
	Lng              float64        `json:"lng"`
	Count            int            `json:"count"`
	DominantCategory string         `json:"dominant_category"`
	CategoryCounts   CategoryCounts `json:"category_counts"`
	HourHistogram    HourHistogram  `json:"hour_histogram"`
	DangerSlots      []DangerSlot   `json:"danger_slots"`
	Bounds           Bounds         `json:"bounds"`
}

// Snapshot is a published analysis of the full incident set.
type Snapshot struct {
	ID            string     `json:"id"`
	GeneratedAt   time.Time  `json:"generated_at"`
	Params        Params     `json:"params"`
	IncidentCount int        `json:"incident_count"`
	NoiseCount    int        `json:"noise_count"`
	Zones         []RiskZone `json:"zones"`
}
