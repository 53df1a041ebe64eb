// Package household groups contacts that share a mailing address.
package household

import (
	"strings"

	"canvassplan/internal/geo"
)

// Contact is one person on a canvass list.
type Contact struct {
	ID       string      `json:"id"`
	Address  string      `json:"address"`
	City     string      `json:"city,omitempty"`
	Zip      string      `json:"zip,omitempty"`
	Location *geo.LatLng `json:"location,omitempty"`
	Score    *float64    `json:"score,omitempty"`
}

// Household is a read-only view over the contacts living at one address.
type Household struct {
	Key          string      `json:"key"`
	Address      string      `json:"address"`
	City         string      `json:"city,omitempty"`
	Zip          string      `json:"zip,omitempty"`
	MemberIDs    []string    `json:"memberIds"`
	Location     *geo.LatLng `json:"location,omitempty"`
	AverageScore *float64    `json:"averageScore,omitempty"`
}

// Key normalizes an address triple: each part is trimmed and lowercased.
func Key(address, city, zip string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(address) + "|" + norm(city) + "|" + norm(zip)
}

// Aggregate groups contacts by Key in first-seen order. A household takes its
// display fields from its first member and its location from the first member
// that has one. AverageScore is nil when no member carries a score.
func Aggregate(contacts []Contact) []Household {
	var out []Household
	index := map[string]int{}
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, c := range contacts {
		k := Key(c.Address, c.City, c.Zip)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Household{
				Key:     k,
				Address: strings.TrimSpace(c.Address),
				City:    strings.TrimSpace(c.City),
				Zip:     strings.TrimSpace(c.Zip),
			})
		}
		h := &out[i]
		h.MemberIDs = append(h.MemberIDs, c.ID)
		if h.Location == nil && c.Location != nil {
			loc := *c.Location
			h.Location = &loc
		}
		if c.Score != nil {
			sums[k] += *c.Score
			counts[k]++
		}
	}

	for i := range out {
		if n := counts[out[i].Key]; n > 0 {
			avg := sums[out[i].Key] / float64(n)
			out[i].AverageScore = &avg
		}
	}
	return out
}

// Points flattens households into one point per located household, keyed by
// household key, for the optimizer and the balancer.
func Points(hs []Household) []geo.Point {
	out := make([]geo.Point, 0, len(hs))
	for _, h := range hs {
		if h.Location != nil {
			out = append(out, geo.Point{ID: h.Key, LatLng: *h.Location})
		}
	}
	return out
}
