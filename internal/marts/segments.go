// Package marts builds the customer dimension and the daily sales fact.
package marts

import (
	"fmt"

	"martflow/internal/money"
	"martflow/pkg/models"
)

// Default tier names.
const (
	HighValue   = "high_value"
	MediumValue = "medium_value"
	LowValue    = "low_value"
)

// Tier is one revenue band. A nil Min marks the catch-all tier.
type Tier struct {
	Name string
	Min  *money.Amount
}

// Segmenter maps lifetime revenue to a tier. Tiers are ordered from the
// highest threshold down; lower bounds are inclusive.
type Segmenter struct {
	tiers []Tier
}

// DefaultSegmenter uses [300,inf) high, [100,300) medium, below 100 low.
func DefaultSegmenter() Segmenter {
	high, medium := money.Cents(30000), money.Cents(10000)
	return Segmenter{tiers: []Tier{
		{Name: HighValue, Min: &high},
		{Name: MediumValue, Min: &medium},
		{Name: LowValue},
	}}
}

// NewSegmenter builds a Segmenter from configured segments. The segments
// are expected to have passed config.ValidateSegments; this only parses.
func NewSegmenter(segments []models.Segment) (Segmenter, error) {
	if len(segments) == 0 {
		return DefaultSegmenter(), nil
	}
	tiers := make([]Tier, 0, len(segments))
	for _, s := range segments {
		tier := Tier{Name: s.Name}
		if s.MinRevenue != "" {
			threshold, err := money.Parse(s.MinRevenue)
			if err != nil {
				return Segmenter{}, fmt.Errorf("segment %s: %w", s.Name, err)
			}
			tier.Min = &threshold
		}
		tiers = append(tiers, tier)
	}
	return Segmenter{tiers: tiers}, nil
}

// Segment returns the first tier whose threshold revenue reaches, falling
// back to the catch-all.
func (s Segmenter) Segment(revenue money.Amount) string {
	for _, t := range s.tiers {
		if t.Min == nil || revenue >= *t.Min {
			return t.Name
		}
	}
	if len(s.tiers) > 0 {
		return s.tiers[len(s.tiers)-1].Name
	}
	return ""
}

// Names lists the tier names, highest first.
func (s Segmenter) Names() []string {
	names := make([]string, len(s.tiers))
	for i, t := range s.tiers {
		names[i] = t.Name
	}
	return names
}
