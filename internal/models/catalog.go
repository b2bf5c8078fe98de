package models

import "time"

// CatalogEntry is a rentable offering: either a pool of individually
// serialized devices or a fixed-size crew package drawn from shared stock.
// Kind discriminates the two; Pooled is set only for KindPooled entries.
type CatalogEntry struct {
	ID              string      `yaml:"id" json:"id"`
	Name            string      `yaml:"name" json:"name"`
	Description     string      `yaml:"description" json:"description,omitempty"`
	Kind            string      `yaml:"kind" json:"kind"`
	DailyRateCents  int64       `yaml:"daily_rate_cents" json:"dailyRateCents"`
	WeeklyRateCents int64       `yaml:"weekly_rate_cents" json:"weeklyRateCents"`
	Popular         bool        `yaml:"popular" json:"popular"`
	IsActive        bool        `yaml:"is_active" json:"isActive"`
	SortOrder       int64       `yaml:"sort_order" json:"sortOrder"`
	Pooled          *PooledSpec `yaml:"pooled" json:"pooled,omitempty"`
	CreatedAt       time.Time   `yaml:"-" json:"createdAt"`
	UpdatedAt       time.Time   `yaml:"-" json:"updatedAt"`
}

// PooledSpec describes an indivisible crew package. UnitCount must be one
// of CrewSizes; the headset distribution must sum to UnitCount.
type PooledSpec struct {
	UnitCount           int                 `yaml:"unit_count" json:"unitCount"`
	BatteriesPerUnit    int                 `yaml:"batteries_per_unit" json:"batteriesPerUnit"`
	HeadsetsPerUnit     int                 `yaml:"headsets_per_unit" json:"headsetsPerUnit"`
	HeadsetDistribution HeadsetDistribution `yaml:"headset_distribution" json:"headsetDistribution"`
}

// HeadsetDistribution maps headset type to count for a pooled package.
type HeadsetDistribution map[string]int

// Sum returns the total number of headsets in the distribution.
func (d HeadsetDistribution) Sum() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Clone returns a copy safe for the caller to mutate.
func (d HeadsetDistribution) Clone() HeadsetDistribution {
	if d == nil {
		return nil
	}
	out := make(HeadsetDistribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
