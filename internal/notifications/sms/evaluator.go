// Package sms implements the fence alert pipeline: deciding whether a
// reading is an alarm, rendering alert text from templates and dispatching
// it to the configured recipients through a rate-limited SMS gateway.
package sms

import (
	"math"

	"github.com/abhinavuser/reflectometry/internal/config"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max]. NaN never matches.
func (r Range) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return v >= r.Min && v <= r.Max
}

func (r Range) containsPtr(v *float64) bool {
	return v != nil && r.Contains(*v)
}

// MatchMode controls how the four range checks combine.
type MatchMode string

const (
	// MatchAny raises an alarm when any single measurement is in range.
	MatchAny MatchMode = "any"
	// MatchAll requires every measurement to be present and in range.
	MatchAll MatchMode = "all"
)

// Thresholds holds the open-circuit alarm ranges.
type Thresholds struct {
	Impedance       Range     `json:"impedance"`
	Voltage         Range     `json:"voltage"`
	Current         Range     `json:"current"`
	ReflectionCoeff Range     `json:"reflectionCoeff"`
	Mode            MatchMode `json:"mode"`
}

// DefaultThresholds returns the stock open-circuit ranges.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Impedance:       Range{Min: 1000, Max: 10000},
		Voltage:         Range{Min: 0, Max: 50},
		Current:         Range{Min: 0, Max: 0.1},
		ReflectionCoeff: Range{Min: 0.8, Max: 1.0},
		Mode:            MatchAny,
	}
}

// ThresholdsFromConfig builds Thresholds from loaded configuration.
func ThresholdsFromConfig(c config.ThresholdConfig) Thresholds {
	mode := MatchMode(c.MatchMode)
	if mode != MatchAll {
		mode = MatchAny
	}
	return Thresholds{
		Impedance:       Range{Min: c.ImpedanceMin, Max: c.ImpedanceMax},
		Voltage:         Range{Min: c.VoltageMin, Max: c.VoltageMax},
		Current:         Range{Min: c.CurrentMin, Max: c.CurrentMax},
		ReflectionCoeff: Range{Min: c.ReflectionMin, Max: c.ReflectionMax},
		Mode:            mode,
	}
}

// CriteriaMatch reports which individual checks matched a reading.
type CriteriaMatch struct {
	Impedance       bool `json:"impedance"`
	Voltage         bool `json:"voltage"`
	Current         bool `json:"current"`
	ReflectionCoeff bool `json:"reflectionCoeff"`
}

// Any reports whether at least one check matched.
func (c CriteriaMatch) Any() bool {
	return c.Impedance || c.Voltage || c.Current || c.ReflectionCoeff
}

// All reports whether every check matched.
func (c CriteriaMatch) All() bool {
	return c.Impedance && c.Voltage && c.Current && c.ReflectionCoeff
}

// Evaluate runs the four range checks independently. Missing measurements
// never match.
func (t Thresholds) Evaluate(r types.Reading) CriteriaMatch {
	return CriteriaMatch{
		Impedance:       t.Impedance.containsPtr(r.Impedance),
		Voltage:         t.Voltage.containsPtr(r.Voltage),
		Current:         t.Current.containsPtr(r.Current),
		ReflectionCoeff: t.ReflectionCoeff.containsPtr(r.ReflectionCoeff),
	}
}

// IsAlarm reports whether the reading indicates an open circuit.
func (t Thresholds) IsAlarm(r types.Reading) bool {
	m := t.Evaluate(r)
	if t.Mode == MatchAll {
		return m.All()
	}
	return m.Any()
}
