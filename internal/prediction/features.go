// Package prediction scores line measurements for signs of an illegal fence
// tap. A remote model is used when configured; otherwise, or when the model
// fails, a deterministic heuristic produces the verdict.
package prediction

import (
	"math"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// Nominal line values used when an input field is zero or absent.
const (
	DefaultVoltage     = 230.0
	DefaultCurrent     = 15.0
	DefaultFrequency   = 50.0
	DefaultImpedance   = 75.0
	DefaultPowerFactor = 0.85

	referenceImpedance = 50.0
	rmsFactor          = 0.707
	fullLoadWatts      = 1000.0
)

// Input is a raw electrical sample. Zero fields take the nominal defaults.
type Input struct {
	Voltage     float64 `json:"voltage" validate:"gte=0"`
	Current     float64 `json:"current" validate:"gte=0"`
	Frequency   float64 `json:"frequency" validate:"gte=0"`
	Impedance   float64 `json:"impedance" validate:"gte=0"`
	PowerFactor float64 `json:"power_factor" validate:"gte=0,lte=1"`
}

func orDefault(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return def
	}
	return v
}

// withDefaults returns a copy of in with zero fields replaced.
func (in Input) withDefaults() Input {
	return Input{
		Voltage:     orDefault(in.Voltage, DefaultVoltage),
		Current:     orDefault(in.Current, DefaultCurrent),
		Frequency:   orDefault(in.Frequency, DefaultFrequency),
		Impedance:   orDefault(in.Impedance, DefaultImpedance),
		PowerFactor: orDefault(in.PowerFactor, DefaultPowerFactor),
	}
}

// DeriveFeatures computes the model feature vector from a sample.
func DeriveFeatures(in Input) types.TDRFeatures {
	in = in.withDefaults()

	activePower := in.Voltage * in.Current * in.PowerFactor
	return types.TDRFeatures{
		ActivePower:             round(activePower, 1),
		CurrentRMS:              round(in.Current*rmsFactor, 2),
		ImpedanceMagnitude:      round(in.Impedance, 1),
		PowerFactor:             round(in.PowerFactor, 2),
		LoadClassificationScore: round(math.Min(1, activePower/fullLoadWatts), 2),
		ImpedanceRatio:          round(in.Impedance/referenceImpedance, 2),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
