package prediction

import "github.com/abhinavuser/reflectometry/internal/types"

// fallbackThreshold is the combined anomaly score above which the heuristic
// reports a fence.
const fallbackThreshold = 0.6

// heuristicInferenceMs is the nominal cost reported for a heuristic verdict.
const heuristicInferenceMs = 5

// Heuristic scores features without a model. Each of power, impedance and
// RMS current contributes a stepped anomaly score; the verdict is their mean.
func Heuristic(f types.TDRFeatures) types.Classification {
	var power float64
	switch {
	case f.ActivePower > 200:
		power = 0.8
	case f.ActivePower > 150:
		power = 0.6
	default:
		power = 0.2
	}

	var impedance float64
	switch {
	case f.ImpedanceMagnitude < 50:
		impedance = 0.9
	case f.ImpedanceMagnitude < 70:
		impedance = 0.5
	default:
		impedance = 0.1
	}

	var current float64
	switch {
	case f.CurrentRMS > 1.5:
		current = 0.7
	case f.CurrentRMS > 1.0:
		current = 0.4
	default:
		current = 0.1
	}

	score := (power + impedance + current) / 3
	return types.Classification{
		IsFence:         score > fallbackThreshold,
		Confidence:      score,
		InferenceTimeMs: heuristicInferenceMs,
	}
}
