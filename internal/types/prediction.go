package types

// TDRFeatures is the feature vector fed to the tamper classification model.
// Field names match the model's training columns.
type TDRFeatures struct {
	ActivePower             float64 `json:"active_power"`
	CurrentRMS              float64 `json:"current_rms"`
	ImpedanceMagnitude      float64 `json:"impedance_magnitude"`
	PowerFactor             float64 `json:"power_factor"`
	LoadClassificationScore float64 `json:"load_classification_score"`
	ImpedanceRatio          float64 `json:"impedance_ratio"`
}

// Classification is a model verdict for one feature vector.
type Classification struct {
	IsFence         bool    `json:"is_fence"`
	Confidence      float64 `json:"confidence"`
	InferenceTimeMs float64 `json:"inference_time_ms"`
}
