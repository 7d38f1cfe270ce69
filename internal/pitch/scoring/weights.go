package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"pitch-analyzer/internal/models"
)

// Categories carries the weighted categories in report order.
var Categories = []string{
	models.CategoryMarketAnalysis,
	models.CategoryCompetitiveLandscape,
	models.CategoryProductMarketFit,
	models.CategoryFinance,
	models.CategoryWhyAnalysis,
	models.CategoryScalability,
}

var defaultWeights = map[string]float64{
	models.CategoryMarketAnalysis:       0.20,
	models.CategoryCompetitiveLandscape: 0.15,
	models.CategoryProductMarketFit:     0.20,
	models.CategoryFinance:              0.25,
	models.CategoryWhyAnalysis:          0.10,
	models.CategoryScalability:          0.10,
}

// DefaultWeights returns a copy of the built-in weights.
func DefaultWeights() map[string]float64 {
	out := make(map[string]float64, len(defaultWeights))
	for k, v := range defaultWeights {
		out[k] = v
	}
	return out
}

// Thresholds are the lower bounds of each recommendation band.
type Thresholds struct {
	Excellent    float64 `yaml:"excellent" mapstructure:"excellent"`
	Good         float64 `yaml:"good" mapstructure:"good"`
	Average      float64 `yaml:"average" mapstructure:"average"`
	BelowAverage float64 `yaml:"below_average" mapstructure:"below_average"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 8.5, Good: 7.0, Average: 5.0, BelowAverage: 3.0}
}

// merge keeps the defaults for bands left at zero.
func (t Thresholds) merge() Thresholds {
	d := DefaultThresholds()
	if t.Excellent > 0 {
		d.Excellent = t.Excellent
	}
	if t.Good > 0 {
		d.Good = t.Good
	}
	if t.Average > 0 {
		d.Average = t.Average
	}
	if t.BelowAverage > 0 {
		d.BelowAverage = t.BelowAverage
	}
	return d
}

// NormalizeWeights applies overrides per known category over the defaults
// and rescales the result to sum to 1. Unknown categories and negative or
// non-finite overrides are ignored.
func NormalizeWeights(overrides map[string]float64) map[string]float64 {
	weights := DefaultWeights()
	for category, w := range overrides {
		if _, known := weights[category]; !known {
			continue
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		weights[category] = w
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		weights = DefaultWeights()
		total = 1.0
	}
	for category := range weights {
		weights[category] /= total
	}
	return weights
}

// File is the on-disk form of scoring overrides.
type File struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds Thresholds         `yaml:"thresholds"`
}

// LoadWeightsFile reads weight and threshold overrides from a YAML file.
func LoadWeightsFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scoring file: %w", err)
	}
	if len(f.Weights) == 0 && f.Thresholds == (Thresholds{}) {
		return nil, fmt.Errorf("scoring file %s has no weights or thresholds", path)
	}
	return &f, nil
}
