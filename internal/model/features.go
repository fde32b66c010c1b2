package model

import (
	"fmt"

	"github.com/abhisek/mathadapt/internal/tracker"
)

// Dimensions is the fixed number of features the classifier consumes.
const Dimensions = 4

// Canonical feature names, in the order weights are stored.
const (
	FeatureAccuracy       = "accuracy"
	FeatureMeanLatency    = "mean_latency"
	FeatureStreak         = "streak"
	FeatureRecentAccuracy = "recent_accuracy"
)

// FeatureOrder is the canonical ordering of feature dimensions.
var FeatureOrder = [Dimensions]string{
	FeatureAccuracy,
	FeatureMeanLatency,
	FeatureStreak,
	FeatureRecentAccuracy,
}

// FeatureVector is one inference or training sample derived from session
// metrics at an evaluation boundary.
type FeatureVector struct {
	Accuracy       float64
	MeanLatency    float64
	Streak         float64
	RecentAccuracy float64
}

// FromMetrics builds the feature vector for a metrics snapshot.
func FromMetrics(m tracker.Metrics) FeatureVector {
	return FeatureVector{
		Accuracy:       m.Accuracy,
		MeanLatency:    m.MeanLatency,
		Streak:         float64(m.Streak),
		RecentAccuracy: m.RecentAccuracy,
	}
}

// Values returns the features in FeatureOrder.
func (f FeatureVector) Values() []float64 {
	return []float64{f.Accuracy, f.MeanLatency, f.Streak, f.RecentAccuracy}
}

// VectorFromValues is the inverse of Values. It panics if len(v) is not
// Dimensions.
func VectorFromValues(v []float64) FeatureVector {
	if len(v) != Dimensions {
		panic(fmt.Sprintf("model: feature vector has %d dimensions, want %d", len(v), Dimensions))
	}
	return FeatureVector{
		Accuracy:       v[0],
		MeanLatency:    v[1],
		Streak:         v[2],
		RecentAccuracy: v[3],
	}
}
