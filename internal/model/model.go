// Package model holds the trained difficulty classifier and its on-disk
// artifact. A Model is immutable once constructed and may be shared across
// concurrent sessions.
package model

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Metadata describes how a model was produced.
type Metadata struct {
	TrainedAt   time.Time
	SampleCount int
	Sessions    int
	Converged   bool
	Warnings    []string
}

// Model is a logistic classifier over FeatureVector.
type Model struct {
	weights [Dimensions]float64
	bias    float64
	meta    Metadata
}

// New returns a model with the given weights (in FeatureOrder) and bias.
// It panics if len(weights) is not Dimensions.
func New(weights []float64, bias float64, meta Metadata) *Model {
	if len(weights) != Dimensions {
		panic("model: weight vector must have exactly 4 dimensions")
	}
	m := &Model{bias: bias, meta: meta}
	copy(m.weights[:], weights)
	m.meta.Warnings = append([]string(nil), meta.Warnings...)
	return m
}

// Weights returns a copy of the weights in FeatureOrder.
func (m *Model) Weights() []float64 {
	out := make([]float64, Dimensions)
	copy(out, m.weights[:])
	return out
}

// Bias returns the intercept term.
func (m *Model) Bias() float64 { return m.bias }

// Metadata returns the training metadata.
func (m *Model) Metadata() Metadata {
	meta := m.meta
	meta.Warnings = append([]string(nil), m.meta.Warnings...)
	return meta
}

// Logit returns the linear score bias + w·x.
func (m *Model) Logit(f FeatureVector) float64 {
	return m.bias + floats.Dot(m.weights[:], f.Values())
}

// Probability returns the estimated probability that an increase at this
// point succeeds.
func (m *Model) Probability(f FeatureVector) float64 {
	return Sigmoid(m.Logit(f))
}

// Sigmoid is the logistic link function, bounded to [0, 1].
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
