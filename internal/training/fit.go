package training

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/abhisek/mathadapt/internal/model"
)

// FitConfig bounds the logistic fit.
type FitConfig struct {
	MaxIterations int
	LearningRate  float64
	// Tolerance is the gradient L2 norm below which the fit has converged.
	Tolerance float64
	// L2 penalizes weights (not the bias) on the standardized scale.
	L2 float64
}

// DefaultFitConfig returns the standard optimizer settings.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxIterations: 1000,
		LearningRate:  0.5,
		Tolerance:     1e-4,
		L2:            0.01,
	}
}

// FitResult is a fitted weight vector on the raw feature scale.
type FitResult struct {
	Weights    []float64
	Bias       float64
	Iterations int
	Converged  bool
}

// Fit estimates logistic regression weights by batch gradient descent on the
// mean log-loss. Features are standardized for the optimization and the
// weights are mapped back to the raw scale, so the result scores raw
// FeatureVector values directly. If the iteration budget runs out the last
// iterate is returned with Converged false. With no samples there is nothing
// to optimize: the result is all zeros and not converged.
func Fit(samples []Sample, cfg FitConfig) FitResult {
	n := len(samples)
	if n == 0 {
		return FitResult{Weights: make([]float64, model.Dimensions)}
	}

	means, scales := standardization(samples)
	z := make([][]float64, n)
	y := make([]float64, n)
	for i, s := range samples {
		row := s.Features.Values()
		for j := range row {
			row[j] = (row[j] - means[j]) / scales[j]
		}
		z[i] = row
		if s.Label {
			y[i] = 1
		}
	}

	w := make([]float64, model.Dimensions)
	gw := make([]float64, model.Dimensions)
	var b float64
	res := FitResult{}

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		for j := range gw {
			gw[j] = 0
		}
		var gb float64
		for i := range z {
			e := model.Sigmoid(b+floats.Dot(w, z[i])) - y[i]
			floats.AddScaled(gw, e, z[i])
			gb += e
		}
		floats.Scale(1/float64(n), gw)
		gb /= float64(n)
		floats.AddScaled(gw, cfg.L2, w)

		res.Iterations = iter
		if math.Hypot(floats.Norm(gw, 2), gb) < cfg.Tolerance {
			res.Converged = true
			break
		}
		floats.AddScaled(w, -cfg.LearningRate, gw)
		b -= cfg.LearningRate * gb
	}

	// logit = b + Σ w_j (x_j - μ_j)/σ_j
	//       = (b - Σ w_j μ_j/σ_j) + Σ (w_j/σ_j) x_j
	res.Weights = make([]float64, model.Dimensions)
	res.Bias = b
	for j := range w {
		res.Weights[j] = w[j] / scales[j]
		res.Bias -= w[j] * means[j] / scales[j]
	}
	return res
}

// standardization returns per-feature means and standard deviations.
// Constant features get a scale of 1.
func standardization(samples []Sample) (means, scales []float64) {
	means = make([]float64, model.Dimensions)
	scales = make([]float64, model.Dimensions)
	col := make([]float64, len(samples))
	for j := 0; j < model.Dimensions; j++ {
		for i, s := range samples {
			col[i] = s.Features.Values()[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		means[j] = mean
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		scales[j] = std
	}
	return means, scales
}
