package training

import "github.com/abhisek/mathadapt/internal/model"

// Scores are binary classification metrics. Undefined ratios are 0.
type Scores struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Evaluate scores m on samples, treating p > 0.5 as a positive prediction.
func Evaluate(m *model.Model, samples []Sample) Scores {
	var tp, fp, tn, fn int
	for _, s := range samples {
		predicted := m.Probability(s.Features) > 0.5
		switch {
		case predicted && s.Label:
			tp++
		case predicted && !s.Label:
			fp++
		case !predicted && s.Label:
			fn++
		default:
			tn++
		}
	}

	sc := Scores{Support: len(samples)}
	if sc.Support == 0 {
		return sc
	}
	sc.Accuracy = ratio(tp+tn, sc.Support)
	sc.Precision = ratio(tp, tp+fp)
	sc.Recall = ratio(tp, tp+fn)
	if sc.Precision+sc.Recall > 0 {
		sc.F1 = 2 * sc.Precision * sc.Recall / (sc.Precision + sc.Recall)
	}
	return sc
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
