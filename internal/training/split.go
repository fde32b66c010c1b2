package training

import (
	"math"
	"math/rand"
)

// Split partitions samples into training and held-out subsets. The held-out
// size is ceil(testFraction*n); with fewer than two samples everything goes to
// training. The partition depends only on the sample order and seed.
func Split(samples []Sample, testFraction float64, seed int64) (train, test []Sample) {
	n := len(samples)
	if n < 2 {
		return append([]Sample(nil), samples...), nil
	}

	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = make([]Sample, 0, nTest)
	train = make([]Sample, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, samples[idx])
		} else {
			train = append(train, samples[idx])
		}
	}
	return train, test
}
