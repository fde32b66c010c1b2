package tracker

import "github.com/abhisek/mathadapt/internal/difficulty"

// RecentWindow is the number of trailing outcomes used for short-horizon metrics.
const RecentWindow = 3

// Outcome is one answered question. Outcomes are immutable once recorded.
type Outcome struct {
	// Index is the 1-based position of the question within its session.
	Index int
	// Level is the difficulty the question was asked at.
	Level difficulty.Level
	// Correct records whether the learner answered correctly.
	Correct bool
	// Latency is the response time in seconds.
	Latency float64
}

// Trend describes how recent response latency compares to earlier latency.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendSlowing   Trend = "slowing"
	TrendImproving Trend = "improving"
)

// Metrics is an immutable snapshot of session performance.
// Accuracy values are percentages in [0, 100]; latencies are seconds.
type Metrics struct {
	Total       int
	Correct     int
	Incorrect   int
	Accuracy    float64
	MeanLatency float64
	Streak      int
	MaxStreak   int

	// RecentCount is min(RecentWindow, Total): the number of outcomes the
	// recent metrics were computed over.
	RecentCount    int
	RecentAccuracy float64
	RecentLatency  float64

	LatencyTrend Trend
}

// RecentDefined reports whether a full recent window is available.
func (m Metrics) RecentDefined() bool {
	return m.RecentCount >= RecentWindow
}

// LevelStats summarizes the outcomes asked at one difficulty level.
type LevelStats struct {
	Count       int
	Correct     int
	Accuracy    float64
	MeanLatency float64
}
