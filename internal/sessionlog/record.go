// Package sessionlog defines the persisted per-question log record and the
// session documents that group them.
package sessionlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/tracker"
)

// Puzzle is the problem as supplied by the puzzle generator. Difficulty is
// the label the generator used; it is never recomputed here.
type Puzzle struct {
	Question   string           `json:"question,omitempty"`
	Operand1   float64          `json:"operand1"`
	Operand2   float64          `json:"operand2"`
	Operation  string           `json:"operation"`
	Answer     float64          `json:"answer"`
	Difficulty difficulty.Level `json:"difficulty"`
}

// Record is one answered question. Difficulty mirrors Puzzle.Difficulty at
// the response level.
type Record struct {
	QuestionNumber int              `json:"question_number"`
	Puzzle         Puzzle           `json:"puzzle"`
	UserAnswer     float64          `json:"user_answer"`
	IsCorrect      bool             `json:"is_correct"`
	ResponseTime   float64          `json:"response_time"`
	Difficulty     difficulty.Level `json:"difficulty,omitempty"`
	Timestamp      Timestamp        `json:"timestamp"`
}

// Outcome converts the record to a tracker outcome.
func (r Record) Outcome() tracker.Outcome {
	return tracker.Outcome{
		Index:   r.QuestionNumber,
		Level:   r.Puzzle.Difficulty,
		Correct: r.IsCorrect,
		Latency: r.ResponseTime,
	}
}

// Session is one learner session and its records in answer order.
type Session struct {
	ID                string           `json:"id,omitempty"`
	Timestamp         Timestamp        `json:"timestamp"`
	UserName          string           `json:"user_name"`
	AdaptationMode    string           `json:"adaptation_mode"`
	InitialDifficulty difficulty.Level `json:"initial_difficulty"`
	FinalDifficulty   difficulty.Level `json:"final_difficulty"`
	TotalQuestions    int              `json:"total_questions"`
	Responses         []Record         `json:"responses"`
}

// NewSession starts an empty session document with a fresh ID.
func NewSession(userName, mode string, initial difficulty.Level, now time.Time) *Session {
	return &Session{
		ID:                uuid.NewString(),
		Timestamp:         NewTimestamp(now),
		UserName:          userName,
		AdaptationMode:    mode,
		InitialDifficulty: initial,
		FinalDifficulty:   initial,
	}
}

// Append adds r as the next record, assigning its question number.
func (s *Session) Append(r Record) {
	r.QuestionNumber = len(s.Responses) + 1
	r.Difficulty = r.Puzzle.Difficulty
	s.Responses = append(s.Responses, r)
	s.TotalQuestions = len(s.Responses)
	s.FinalDifficulty = r.Puzzle.Difficulty
}

// Normalize fills fields that older logs omit: question numbers, an ID,
// the question total, and initial/final levels (Easy when nothing else is known).
// A missing ID is derived from the session's content, so decoding the same
// log twice yields the same IDs.
func (s *Session) Normalize() {
	if s.ID == "" {
		s.ID = derivedID(s)
	}
	for i := range s.Responses {
		if s.Responses[i].QuestionNumber == 0 {
			s.Responses[i].QuestionNumber = i + 1
		}
		if !s.Responses[i].Difficulty.Valid() {
			s.Responses[i].Difficulty = s.Responses[i].Puzzle.Difficulty
		}
	}
	s.TotalQuestions = len(s.Responses)
	if n := len(s.Responses); n > 0 {
		if !s.InitialDifficulty.Valid() {
			s.InitialDifficulty = s.Responses[0].Puzzle.Difficulty
		}
		if !s.FinalDifficulty.Valid() {
			s.FinalDifficulty = s.Responses[n-1].Puzzle.Difficulty
		}
	}
	if !s.InitialDifficulty.Valid() {
		s.InitialDifficulty = difficulty.Easy
	}
	if !s.FinalDifficulty.Valid() {
		s.FinalDifficulty = s.InitialDifficulty
	}
}

func derivedID(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d", s.UserName, s.AdaptationMode, s.Timestamp, len(s.Responses))
	for _, r := range s.Responses {
		fmt.Fprintf(&b, "|%s|%g|%t", r.Timestamp, r.ResponseTime, r.IsCorrect)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

// Outcomes converts the records into tracker outcomes, checking the
// invariants the tracker enforces so that bad data is reported as an error
// instead of a panic.
func (s *Session) Outcomes() ([]tracker.Outcome, error) {
	out := make([]tracker.Outcome, len(s.Responses))
	for i, r := range s.Responses {
		if r.QuestionNumber != i+1 {
			return nil, fmt.Errorf("session %s: record %d has question number %d", s.ID, i+1, r.QuestionNumber)
		}
		if r.ResponseTime < 0 {
			return nil, fmt.Errorf("session %s: question %d has negative response time", s.ID, r.QuestionNumber)
		}
		if !r.Puzzle.Difficulty.Valid() {
			return nil, fmt.Errorf("session %s: question %d has no difficulty", s.ID, r.QuestionNumber)
		}
		out[i] = r.Outcome()
	}
	return out, nil
}

// Path returns the level each question was asked at.
func (s *Session) Path() []difficulty.Level {
	path := make([]difficulty.Level, len(s.Responses))
	for i, r := range s.Responses {
		path[i] = r.Puzzle.Difficulty
	}
	return path
}

// History returns Path followed by the final level, the level the last
// decision moved to. Repeated levels are kept.
func (s *Session) History() []difficulty.Level {
	return append(s.Path(), s.FinalDifficulty)
}
