// Package report renders training, replay, decision and session reports for
// the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/mathadapt/internal/adapt"
	"github.com/abhisek/mathadapt/internal/difficulty"
	"github.com/abhisek/mathadapt/internal/model"
	"github.com/abhisek/mathadapt/internal/replay"
	"github.com/abhisek/mathadapt/internal/store"
	"github.com/abhisek/mathadapt/internal/tracker"
	"github.com/abhisek/mathadapt/internal/training"
	"github.com/abhisek/mathadapt/internal/ui/components"
	"github.com/abhisek/mathadapt/internal/ui/theme"
)

const barWidth = 48

func row(label, value string) string {
	return theme.Label.Render(label) + theme.Value.Render(value)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func ratio(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(theme.TableBorder).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return theme.TableHeader
			}
			return theme.TableCell
		})
}

// Training writes a training report. path is where the model was published,
// or empty when it was not.
func Training(w io.Writer, r *training.Report, path string) error {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Training report") + "\n")
	b.WriteString(row("Sessions", fmt.Sprintf("%d (%d skipped)", r.Sessions, len(r.Skipped))) + "\n")
	b.WriteString(row("Samples", fmt.Sprintf("%d (%d positive)", r.Samples, r.Positives)) + "\n")
	b.WriteString(row("Split", fmt.Sprintf("%d train / %d held out", r.TrainSamples, r.TestSamples)) + "\n")
	b.WriteString(row("Iterations", fmt.Sprintf("%d", r.Iterations)) + "\n")
	b.WriteString(row("Converged", fmt.Sprintf("%t", r.Converged)) + "\n")

	b.WriteString(theme.Section.Render("Evaluation") + "\n")
	b.WriteString(row("Train accuracy", ratio(r.TrainAccuracy)) + "\n")
	b.WriteString(row("Held-out accuracy", ratio(r.HeldOut.Accuracy)) + "\n")
	b.WriteString(row("Precision", ratio(r.HeldOut.Precision)) + "\n")
	b.WriteString(row("Recall", ratio(r.HeldOut.Recall)) + "\n")
	b.WriteString(row("F1", ratio(r.HeldOut.F1)) + "\n")

	if r.Model != nil {
		b.WriteString(theme.Section.Render("Model") + "\n")
		weights := r.Model.Weights()
		for i, name := range model.FeatureOrder {
			b.WriteString(row(name, fmt.Sprintf("%+.4f", weights[i])) + "\n")
		}
		b.WriteString(row("bias", fmt.Sprintf("%+.4f", r.Model.Bias())) + "\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString(theme.Section.Render("Warnings") + "\n")
		for _, warn := range r.Warnings {
			b.WriteString(theme.Warn.Render("! "+string(warn.Kind)) + " " + theme.Hint.Render(warn.Message) + "\n")
		}
	}

	if path != "" {
		b.WriteString("\n" + row("Published to", path) + "\n")
	}

	_, err := lipgloss.Fprint(w, b.String())
	return err
}

// Decision writes a single decision with the metrics it was made from.
func Decision(w io.Writer, m tracker.Metrics, d adapt.Decision) error {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Decision") + "\n")
	b.WriteString(row("Strategy", string(d.Strategy)))
	if d.Fallback {
		b.WriteString(theme.Hint.Render("  (fallback: no model)"))
	}
	b.WriteString("\n")
	b.WriteString(row("Transition", "") + theme.Transition(d.Transition).Render(string(d.Transition)) + "\n")
	if d.Confidence != nil {
		b.WriteString(row("Success probability", ratio(*d.Confidence)) + "\n")
	}
	b.WriteString(row("Level", "") +
		theme.Level(d.From).Render(d.From.String()) + " → " +
		theme.Level(d.Next()).Render(d.Next().String()) + "\n")

	b.WriteString(metrics(m))

	_, err := lipgloss.Fprint(w, b.String())
	return err
}

func metrics(m tracker.Metrics) string {
	var b strings.Builder
	b.WriteString(theme.Section.Render("Metrics") + "\n")
	b.WriteString(row("Questions", fmt.Sprintf("%d (%d correct)", m.Total, m.Correct)) + "\n")
	b.WriteString(components.NewBar("Accuracy", m.Accuracy, true, barWidth).View() + "\n")
	b.WriteString(row("Mean latency", fmt.Sprintf("%.2fs", m.MeanLatency)) + "\n")
	b.WriteString(row("Streak", fmt.Sprintf("%d (max %d)", m.Streak, m.MaxStreak)) + "\n")
	if m.RecentDefined() {
		b.WriteString(row("Recent accuracy", pct(m.RecentAccuracy)) + "\n")
		b.WriteString(row("Recent latency", fmt.Sprintf("%.2fs", m.RecentLatency)) + "\n")
	}
	b.WriteString(row("Latency trend", string(m.LatencyTrend)) + "\n")
	return b.String()
}

// Summary writes an end-of-session summary.
func Summary(w io.Writer, s tracker.Summary) error {
	var b strings.Builder

	b.WriteString(metrics(s.Metrics))

	b.WriteString(theme.Section.Render("By difficulty") + "\n")
	t := newTable("Level", "Questions", "Accuracy", "Mean latency")
	for _, lvl := range difficulty.Levels {
		st, ok := s.Breakdown[lvl]
		if !ok {
			continue
		}
		t.Row(lvl.String(), fmt.Sprintf("%d", st.Count), pct(st.Accuracy), fmt.Sprintf("%.2fs", st.MeanLatency))
	}
	b.WriteString(t.Render() + "\n")

	b.WriteString(theme.Section.Render("Path") + "\n")
	b.WriteString(path(s.Path) + theme.Hint.Render(fmt.Sprintf("  (%d changes)", s.Changes)) + "\n")
	b.WriteString(row("Recommendation", "") + recommendation(s.Recommendation) + "\n")

	_, err := lipgloss.Fprint(w, b.String())
	return err
}

func path(levels []difficulty.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = theme.Level(l).Render(l.String())
	}
	return strings.Join(parts, " → ")
}

func recommendation(r tracker.Recommendation) string {
	switch r {
	case tracker.RecommendExcellent:
		return theme.Good.Render("Excellent work, ready for harder problems")
	case tracker.RecommendGood:
		return theme.Warn.Render("Good progress, keep practicing at this level")
	}
	return theme.Bad.Render("Keep practicing, focus on accuracy before speed")
}

// Replay writes one row per replayed session and totals.
func Replay(w io.Writer, results []replay.Result) error {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Replay") + "\n")

	t := newTable("Session", "User", "Questions", "Decisions", "Fallbacks", "Agreement", "Path")
	var agreeTotal, comparableTotal, decisions int
	for _, r := range results {
		agree, comparable := r.Agreement()
		agreeTotal += agree
		comparableTotal += comparable
		decisions += len(r.Steps)

		agreement := "-"
		if comparable > 0 {
			agreement = fmt.Sprintf("%d/%d", agree, comparable)
		}
		t.Row(shortID(r.SessionID), r.UserName,
			fmt.Sprintf("%d", r.Summary.Metrics.Total),
			fmt.Sprintf("%d", len(r.Steps)),
			fmt.Sprintf("%d", r.Fallbacks()),
			agreement,
			plainPath(r.Summary.Path))
	}
	b.WriteString(t.Render() + "\n")

	b.WriteString(row("Sessions", fmt.Sprintf("%d", len(results))) + "\n")
	b.WriteString(row("Decisions", fmt.Sprintf("%d", decisions)) + "\n")
	if comparableTotal > 0 {
		b.WriteString(components.NewBar("Agreement", 100*float64(agreeTotal)/float64(comparableTotal), true, barWidth).View() + "\n")
	}

	_, err := lipgloss.Fprint(w, b.String())
	return err
}

func plainPath(levels []difficulty.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = l.String()
	}
	return strings.Join(parts, ">")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Sessions writes a session listing.
func Sessions(w io.Writer, sums []store.SessionSummary) error {
	if len(sums) == 0 {
		_, err := lipgloss.Fprintln(w, theme.Hint.Render("No sessions recorded."))
		return err
	}

	t := newTable("Session", "User", "Mode", "Started", "Questions", "Accuracy", "Mean latency", "Levels")
	for _, s := range sums {
		acc := 0.0
		if s.Questions > 0 {
			acc = 100 * float64(s.Correct) / float64(s.Questions)
		}
		t.Row(shortID(s.ID), s.UserName, s.AdaptationMode, s.StartedAt,
			fmt.Sprintf("%d", s.Questions), pct(acc), fmt.Sprintf("%.2fs", s.MeanLatency),
			s.InitialDifficulty+">"+s.FinalDifficulty)
	}

	_, err := lipgloss.Fprintln(w, t.Render())
	return err
}

// TrainingRuns writes the training run history.
func TrainingRuns(w io.Writer, runs []store.TrainingRun) error {
	if len(runs) == 0 {
		_, err := lipgloss.Fprintln(w, theme.Hint.Render("No training runs recorded."))
		return err
	}

	t := newTable("Run", "Trained", "Sessions", "Samples", "Accuracy", "F1", "Converged", "Warnings", "Published")
	for _, r := range runs {
		t.Row(fmt.Sprintf("%d", r.ID), r.Timestamp.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.Sessions), fmt.Sprintf("%d", r.Samples),
			ratio(r.HeldOutAccuracy), ratio(r.HeldOutF1),
			yesNo(r.Converged), fmt.Sprintf("%d", r.Warnings), yesNo(r.Published))
	}

	_, err := lipgloss.Fprintln(w, t.Render())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
