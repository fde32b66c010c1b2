package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mathadapt/internal/ui/theme"
)

// Bar displays a horizontal percentage bar.
type Bar struct {
	Label       string
	Percent     float64 // 0..100
	ShowPercent bool
	Width       int
}

// NewBar creates a new bar.
func NewBar(label string, percent float64, showPercent bool, width int) Bar {
	return Bar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// View renders the bar.
func (b Bar) View() string {
	var result string

	if b.Label != "" {
		result += theme.Label.Render(b.Label)
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if b.ShowPercent {
		percentWidth = 6 // "  100%"
	}

	barWidth := b.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * b.Percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	result += theme.BarFilled.Render(strings.Repeat("█", filled))
	result += theme.BarEmpty.Render(strings.Repeat("░", empty))

	if b.ShowPercent {
		result += theme.Hint.Render(fmt.Sprintf("  %3.0f%%", b.Percent))
	}

	return result
}
