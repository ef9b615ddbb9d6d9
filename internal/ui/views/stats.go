package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/chalk/internal/model"
	"github.com/dori/chalk/internal/planner"
	"github.com/dori/chalk/internal/ui/theme"
)

// renderStats draws summary cards and a per-subject bar chart
func renderStats(s planner.Stats, width int) string {
	t := theme.Current.Theme

	cardStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 2).
		Width(14)

	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(t.Subtle)

	card := func(value, label string) string {
		return cardStyle.Render(valueStyle.Render(value) + "\n" + labelStyle.Render(label))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card(fmt.Sprintf("%d", s.Total), "Tasks"),
		card(fmt.Sprintf("%d", s.Active), "Active"),
		card(fmt.Sprintf("%d", s.Completed), "Done"),
		card(fmt.Sprintf("%.0f%%", s.CompletionRate()*100), "Complete"),
	)

	sections := []string{cards, "", renderPriorityLine(s), "", renderSubjectChart(s, width)}
	return strings.Join(sections, "\n")
}

func renderPriorityLine(s planner.Stats) string {
	t := theme.Current.Theme

	var parts []string
	for _, p := range model.Priorities() {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(t.PriorityColor(p)).
			Render(fmt.Sprintf("%s %s %d", priorityGlyph(p), p, s.ByPriority[p])))
	}
	return strings.Join(parts, "   ")
}

// renderSubjectChart renders one bar per subject, largest first
func renderSubjectChart(s planner.Stats, width int) string {
	t := theme.Current.Theme

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	lines := []string{headerStyle.Render("By subject")}

	if len(s.BySubject) == 0 {
		return strings.Join(append(lines, lipgloss.NewStyle().Foreground(t.Subtle).Italic(true).Render("No tasks yet")), "\n")
	}

	subjects := make([]string, 0, len(s.BySubject))
	maxCount := 1
	for subject, n := range s.BySubject {
		subjects = append(subjects, subject)
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if s.BySubject[subjects[i]] != s.BySubject[subjects[j]] {
			return s.BySubject[subjects[i]] > s.BySubject[subjects[j]]
		}
		return subjects[i] < subjects[j]
	})

	maxBar := width - 24
	if maxBar > 30 {
		maxBar = 30
	}
	if maxBar < 5 {
		maxBar = 5
	}

	nameStyle := lipgloss.NewStyle().Width(14).Foreground(t.Foreground)
	for _, subject := range subjects {
		n := s.BySubject[subject]
		barWidth := n * maxBar / maxCount
		if barWidth < 1 {
			barWidth = 1
		}
		label := subject
		if label == "" {
			label = "(none)"
		}
		bar := lipgloss.NewStyle().Foreground(t.Info).Render(strings.Repeat("█", barWidth))
		lines = append(lines, fmt.Sprintf("%s %s %d", nameStyle.Render(label), bar, n))
	}
	return strings.Join(lines, "\n")
}
