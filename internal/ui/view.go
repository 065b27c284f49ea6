package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/agile-dashboard-tui/internal/analytics"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

const (
	upcomingCount = 5
	chartHeight   = 8
)

// bestWindowHours are the window lengths surfaced on the dashboard.
var bestWindowHours = []float64{1, 2, 3}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Agile Rates"))
	b.WriteString("\n")

	now := time.Now()
	loc := m.manager.Rates().Location()

	b.WriteString(m.renderCurrentRate(now, loc))
	b.WriteString("\n\n")

	if len(m.snapshot) == 0 {
		if m.fetching {
			b.WriteString(fmt.Sprintf("%s Fetching rates…\n", m.spinner.View()))
		} else if m.err != nil {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("Fetch failed: %v", m.err)))
			b.WriteString("\n")
		} else if m.fetchedOK {
			b.WriteString(HelpStyle.Render("No rates returned for this tariff"))
			b.WriteString("\n")
		} else {
			b.WriteString(HelpStyle.Render("No data yet"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
		return DocStyle.Render(b.String())
	}

	b.WriteString(m.renderChart(now))
	b.WriteString("\n\n")
	b.WriteString(m.renderUpcoming(now, loc))
	b.WriteString("\n")
	b.WriteString(m.renderBestWindows(now, loc))
	b.WriteString("\n")

	if m.err != nil {
		// Stale data is still shown; flag that the last refresh failed.
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Last refresh failed: %v", m.err)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderFooter())
	return DocStyle.Render(b.String())
}

func (m Model) renderCurrentRate(now time.Time, loc *time.Location) string {
	current := analytics.CurrentRate(m.snapshot, now)
	if current == nil {
		label := "No current rate"
		if m.fetching {
			label = fmt.Sprintf("%s Fetching…", m.spinner.View())
		}
		return CurrentRateStyle.Render(label)
	}

	day := analytics.SameDay(m.snapshot, now, loc)
	intensity := analytics.Classify(*current, day)
	color := intensityColor(intensity.Score, intensity.Negative)

	price := FormatPrice(current.ValueIncVAT, m.showPounds)
	label := fmt.Sprintf("Now: %s /kWh  (until %s)",
		price, current.ValidTo.In(loc).Format("15:04"))

	style := CurrentRateStyle.BorderForeground(color).Foreground(color)
	if m.fetching {
		label = fmt.Sprintf("%s %s", m.spinner.View(), label)
	}
	return style.Render(label)
}

func (m Model) renderChart(now time.Time) string {
	end := now.Add(time.Duration(m.cfg.ChartHours) * time.Hour)

	var data []float64
	for _, r := range m.snapshot {
		if r.ValidTo.After(now) && r.ValidFrom.Before(end) {
			data = append(data, r.ValueIncVAT.InexactFloat64())
		}
	}
	if len(data) < 2 {
		return HelpStyle.Render("Not enough data to chart")
	}

	width := m.width - 16
	if width < 20 {
		width = 20
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(chartHeight),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("next %dh, p/kWh", m.cfg.ChartHours)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		SectionStyle.Render("Price curve"),
		graph,
	)
}

func (m Model) renderUpcoming(now time.Time, loc *time.Location) string {
	cheapest := analytics.LowestUpcoming(m.snapshot, now, upcomingCount)
	priciest := analytics.HighestUpcoming(m.snapshot, now, upcomingCount)

	var b strings.Builder
	b.WriteString(SectionStyle.Render("Cheapest upcoming"))
	b.WriteString("\n")
	for _, r := range cheapest {
		line := fmt.Sprintf("  %s  %s",
			FormatSlot(r, loc), FormatPrice(r.ValueIncVAT, m.showPounds))
		b.WriteString(m.fitLine(lipgloss.NewStyle().Foreground(Cheap).Render(line)))
		b.WriteString("\n")
	}

	b.WriteString(SectionStyle.Render("Most expensive upcoming"))
	b.WriteString("\n")
	for _, r := range priciest {
		line := fmt.Sprintf("  %s  %s",
			FormatSlot(r, loc), FormatPrice(r.ValueIncVAT, m.showPounds))
		b.WriteString(m.fitLine(lipgloss.NewStyle().Foreground(Peak).Render(line)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderBestWindows(now time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Best times to run appliances"))
	b.WriteString("\n")

	upcoming := upcomingSeries(m.snapshot, now)
	for _, hours := range bestWindowHours {
		windows := analytics.BestAverageWindows(upcoming, hours, 2)
		merged := analytics.MergeOverlappingWindows(windows)
		if len(merged) == 0 {
			continue
		}

		parts := make([]string, len(merged))
		for i, w := range merged {
			parts[i] = FormatWindow(w, loc)
		}
		line := fmt.Sprintf("  %gh: %s", hours, strings.Join(parts, ", "))
		b.WriteString(m.fitLine(line))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderFooter() string {
	unit := "pence"
	if m.showPounds {
		unit = "pounds"
	}
	help := fmt.Sprintf("r refresh • p prices in %s • q quit", unit)
	return HelpStyle.Render(help)
}

// fitLine truncates a styled line to the terminal width.
func (m Model) fitLine(line string) string {
	if m.width <= 0 {
		return line
	}
	return ansi.Truncate(line, m.width-4, "…")
}

// upcomingSeries filters the snapshot to records still in play.
func upcomingSeries(series []models.RateRecord, now time.Time) []models.RateRecord {
	var out []models.RateRecord
	for _, r := range series {
		if r.ValidTo.After(now) {
			out = append(out, r)
		}
	}
	return out
}
