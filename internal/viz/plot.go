package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// mm/h in one m/s
const mmPerHour = 3.6e6

// MillimetresPerHour converts rates in m/s.
func MillimetresPerHour(rates []float64) []float64 {
	out := make([]float64, len(rates))
	for i, r := range rates {
		out[i] = r * mmPerHour
	}
	return out
}

// Downsample reduces values to at most width points, keeping the largest
// value of each bucket so peaks survive.
func Downsample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return append([]float64(nil), values...)
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		peak := values[lo]
		for _, v := range values[lo+1 : hi] {
			peak = max(peak, v)
		}
		out[i] = peak
	}
	return out
}

// RenderHydrograph plots discharge and, when given, precipitation rates
// (m/s) in mm/h.
func RenderHydrograph(discharge, precip []float64, width, height int) string {
	if len(discharge) == 0 {
		return Subtle.Render("no data to plot")
	}

	series := [][]float64{MillimetresPerHour(Downsample(discharge, width))}
	legend := lipgloss.NewStyle().Foreground(CurrentTheme.Water).Render("━ discharge")
	if len(precip) > 0 {
		series = append(series, MillimetresPerHour(Downsample(precip, width)))
		legend += "  " + lipgloss.NewStyle().Foreground(CurrentTheme.Rain).Render("━ rain")
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(CurrentTheme.Series[:len(series)]...),
		asciigraph.Caption("mm/h"),
	)
	return graph + "\n" + legend
}

// RenderSeries plots a single labelled series.
func RenderSeries(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return Subtle.Render("no data to plot")
	}
	return asciigraph.Plot(Downsample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
		asciigraph.Caption(caption),
	)
}

// RenderSummary lays out run metrics in a panel, sorted by name.
func RenderSummary(title string, metrics map[string]float64, violations int) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title) + "\n\n")
	for _, name := range names {
		b.WriteString(Metric(name, "%.6g", metrics[name]) + "\n")
	}

	status := StatusRunning.Render("closed")
	if violations > 0 {
		status = StatusFailed.Render(fmt.Sprintf("%d violations", violations))
	}
	b.WriteString("\n" + MetricLabel.Render("mass balance") + status)
	return GlassPanel.Render(b.String())
}
