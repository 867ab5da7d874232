// Package export renders stored runs to files outside the terminal.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Hydrograph is the data of an SVG hydrograph. Rates are m/s, times s.
type Hydrograph struct {
	Title     string
	Times     []float64
	Discharge []float64
	Precip    []float64
}

// mm/h in one m/s
const mmPerHour = 3.6e6

// HydrographSVG draws discharge as a line against time with rain hanging
// as bars from the top edge, the usual hydrograph layout.
func HydrographSVG(h Hydrograph, width, height int) (string, error) {
	n := len(h.Discharge)
	if n < 2 {
		return "", fmt.Errorf("hydrograph needs at least 2 points, got %d", n)
	}
	if len(h.Times) != n || (len(h.Precip) != 0 && len(h.Precip) != n) {
		return "", fmt.Errorf("hydrograph series lengths differ: times=%d discharge=%d precip=%d",
			len(h.Times), n, len(h.Precip))
	}

	t0, t1 := h.Times[0], h.Times[n-1]
	spanT := t1 - t0
	if spanT <= 0 {
		spanT = 1
	}
	maxQ := peak(h.Discharge)
	maxP := peak(h.Precip)

	// rain uses the top third, discharge the rest
	w, ht := float64(width), float64(height)
	rainH := ht / 3
	x := func(t float64) float64 { return (t - t0) / spanT * w }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
	if h.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%.1f" fill="#e0f0ff" font-family="monospace" font-size="12">%s (peak %.3g mm/h)</text>
`, ht-8, escape(h.Title), maxQ*mmPerHour))
	}

	if maxP > 0 {
		barW := w / float64(n)
		sb.WriteString(`<g fill="#88aaff" fill-opacity="0.7">` + "\n")
		for i, p := range h.Precip {
			if p <= 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="0" width="%.1f" height="%.1f"/>
`, x(h.Times[i])-barW/2, barW, p/maxP*rainH))
		}
		sb.WriteString("</g>\n")
	}

	scaleQ := maxQ
	if scaleQ <= 0 {
		scaleQ = 1
	}
	sb.WriteString(`<path fill="none" stroke="#00ccff" stroke-width="1.5" d="M`)
	for i, q := range h.Discharge {
		px := x(h.Times[i])
		py := ht - q/scaleQ*(ht-rainH)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String(), nil
}

// WriteHydrographSVG writes the hydrograph to path.
func WriteHydrographSVG(path string, h Hydrograph, width, height int) error {
	svg, err := HydrographSVG(h, width, height)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, svg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func peak(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return escaper.Replace(s) }
