package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/tshirt/internal/tshirt"
)

// Tank is one storage drawn in the live view. Fill is the fraction of
// capacity held.
type Tank struct {
	Label string
	Fill  float64
}

// Tanks lists the storages of s in flow order: soil, each cascade stage,
// then groundwater.
func Tanks(s tshirt.State, p tshirt.Params) []Tank {
	tanks := make([]Tank, 0, len(s.Cascade)+2)
	tanks = append(tanks, Tank{Label: "soil", Fill: fraction(s.Soil, p.MaxSoilStorage())})
	for i, c := range s.Cascade {
		tanks = append(tanks, Tank{Label: fmt.Sprintf("n%d", i+1), Fill: fraction(c, p.MaxSoilStorage())})
	}
	tanks = append(tanks, Tank{Label: "gw", Fill: fraction(s.Groundwater, p.MaxGroundwaterStorage())})
	return tanks
}

func fraction(v, capacity float64) float64 {
	if !(capacity > 0) {
		return 0
	}
	return min(max(v/capacity, 0), 1)
}

// DrawTanks clears c and draws tanks side by side, each filled from the
// bottom to its level.
func DrawTanks(c *Canvas, tanks []Tank) {
	c.Clear()
	if len(tanks) == 0 {
		return
	}

	w, h := c.Dots()
	slot := w / len(tanks)
	if slot < 4 {
		return
	}
	top, bottom := 1, h-1

	for i, t := range tanks {
		x0, x1 := i*slot+1, (i+1)*slot-2
		c.Rect(x0, top, x1, bottom)

		level := int(t.Fill * float64(bottom-top-1))
		if level > 0 {
			c.FillRect(x0+1, bottom-level, x1-1, bottom-1)
		}
	}
}

// TankLabels returns a line of labels centred under the tanks DrawTanks
// lays out on a canvas width cells wide.
func TankLabels(tanks []Tank, width int) string {
	if len(tanks) == 0 {
		return ""
	}
	cell := width / len(tanks)
	var b strings.Builder
	for _, t := range tanks {
		label := fmt.Sprintf("%s %3.0f%%", t.Label, t.Fill*100)
		if len(label) > cell {
			label = t.Label
		}
		pad := max(cell-len(label), 0)
		b.WriteString(strings.Repeat(" ", pad/2) + label + strings.Repeat(" ", pad-pad/2))
	}
	return b.String()
}
