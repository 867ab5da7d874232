// Package forcing reads and generates the meteorological series that drive
// a run: precipitation and potential evapotranspiration rates per step.
package forcing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrFormat indicates a forcing file that cannot be interpreted.
var ErrFormat = errors.New("forcing: malformed series")

// Record is the forcing for one step. Rates are in m/s.
type Record struct {
	Time   float64 `json:"time"`
	Precip float64 `json:"precip"`
	PET    float64 `json:"pet"`
}

type Series []Record

// Load reads a CSV forcing file from path.
func Load(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read parses CSV with a header naming time, precip and pet columns, in
// any order. A missing pet column means zero demand. Times are seconds and
// must increase.
func Read(r io.Reader) (Series, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrFormat)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	timeCol, ok := cols["time"]
	if !ok {
		return nil, fmt.Errorf("%w: no time column", ErrFormat)
	}
	precipCol, ok := cols["precip"]
	if !ok {
		return nil, fmt.Errorf("%w: no precip column", ErrFormat)
	}
	petCol, hasPET := cols["pet"]

	var s Series
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}

		var rec Record
		if rec.Time, err = parseField(row, timeCol); err != nil {
			return nil, fmt.Errorf("%w: line %d time: %v", ErrFormat, line, err)
		}
		if rec.Precip, err = parseField(row, precipCol); err != nil {
			return nil, fmt.Errorf("%w: line %d precip: %v", ErrFormat, line, err)
		}
		if hasPET {
			if rec.PET, err = parseField(row, petCol); err != nil {
				return nil, fmt.Errorf("%w: line %d pet: %v", ErrFormat, line, err)
			}
		}
		if rec.Precip < 0 || rec.PET < 0 {
			return nil, fmt.Errorf("%w: line %d has a negative rate", ErrFormat, line)
		}
		if n := len(s); n > 0 && rec.Time <= s[n-1].Time {
			return nil, fmt.Errorf("%w: line %d time %g does not increase", ErrFormat, line, rec.Time)
		}
		s = append(s, rec)
	}

	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrFormat)
	}
	return s, nil
}

func parseField(row []string, i int) (float64, error) {
	if i >= len(row) {
		return 0, errors.New("missing field")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", row[i])
	}
	return v, nil
}

// Write emits s in the format Read accepts.
func Write(w io.Writer, s Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "precip", "pet"}); err != nil {
		return err
	}
	for _, r := range s {
		row := []string{
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			strconv.FormatFloat(r.Precip, 'g', -1, 64),
			strconv.FormatFloat(r.PET, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Storm builds a series of steps records dt seconds apart: precip for the
// first rainSteps steps, then dry. PET is constant throughout. A negative
// rainSteps rains for the whole series.
func Storm(dt float64, steps int, precip, pet float64, rainSteps int) Series {
	s := make(Series, steps)
	for i := range s {
		s[i] = Record{Time: float64(i) * dt, PET: pet}
		if rainSteps < 0 || i < rainSteps {
			s[i].Precip = precip
		}
	}
	return s
}

// Depth returns the total precipitation depth (m) over s for steps of dt.
func (s Series) Depth(dt float64) float64 {
	total := 0.0
	for _, r := range s {
		total += r.Precip * dt
	}
	return total
}

// Dt infers the step length from the first two records.
func (s Series) Dt() (float64, bool) {
	if len(s) < 2 {
		return 0, false
	}
	return s[1].Time - s[0].Time, true
}
