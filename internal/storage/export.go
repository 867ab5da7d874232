package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/tshirt/internal/sim"
	"github.com/san-kum/tshirt/internal/tshirt"
)

type ExportData struct {
	Name     string               `json:"name"`
	Soil     string               `json:"soil,omitempty"`
	Dt       float64              `json:"dt"`
	Steps    int                  `json:"steps"`
	Params   tshirt.ParamsSpec    `json:"params"`
	Times    []float64            `json:"times"`
	States   []tshirt.State       `json:"states,omitempty"`
	Fluxes   []tshirt.Fluxes      `json:"fluxes,omitempty"`
	Balances []tshirt.MassBalance `json:"balances,omitempty"`
	Metrics  map[string]float64   `json:"metrics"`

	// Columns holds a stored step table by column name when the run is
	// exported from disk rather than from a live result.
	Columns map[string][]float64 `json:"columns,omitempty"`
}

func NewExportData(meta RunMetadata, result *sim.Result) ExportData {
	return ExportData{
		Name:     meta.Name,
		Soil:     meta.Soil,
		Dt:       meta.Dt,
		Steps:    result.StepsTaken,
		Params:   meta.Params,
		Times:    result.Times,
		States:   result.States,
		Fluxes:   result.Fluxes,
		Balances: result.Balances,
		Metrics:  result.Metrics,
	}
}

// NewTableExport builds an export from a stored run. Times are step ends.
func NewTableExport(meta RunMetadata, t *Table) ExportData {
	cols := make(map[string][]float64, len(t.Header))
	for _, name := range t.Header[1:] {
		cols[name] = t.Column(name)
	}
	return ExportData{
		Name:    meta.Name,
		Soil:    meta.Soil,
		Dt:      meta.Dt,
		Steps:   len(t.Rows),
		Params:  meta.Params,
		Times:   t.Times,
		Metrics: meta.Metrics,
		Columns: cols,
	}
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
