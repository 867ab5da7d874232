package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/tshirt/internal/sim"
	"github.com/san-kum/tshirt/internal/tshirt"
)

// Store keeps each run in its own directory under baseDir, holding
// metadata.json and fluxes.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Soil       string             `json:"soil,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Params     tshirt.ParamsSpec  `json:"params"`
	Metrics    map[string]float64 `json:"metrics"`
	Violations int                `json:"violations"`
}

// NewMetadata fills the fields of a run's metadata that come from its result.
func NewMetadata(name, soil string, dt float64, params tshirt.ParamsSpec, result *sim.Result) RunMetadata {
	now := time.Now()
	return RunMetadata{
		ID:         runID(name, now),
		Name:       name,
		Soil:       soil,
		Timestamp:  now,
		Dt:         dt,
		Steps:      result.StepsTaken,
		Params:     params,
		Metrics:    result.Metrics,
		Violations: len(result.Errors),
	}
}

func runID(name string, t time.Time) string {
	safe := strings.NewReplacer("/", "-", " ", "_", string(filepath.Separator), "-").Replace(name)
	return fmt.Sprintf("%s_%d", safe, t.UnixNano())
}

// Save writes meta and the step table of result, returning the run ID.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "fluxes.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := writeSteps(w, result); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

var baseColumns = []string{
	"precip", "pet",
	"surface_runoff", "lateral_flow", "groundwater_flow", "percolation", "et_loss",
	"soil", "groundwater",
}

func writeSteps(w *csv.Writer, result *sim.Result) error {
	stages := 0
	if len(result.States) > 0 {
		stages = len(result.States[0].Cascade)
	}

	header := append([]string{"time"}, baseColumns...)
	for i := 0; i < stages; i++ {
		header = append(header, fmt.Sprintf("cascade_%d", i))
	}
	header = append(header, "residual")
	if err := w.Write(header); err != nil {
		return err
	}

	for i, f := range result.Fluxes {
		rec := result.Forcing[i]
		st := result.States[i+1]
		vals := []float64{
			result.Times[i+1],
			rec.Precip, rec.PET,
			f.SurfaceRunoff, f.SoilLateralFlow, f.GroundwaterFlow, f.SoilPercolation, f.ETLoss,
			st.Soil, st.Groundwater,
		}
		vals = append(vals, st.Cascade...)
		vals = append(vals, result.Balances[i].Residual)

		row := make([]string, len(vals))
		for j, v := range vals {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// Table is a run's step table as stored on disk.
type Table struct {
	Header []string
	Times  []float64
	Rows   [][]float64
}

// Column returns the named column, or nil if the table has none.
func (t *Table) Column(name string) []float64 {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i - 1
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[idx]
	}
	return col
}

func (s *Store) LoadTable(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "fluxes.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s: empty step table", runID)
	}

	t := &Table{
		Header: records[0],
		Times:  make([]float64, 0, len(records)-1),
		Rows:   make([][]float64, 0, len(records)-1),
	}
	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
			}
			vals[j] = v
		}
		t.Times = append(t.Times, vals[0])
		t.Rows = append(t.Rows, vals[1:])
	}
	return t, nil
}
