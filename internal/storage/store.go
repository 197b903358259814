package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/oscnet/internal/config"
	"github.com/san-kum/oscnet/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	configFile   = "config.yaml"
)

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
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Timestamp        time.Time          `json:"timestamp"`
	Oscillators      int                `json:"oscillators"`
	Samples          int                `json:"samples"`
	Events           int                `json:"events"`
	Method           string             `json:"method"`
	Integrator       string             `json:"integrator,omitempty"`
	StepsTaken       int                `json:"steps_taken,omitempty"`
	FinalEnergyDrift float64            `json:"final_energy_drift"`
	Metrics          map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding the metadata, the configuration that
// produced the run and the trajectory table. It returns the run ID.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", cfg.Name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:               runID,
		Name:             cfg.Name,
		Timestamp:        time.Now(),
		Oscillators:      len(cfg.Masses),
		Samples:          len(result.Times),
		Events:           len(cfg.Events),
		Method:           result.Method,
		StepsTaken:       result.StepsTaken,
		FinalEnergyDrift: result.FinalEnergyDrift,
		Metrics:          result.Metrics,
	}
	if result.Method == dynamo.MethodNumeric {
		meta.Integrator = cfg.Solver.Integrator
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return WriteCSV(w, result)
	}); err != nil {
		return "", err
	}

	return runID, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadResult reads the trajectory table of a run back into a Result.
func (s *Store) LoadResult(runID string) (*dynamo.Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if meta, err := s.Load(runID); err == nil {
		res.Method = meta.Method
		res.StepsTaken = meta.StepsTaken
		res.FinalEnergyDrift = meta.FinalEnergyDrift
		res.Metrics = meta.Metrics
	}
	return res, nil
}

// WriteCSV writes the trajectory table: a header of column names, then one
// row per sample.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(result.Columns()); err != nil {
		return err
	}
	for i := range result.States {
		row := result.Row(i)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*dynamo.Result, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header: %w", dynamo.ErrShapeMismatch)
	}

	header := records[0]
	if len(header) < 3 || len(header)%2 == 0 {
		return nil, fmt.Errorf("header has %d columns, want 1+2n: %w", len(header), dynamo.ErrShapeMismatch)
	}

	res := &dynamo.Result{
		Times:   make([]float64, 0, len(records)-1),
		States:  make([]dynamo.State, 0, len(records)-1),
		Metrics: make(map[string]float64),
	}
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, header[j], err)
			}
			values[j] = v
		}
		res.Times = append(res.Times, values[0])
		res.States = append(res.States, dynamo.State(values[1:]))
	}
	return res, nil
}
