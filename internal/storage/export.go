package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/oscnet/internal/dynamo"
)

type ExportData struct {
	Run     *RunMetadata       `json:"run,omitempty"`
	Columns []string           `json:"columns"`
	Times   []float64          `json:"times"`
	States  [][]float64        `json:"states"`
	Metrics map[string]float64 `json:"metrics"`
}

// WriteJSON writes the trajectory, and the run metadata when known, as one
// indented JSON document.
func WriteJSON(w io.Writer, meta *RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		Run:     meta,
		Columns: result.Columns(),
		Times:   result.Times,
		States:  make([][]float64, len(result.States)),
		Metrics: result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
