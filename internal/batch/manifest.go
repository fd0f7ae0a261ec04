package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one model in the output manifest.
type ManifestEntry struct {
	Name        string `json:"name"`
	Output      string `json:"output,omitempty"`
	Points      int    `json:"points"`
	Faces       int    `json:"faces"`
	Budget      int    `json:"budget"`
	BudgetFaces int    `json:"budget_faces"`
	Dropped     int    `json:"dropped,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// WriteManifest writes a JSON manifest of results to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:        r.Name,
			Output:      r.Output,
			Points:      r.Points,
			Faces:       r.Faces,
			Budget:      r.Budget,
			BudgetFaces: r.Kept,
			Dropped:     r.Dropped,
			DurationMS:  r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			entries[i].Error = r.Err.Error()
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
