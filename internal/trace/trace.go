// Package trace records per-stage snapshots of a recommendation run. It
// is a diagnostic aid, not part of the pipeline contract: recorders hook
// in through the pipeline's observer and a failed write never fails the
// run.
package trace

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
)

// Recorder persists a working-set snapshot for one pipeline stage.
type Recorder interface {
	Record(runID string, stage pipeline.Stage, offers []models.Offer) error
}

// Observer adapts a Recorder to the pipeline's observer hook for a single
// run. Recorder failures are logged and swallowed.
func Observer(rec Recorder, runID string) pipeline.Observer {
	return func(stage pipeline.Stage, offers []models.Offer) {
		if err := rec.Record(runID, stage, offers); err != nil {
			log.Printf("stage trace for %s failed: %v", stage, err)
		}
	}
}

// FileRecorder dumps each stage's working set as indented JSON to
// output_<stage>.txt in a directory, the format the original ingest
// script produced.
type FileRecorder struct {
	dir string
}

// NewFileRecorder creates the directory if needed.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace: creating dump directory: %w", err)
	}
	return &FileRecorder{dir: dir}, nil
}

func (f *FileRecorder) Record(runID string, stage pipeline.Stage, offers []models.Offer) error {
	data, err := json.MarshalIndent(offers, "", "    ")
	if err != nil {
		return fmt.Errorf("trace: marshaling %s snapshot: %w", stage, err)
	}
	path := filepath.Join(f.dir, fmt.Sprintf("output_%s.txt", stage))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("trace: writing %s snapshot: %w", stage, err)
	}
	return nil
}
