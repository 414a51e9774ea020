package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"github.com/use-agent/shelfscan/models"
)

// JSONFile writes each run's dataset to {dir}/{slug(query)}-{unix}.json.
type JSONFile struct {
	dir string
	now func() time.Time
}

// NewJSONFile creates a file sink rooted at dir. The directory is created
// on first write.
func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{dir: dir, now: time.Now}
}

func (s *JSONFile) Name() string { return "json" }

// Path returns the file a run for query would be written to at t.
func (s *JSONFile) Path(query string, t time.Time) string {
	name := slug.Make(query)
	if name == "" {
		name = "search"
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d.json", name, t.Unix()))
}

func (s *JSONFile) Write(_ context.Context, res *models.SearchResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("json sink: create dir: %w", err)
	}

	data, err := json.MarshalIndent(records(res), "", "  ")
	if err != nil {
		return fmt.Errorf("json sink: marshal: %w", err)
	}

	path := s.Path(res.Query, s.now())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("json sink: write %s: %w", path, err)
	}
	slog.Info("dataset written", "path", path, "count", res.Count)
	return nil
}
