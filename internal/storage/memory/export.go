// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// ExportVersion is the format version written into every export.
const ExportVersion = 1

// RunExport is the root JSON structure of an exported run.
type RunExport struct {
	Version int `json:"version"`
	core.StatRun
}

var errNoExport = errors.New("no export")

var cleanName = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

func shortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return cleanName.Replace(id)
}

// exportFileName builds <game>_<category>_<timestamp>_<id8>.json[.gz].
func exportFileName(run core.StatRun, compress bool) string {
	name := fmt.Sprintf("%s_%s_%s_%s",
		cleanName.Replace(run.Game),
		cleanName.Replace(run.Category),
		run.CreatedAt.UTC().Format("20060102_150405"),
		shortID(run.ID),
	)
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// exportJSON writes the run to a (gzipped) JSON file in the output directory.
func (b *Backend) exportJSON(run core.StatRun) error {
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(run, b.cfg.CompressOutput))

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	export := RunExport{Version: ExportVersion, StatRun: run}
	if b.cfg.CompressOutput {
		return writeGzipJSON(outputPath, export)
	}
	return writeJSON(outputPath, export)
}

func isExportFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}

// exportFiles lists the export files in the output directory.
func (b *Backend) exportFiles() ([]string, error) {
	if b.cfg.OutputDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isExportFile(e.Name()) {
			paths = append(paths, filepath.Join(b.cfg.OutputDir, e.Name()))
		}
	}
	return paths, nil
}

// readExports decodes every readable export file. Unreadable files are
// skipped.
func (b *Backend) readExports() []*RunExport {
	paths, err := b.exportFiles()
	if err != nil {
		return nil
	}
	var out []*RunExport
	for _, p := range paths {
		if e, err := ReadExport(p); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// findExport reads the export of run id, errNoExport if there is none.
func (b *Backend) findExport(id string) (*RunExport, error) {
	paths, err := b.exportFiles()
	if err != nil {
		return nil, err
	}
	suffix := "_" + shortID(id) + ".json"
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".gz")
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		e, err := ReadExport(p)
		if err != nil {
			return nil, err
		}
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errNoExport
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadExport decodes an export file written by the memory backend.
// Files ending in .gz are decompressed.
func ReadExport(path string) (*RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export RunExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}
