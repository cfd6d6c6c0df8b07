package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Renderer writes the run artifacts into an output directory: the two
// partition files, the machine-readable run report and, when enabled, a
// CSV flattening of the real places.
type Renderer struct {
	csv bool
}

// NewRenderer returns a renderer. csv controls whether real_places.csv is
// written alongside the JSON artifacts.
func NewRenderer(csv bool) *Renderer {
	return &Renderer{csv: csv}
}

// Write renders all artifacts for report into dir, creating the directory
// if needed: real_places.json, fictional_places.json, report.json and
// optionally real_places.csv.
func (r *Renderer) Write(report *model.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "real_places.json"), report.Real); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "fictional_places.json"), report.Fictional); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "report.json"), report); err != nil {
		return err
	}
	if r.csv {
		if err := writeCSV(filepath.Join(dir, "real_places.csv"), report.Real); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// csvHeader is the stable column order of real_places.csv.
var csvHeader = []string{
	"original_name", "normalized_name", "latitude", "longitude",
	"language", "confidence",
}

func writeCSV(path string, records []model.PlaceRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, csvHeader)
	for _, rec := range records {
		rows = append(rows, csvRow(rec))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// csvRow flattens one real place: the surface form the text used, the
// address the geocoder resolved it to, and the coordinates.
func csvRow(rec model.PlaceRecord) []string {
	original := rec.Candidate.NormalizedName
	if len(rec.Candidate.SurfaceVariants) > 0 {
		original = rec.Candidate.SurfaceVariants[0]
	}

	normalized := rec.Candidate.NormalizedName
	var lat, lng string
	if rec.Geocode != nil {
		if rec.Geocode.FormattedAddress != "" {
			normalized = rec.Geocode.FormattedAddress
		}
		lat = strconv.FormatFloat(rec.Geocode.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(rec.Geocode.Lng, 'f', -1, 64)
	}

	return []string{
		original,
		normalized,
		lat,
		lng,
		rec.Candidate.Language,
		strconv.FormatFloat(rec.Confidence, 'f', 2, 64),
	}
}
