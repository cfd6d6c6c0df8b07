package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/bookgeo/internal/model"
)

func sampleReport() *model.Report {
	geo := parisResult()
	return &model.Report{
		RunID:          "run-1",
		Source:         "book.txt",
		Language:       "en",
		Extractor:      "stub",
		ChunkCount:     1,
		MentionCount:   3,
		CandidateCount: 2,
		Real: []model.PlaceRecord{
			{
				Candidate: model.PlaceCandidate{
					NormalizedName:  "paris",
					SurfaceVariants: []string{"Paris"},
					MentionCount:    2,
					MentionOffsets:  []int{11, 40},
					Language:        "en",
				},
				Geocode:        &geo,
				Confidence:     1.0,
				Classification: model.ClassReal,
				Reason:         "geocoded (ROOFTOP)",
			},
		},
		Fictional: []model.PlaceRecord{
			{
				Candidate: model.PlaceCandidate{
					NormalizedName:  "gondor",
					SurfaceVariants: []string{"Gondor"},
					MentionCount:    1,
					MentionOffsets:  []int{70},
					Language:        "en",
				},
				Confidence:     0,
				Classification: model.ClassFictionalOrUnresolved,
				Reason:         "no geocode match",
			},
		},
	}
}

func TestRenderer_Write(t *testing.T) {
	dir := t.TempDir()
	if err := NewRenderer(true).Write(sampleReport(), dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, name := range []string{"real_places.json", "fictional_places.json", "report.json", "real_places.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "real_places.json"))
	if err != nil {
		t.Fatalf("Failed to read real places: %v", err)
	}
	var real []model.PlaceRecord
	if err := json.Unmarshal(data, &real); err != nil {
		t.Fatalf("Failed to parse real places: %v", err)
	}
	if len(real) != 1 || real[0].Candidate.NormalizedName != "paris" {
		t.Errorf("Unexpected real places: %+v", real)
	}

	data, err = os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}
	if report.RunID != "run-1" || report.CandidateCount != 2 {
		t.Errorf("Unexpected report: run %s, %d candidates", report.RunID, report.CandidateCount)
	}
}

func TestRenderer_Write_CSVColumns(t *testing.T) {
	dir := t.TempDir()
	if err := NewRenderer(true).Write(sampleReport(), dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "real_places.csv"))
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and one row, got %d rows", len(rows))
	}
	if rows[0][0] != "original_name" || rows[0][5] != "confidence" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	row := rows[1]
	if row[0] != "Paris" || row[1] != "Paris, France" {
		t.Errorf("Unexpected name columns: %v", row)
	}
	if row[4] != "en" || row[5] != "1.00" {
		t.Errorf("Unexpected language or confidence: %v", row)
	}
}

func TestRenderer_Write_NoCSV(t *testing.T) {
	dir := t.TempDir()
	if err := NewRenderer(false).Write(sampleReport(), dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "real_places.csv")); !os.IsNotExist(err) {
		t.Errorf("Expected no CSV artifact, stat returned %v", err)
	}
}

func TestRenderer_Write_EmptyPartitions(t *testing.T) {
	dir := t.TempDir()
	report := &model.Report{
		RunID:     "run-2",
		Real:      []model.PlaceRecord{},
		Fictional: []model.PlaceRecord{},
	}
	if err := NewRenderer(true).Write(report, dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "real_places.json"))
	if err != nil {
		t.Fatalf("Failed to read real places: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected an empty JSON array, got %q", string(data))
	}
}
