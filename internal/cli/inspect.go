package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bookgeo/internal/model"
)

var inspectLimit int

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <real_places.json>",
	Short: "Print the top places from a previous run",
	Long: `Inspect reads a real_places.json artifact and prints the first
entries in first-mention order: the surface form the book used, the
address it resolved to and the confidence score.

Example:
  bookgeo inspect outputs/real_places.json
  bookgeo inspect outputs/real_places.json --limit 25`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 10, "number of places to print")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var records []model.PlaceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	fmt.Printf("Found %d real places:\n", len(records))
	for i, rec := range records {
		if i >= inspectLimit {
			break
		}
		original := rec.Candidate.NormalizedName
		if len(rec.Candidate.SurfaceVariants) > 0 {
			original = rec.Candidate.SurfaceVariants[0]
		}
		resolved := rec.Candidate.NormalizedName
		if rec.Geocode != nil && rec.Geocode.FormattedAddress != "" {
			resolved = rec.Geocode.FormattedAddress
		}
		fmt.Printf("- %s -> %s (%.2f)\n", original, resolved, rec.Confidence)
	}
	return nil
}
