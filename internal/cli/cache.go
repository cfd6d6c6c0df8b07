package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bookgeo/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode response cache",
	Long: `Manage the on-disk cache of geocode responses. Cached answers let
reruns over the same book, or different books naming the same places,
skip repeat lookups against the geocoding service.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached geocode response",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.Geocode.Cache.Dir
		if dir == "" {
			dir, err = cache.DefaultDir()
			if err != nil {
				return fmt.Errorf("resolve cache dir: %w", err)
			}
		}

		if err := cache.NewDiskCache(dir, 0).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("✓ Cleared geocode cache: %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
