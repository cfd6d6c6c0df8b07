package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/bookgeo/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bookgeo",
	Short: "Bookgeo - Extract and geocode place names from books",
	Long: `Bookgeo reads a book, asks an LLM for the place names it mentions,
geocodes every unique candidate and splits the results into real places
and fictional or unresolved entries.

Each run writes real_places.json, fictional_places.json, real_places.csv
and report.json into the output directory.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Bookgeo.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bookgeo v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.bookgeo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the config file, a local .env and BOOKGEO_*
// environment variables
func initConfig() {
	// API keys may live in a .env file next to the book.
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.bookgeo")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match BOOKGEO_*
	viper.SetEnvPrefix("BOOKGEO")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the runtime configuration: defaults first, then the
// config file and environment. API keys never come from here; commands that
// talk to backends call resolveAPIKeys after applying their flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// resolveAPIKeys pulls the credentials for the configured backends from the
// environment. Missing keys surface later as InvalidConfig errors from the
// constructors, so commands that never reach a backend stay usable without
// credentials.
func resolveAPIKeys(cfg *model.Config) {
	switch cfg.Extract.Provider {
	case "anthropic", "claude":
		cfg.Extract.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		// Ollama doesn't need an API key
		if cfg.Extract.BaseURL == "" {
			cfg.Extract.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	default:
		cfg.Extract.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.Geocode.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Review.APIKey = os.Getenv("OPENAI_API_KEY")
}
