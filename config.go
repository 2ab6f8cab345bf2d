package gonarrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/gonarrate/llm"
	"github.com/brunobiangulo/gonarrate/relation"
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/setting"
)

// Config holds all configuration for the gonarrate engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.gonarrate/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "gonarrate".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.gonarrate/,
	// "local" uses the current working directory, "none" disables the
	// result cache and similarity search.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Classifier is the optional external sentiment model. An empty
	// provider means lexicon-only sentiment.
	Classifier llm.Config `json:"classifier" yaml:"classifier"`

	// LexiconPath is an optional JSON file of lexicon overrides applied at
	// startup (see lexicon.Overrides).
	LexiconPath string `json:"lexicon_path" yaml:"lexicon_path"`

	// Sentiment
	NeutralThreshold float64 `json:"neutral_threshold" yaml:"neutral_threshold"`

	// Context
	HistoricalThreshold float64 `json:"historical_threshold" yaml:"historical_threshold"`
	FuturisticThreshold float64 `json:"futuristic_threshold" yaml:"futuristic_threshold"`

	// Relationships
	RelationWindow int `json:"relation_window" yaml:"relation_window"` // units between co-mentions
	MaxCharacters  int `json:"max_characters" yaml:"max_characters"`

	// Concurrency bounds parallel analyses in batches and files.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns a Config with lexicon-only analysis and the
// database in ~/.gonarrate/gonarrate.db.
func DefaultConfig() Config {
	return Config{
		DBName:              "gonarrate",
		StorageDir:          "home",
		NeutralThreshold:    sentiment.DefaultNeutralThreshold,
		HistoricalThreshold: setting.DefaultHistoricalThreshold,
		FuturisticThreshold: setting.DefaultFuturisticThreshold,
		RelationWindow:      relation.DefaultWindow,
		MaxCharacters:       relation.DefaultMaxCharacters,
		Concurrency:         4,
	}
}

func (c *Config) validate() error {
	switch c.StorageDir {
	case "", "home", "local", "cwd", "none":
	default:
		return fmt.Errorf("%w: storage_dir %q", ErrInvalidConfig, c.StorageDir)
	}
	for name, v := range map[string]float64{
		"neutral_threshold":    c.NeutralThreshold,
		"historical_threshold": c.HistoricalThreshold,
		"futuristic_threshold": c.FuturisticThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalidConfig, name, v)
		}
	}
	if c.RelationWindow < 0 || c.MaxCharacters < 0 || c.Concurrency < 0 {
		return fmt.Errorf("%w: negative window, character limit or concurrency", ErrInvalidConfig)
	}
	return nil
}

// storeEnabled reports whether results are persisted.
func (c *Config) storeEnabled() bool {
	return c.StorageDir != "none" || c.DBPath != ""
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "gonarrate"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".gonarrate", name+".db")
	}
}
