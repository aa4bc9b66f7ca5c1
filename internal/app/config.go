package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "TRIWIZARD_"

// Config controls runtime behavior for the TUI app.
type Config struct {
	DataDir    string   `env:"DATA_DIR"`
	LogPath    string   `env:"LOG_PATH"`
	Debug      bool     `env:"DEBUG"`
	ScriptPath string   `env:"SCRIPT"`
	Seed       uint64   `env:"SEED"`
	ASCIIOnly  bool     `env:"ASCII"`
	NoHistory  bool     `env:"NO_HISTORY"`
	UI         UIConfig `envPrefix:"UI_"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
}

func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			StyleVariant: "great_hall",
			MotionLevel:  "full",
		},
	}
}

// LoadEnv overlays TRIWIZARD_* variables onto cfg. Unset variables leave
// the current values alone.
func LoadEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.UI.StyleVariant {
	case "", "great_hall", "parchment", "retro_terminal", "twilight":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "great_hall"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}

	if c.DataDir == "" {
		dir, err := gap.NewScope(gap.User, "triwizard").DataPath("")
		if err != nil {
			return errors.New("cannot resolve user data directory")
		}
		c.DataDir = dir
	}

	return nil
}

// HistoryPath is where the run history database lives.
func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
