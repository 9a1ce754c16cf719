package slide

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gioui.org/unit"
	"github.com/BurntSushi/toml"
	"go.uber.org/atomic"
	"honnef.co/go/slideback/gesture"
)

// Config describes the geometry and feel of the edge drag.
//
// Distances are in density-independent pixels and velocities in dp per
// millisecond; the controller scales them to pixels. A Config is read once
// by NewController. Only the enabled flag may change afterwards, and it may
// do so from any goroutine.
type Config struct {
	// Edge is the tracking edge.
	Edge gesture.Edge `toml:"edge"`
	// Threshold is the fraction of the tracking axis the surface has to be
	// dragged for a release to dismiss it.
	Threshold float32 `toml:"threshold"`
	// FlickVelocity is the release velocity above which the surface is
	// dismissed regardless of Threshold.
	FlickVelocity float32 `toml:"flick_velocity"`
	// EdgeBand is the width of the area along Edge in which a drag may start.
	EdgeBand unit.Dp `toml:"edge_band"`
	// MinDistance is how far the pointer has to move before the drag is
	// told apart from scrolling.
	MinDistance unit.Dp `toml:"min_distance"`
	// Slope is the ratio by which movement along the axis has to exceed
	// movement across it for the drag to be captured.
	Slope float32 `toml:"slope"`
	// VelocityWindow is how much pointer history velocities are computed
	// over.
	VelocityWindow time.Duration `toml:"velocity_window"`
	// SettleVelocity is the minimum speed of the settle animation.
	SettleVelocity float32 `toml:"settle_velocity"`
	// SettleMin and SettleMax bound the duration of the settle animation.
	SettleMin time.Duration `toml:"settle_min"`
	SettleMax time.Duration `toml:"settle_max"`

	// Logger receives debug output. A nil Logger discards it.
	Logger *slog.Logger `toml:"-"`

	disabled atomic.Bool
}

func DefaultConfig() *Config {
	return &Config{
		Edge:           gesture.EdgeLeft,
		Threshold:      0.5,
		FlickVelocity:  1.5,
		EdgeBand:       20,
		MinDistance:    10,
		Slope:          1.5,
		VelocityWindow: gesture.DefaultVelocityWindow,
		SettleVelocity: 2,
		SettleMin:      150 * time.Millisecond,
		SettleMax:      400 * time.Millisecond,
	}
}

// Clone returns a copy of cfg with its own enabled flag.
func (cfg *Config) Clone() *Config {
	out := &Config{
		Edge:           cfg.Edge,
		Threshold:      cfg.Threshold,
		FlickVelocity:  cfg.FlickVelocity,
		EdgeBand:       cfg.EdgeBand,
		MinDistance:    cfg.MinDistance,
		Slope:          cfg.Slope,
		VelocityWindow: cfg.VelocityWindow,
		SettleVelocity: cfg.SettleVelocity,
		SettleMin:      cfg.SettleMin,
		SettleMax:      cfg.SettleMax,
		Logger:         cfg.Logger,
	}
	out.SetEnabled(cfg.Enabled())
	return out
}

func (cfg *Config) Enabled() bool {
	return !cfg.disabled.Load()
}

// SetEnabled toggles the enabled flag. It is safe to call from any goroutine,
// but it doesn't reset a gesture in progress by itself; the controller
// notices the change on its next event or tick. Use Controller.SetEnabled on
// the UI goroutine to reset immediately.
func (cfg *Config) SetEnabled(b bool) {
	cfg.disabled.Store(!b)
}

// Validate checks that all values are in range.
func (cfg *Config) Validate() error {
	var problems []string
	if !cfg.Edge.Valid() {
		problems = append(problems, fmt.Sprintf("unknown edge %d", uint8(cfg.Edge)))
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("threshold %v not in (0, 1]", cfg.Threshold))
	}
	if cfg.FlickVelocity <= 0 {
		problems = append(problems, fmt.Sprintf("flick velocity %v must be positive", cfg.FlickVelocity))
	}
	if cfg.EdgeBand <= 0 {
		problems = append(problems, fmt.Sprintf("edge band %v must be positive", cfg.EdgeBand))
	}
	if cfg.MinDistance < 0 {
		problems = append(problems, fmt.Sprintf("min distance %v must not be negative", cfg.MinDistance))
	}
	if cfg.Slope < 1 {
		problems = append(problems, fmt.Sprintf("slope %v must be at least 1", cfg.Slope))
	}
	if cfg.VelocityWindow <= 0 {
		problems = append(problems, fmt.Sprintf("velocity window %s must be positive", cfg.VelocityWindow))
	}
	if cfg.SettleVelocity <= 0 {
		problems = append(problems, fmt.Sprintf("settle velocity %v must be positive", cfg.SettleVelocity))
	}
	if cfg.SettleMin <= 0 || cfg.SettleMax < cfg.SettleMin {
		problems = append(problems, fmt.Sprintf("settle duration bounds [%s, %s] are invalid", cfg.SettleMin, cfg.SettleMax))
	}
	if len(problems) > 0 {
		return &ConfigError{
			Op:  "validate config",
			Err: fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; ")),
		}
	}
	return nil
}

// LoadConfig reads a TOML configuration. Keys that are absent keep their
// default values.
func LoadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return nil, &ConfigError{Op: "parse config", Err: err}
	}
	var extra struct {
		Enabled *bool `toml:"enabled"`
	}
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&extra); err != nil {
		return nil, &ConfigError{Op: "parse config", Err: err}
	}
	if extra.Enabled != nil {
		cfg.SetEnabled(*extra.Enabled)
	}

	for _, key := range md.Undecoded() {
		if key.String() == "enabled" {
			continue
		}
		return nil, &ConfigError{Op: "parse config", Err: fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key.String())}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	defer f.Close()
	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.New(slog.DiscardHandler)
}
