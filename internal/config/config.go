// Package config provides YAML configuration loading for footfit.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Tracking Tracking       `yaml:"tracking"`
	Detector DetectorConfig `yaml:"detector"`
	Store    StoreConfig    `yaml:"store"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	// Facing is the preferred camera, "user" or "environment".
	Facing            string `yaml:"facing"`
	UserDevice        int    `yaml:"user_device"`
	EnvironmentDevice int    `yaml:"environment_device"`
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
}

// PipelineConfig controls the frame loop rate.
type PipelineConfig struct {
	IdleFPS       int     `yaml:"idle_fps"`
	ActiveFPS     int     `yaml:"active_fps"`
	IdleTimeoutMs int     `yaml:"idle_timeout_ms"`
	MotionThresh  float64 `yaml:"motion_threshold"`
}

// Tracking holds the constants of the tracking-to-placement pipeline.
type Tracking struct {
	// VisibilityThreshold is exclusive: a landmark must score above it.
	VisibilityThreshold float64 `yaml:"visibility_threshold"`
	// PositionScale maps normalized offsets from the frame center to object space.
	PositionScale float64 `yaml:"position_scale"`
	// ForwardOffset is the fraction of the ankle to toe vector the anchor is moved by.
	ForwardOffset float64 `yaml:"forward_offset"`
	Depth         float64 `yaml:"depth"`
	ScaleGain     float64 `yaml:"scale_gain"`
	MinScale      float64 `yaml:"min_scale"`
	MaxScale      float64 `yaml:"max_scale"`
	// SmoothingAlpha enables exponential smoothing of the placement when in (0,1).
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	// DebounceFrames is how many consecutive frames a new status must hold before it is published.
	DebounceFrames int `yaml:"debounce_frames"`
}

// DetectorConfig locates the MediaPipe pose service.
type DetectorConfig struct {
	ScriptPath string `yaml:"script_path"`
	PythonPath string `yaml:"python_path"`
	// ReplayPath, when set, replays recorded landmark frames instead of running the pose service.
	ReplayPath string `yaml:"replay_path"`
}

// StoreConfig holds the session history database location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultTracking returns the reference tracking constants.
func DefaultTracking() Tracking {
	return Tracking{
		VisibilityThreshold: 0.5,
		PositionScale:       6,
		ForwardOffset:       0.2,
		Depth:               -2,
		ScaleGain:           2,
		MinScale:            0.05,
		MaxScale:            0.15,
	}
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Camera: CameraConfig{
			Facing:            "environment",
			UserDevice:        0,
			EnvironmentDevice: 0,
			Width:             640,
			Height:            480,
		},
		Pipeline: PipelineConfig{
			IdleFPS:       5,
			ActiveFPS:     15,
			IdleTimeoutMs: 2000,
			MotionThresh:  1.0,
		},
		Tracking: DefaultTracking(),
		Store: StoreConfig{
			Path: filepath.Join(DataDir(), "footfit.db"),
		},
	}
}

// DataDir returns ~/.footfit, or ".footfit" when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".footfit"
	}
	return filepath.Join(home, ".footfit")
}

// Load reads the configuration file at path on top of the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses YAML from r on top of the defaults and validates the result.
func LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Camera.Facing {
	case "user", "environment":
	default:
		return fmt.Errorf("camera.facing must be user or environment, got %q", c.Camera.Facing)
	}
	if c.Pipeline.IdleFPS <= 0 || c.Pipeline.ActiveFPS <= 0 {
		return errors.New("pipeline fps must be positive")
	}
	return c.Tracking.Validate()
}

// Validate checks the tracking constants.
func (t Tracking) Validate() error {
	if t.VisibilityThreshold < 0 || t.VisibilityThreshold >= 1 {
		return fmt.Errorf("tracking.visibility_threshold out of range: %v", t.VisibilityThreshold)
	}
	if t.PositionScale <= 0 {
		return fmt.Errorf("tracking.position_scale must be positive, got %v", t.PositionScale)
	}
	if t.ScaleGain <= 0 {
		return fmt.Errorf("tracking.scale_gain must be positive, got %v", t.ScaleGain)
	}
	if t.MinScale <= 0 || t.MaxScale < t.MinScale {
		return fmt.Errorf("tracking scale clamp invalid: [%v, %v]", t.MinScale, t.MaxScale)
	}
	if t.SmoothingAlpha < 0 || t.SmoothingAlpha > 1 {
		return fmt.Errorf("tracking.smoothing_alpha out of range: %v", t.SmoothingAlpha)
	}
	if t.DebounceFrames < 0 {
		return errors.New("tracking.debounce_frames must not be negative")
	}
	return nil
}
