// Package config provides configuration loading for the rectification server.
// Values come from a YAML file, fall back to defaults when the file is
// absent, and can be overridden through DOCRECTIFY_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	Detection     DetectionConfig     `yaml:"detection"`
	Rectification RectificationConfig `yaml:"rectification"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	OCR           OCRConfig           `yaml:"ocr"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DetectionConfig tunes the edge/corner detector.
type DetectionConfig struct {
	// ContrastPercent is the contrast boost applied before gradients (-100..100).
	ContrastPercent float64 `yaml:"contrastPercent"`

	// BlurSigma is the Gaussian sigma used to suppress noise.
	BlurSigma float64 `yaml:"blurSigma"`

	// ErodeRadius is the radius of the morphological minimum pass.
	ErodeRadius float64 `yaml:"erodeRadius"`

	// EdgeThreshold binarizes the gradient magnitude on a [0,1] scale.
	EdgeThreshold float64 `yaml:"edgeThreshold"`

	// FallbackInset is the fraction of each dimension used by the inset fallback.
	FallbackInset float64 `yaml:"fallbackInset"`

	// ReferenceArea is the quadrilateral area that scores a full area score.
	ReferenceArea float64 `yaml:"referenceArea"`

	Rectangle RectangleConfig `yaml:"rectangle"`
}

// RectangleConfig constrains the rectangle-detection capability.
type RectangleConfig struct {
	MinConfidence   float64 `yaml:"minConfidence"`
	MinAspectRatio  float64 `yaml:"minAspectRatio"`
	MaxAspectRatio  float64 `yaml:"maxAspectRatio"`
	MinSize         float64 `yaml:"minSize"`
	MaxObservations int     `yaml:"maxObservations"`
}

// RectificationConfig tunes the perspective rectifier.
type RectificationConfig struct {
	RefineCorners bool    `yaml:"refineCorners"`
	RefineWindow  int     `yaml:"refineWindow"`
	SnapTolerance float64 `yaml:"snapTolerance"`
	FitFraction   float64 `yaml:"fitFraction"`
	SharpenSigma  float64 `yaml:"sharpenSigma"`
}

// PipelineConfig tunes the coordinator.
type PipelineConfig struct {
	// PreferGPU requests an accelerated rendering context when available.
	PreferGPU bool `yaml:"preferGPU"`

	// MemoryEstimateBytes is reported as the memory estimate; it is not measured.
	MemoryEstimateBytes int64 `yaml:"memoryEstimateBytes"`

	// EdgeTarget and CorrectionTarget are latency targets, not timeouts.
	EdgeTarget       time.Duration `yaml:"edgeTarget"`
	CorrectionTarget time.Duration `yaml:"correctionTarget"`
}

// OCRConfig configures the downstream text recognizer.
type OCRConfig struct {
	Language string `yaml:"language"`
	Force    bool   `yaml:"force"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	CacheSize int `yaml:"cacheSize"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.ContrastPercent = 20
	cfg.Detection.BlurSigma = 1.0
	cfg.Detection.ErodeRadius = 0.5
	cfg.Detection.EdgeThreshold = 0.3
	cfg.Detection.FallbackInset = 0.05
	cfg.Detection.ReferenceArea = 250000
	cfg.Detection.Rectangle = RectangleConfig{
		MinConfidence:   0.7,
		MinAspectRatio:  0.3,
		MaxAspectRatio:  3.0,
		MinSize:         0.1,
		MaxObservations: 1,
	}

	cfg.Rectification = RectificationConfig{
		RefineCorners: true,
		RefineWindow:  20,
		SnapTolerance: 0.2,
		FitFraction:   0.9,
		SharpenSigma:  0.5,
	}

	cfg.Pipeline = PipelineConfig{
		PreferGPU:           false,
		MemoryEstimateBytes: 50 * 1024 * 1024,
		EdgeTarget:          time.Second,
		CorrectionTarget:    2 * time.Second,
	}

	cfg.OCR = OCRConfig{Language: "eng"}
	cfg.Server = ServerConfig{CacheSize: 16}
	cfg.Logging = LoggingConfig{Level: "info", Format: "json"}

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// An empty path or a missing file yields the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from DOCRECTIFY_* environment variables.
// Malformed numeric or boolean values are reported, not ignored.
func (c *Config) ApplyEnv() error {
	c.Logging.Level = getEnvOrDefault("DOCRECTIFY_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("DOCRECTIFY_LOG_FORMAT", c.Logging.Format)
	c.OCR.Language = getEnvOrDefault("DOCRECTIFY_OCR_LANGUAGE", c.OCR.Language)

	var err error
	if c.Pipeline.PreferGPU, err = getEnvAsBoolOrDefault("DOCRECTIFY_PREFER_GPU", c.Pipeline.PreferGPU); err != nil {
		return err
	}
	if c.Rectification.RefineCorners, err = getEnvAsBoolOrDefault("DOCRECTIFY_REFINE_CORNERS", c.Rectification.RefineCorners); err != nil {
		return err
	}
	if c.Server.CacheSize, err = getEnvAsIntOrDefault("DOCRECTIFY_CACHE_SIZE", c.Server.CacheSize); err != nil {
		return err
	}
	return nil
}

// Validate rejects out-of-range tuning values.
func (c *Config) Validate() error {
	unit := map[string]float64{
		"detection.edgeThreshold":           c.Detection.EdgeThreshold,
		"detection.fallbackInset":           c.Detection.FallbackInset,
		"detection.rectangle.minConfidence": c.Detection.Rectangle.MinConfidence,
		"detection.rectangle.minSize":       c.Detection.Rectangle.MinSize,
		"rectification.snapTolerance":       c.Rectification.SnapTolerance,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}

	if c.Detection.FallbackInset >= 0.5 {
		return fmt.Errorf("detection.fallbackInset must be below 0.5, got %v", c.Detection.FallbackInset)
	}
	if c.Detection.BlurSigma <= 0 {
		return fmt.Errorf("detection.blurSigma must be positive, got %v", c.Detection.BlurSigma)
	}
	if c.Detection.ErodeRadius <= 0 {
		return fmt.Errorf("detection.erodeRadius must be positive, got %v", c.Detection.ErodeRadius)
	}
	if c.Detection.ReferenceArea <= 0 {
		return fmt.Errorf("detection.referenceArea must be positive, got %v", c.Detection.ReferenceArea)
	}
	if c.Detection.Rectangle.MinAspectRatio > c.Detection.Rectangle.MaxAspectRatio {
		return fmt.Errorf("detection.rectangle.minAspectRatio (%v) exceeds maxAspectRatio (%v)",
			c.Detection.Rectangle.MinAspectRatio, c.Detection.Rectangle.MaxAspectRatio)
	}
	if c.Detection.Rectangle.MaxObservations < 1 {
		return fmt.Errorf("detection.rectangle.maxObservations must be at least 1")
	}
	if c.Rectification.RefineWindow <= 2 {
		return fmt.Errorf("rectification.refineWindow must be greater than 2, got %d", c.Rectification.RefineWindow)
	}
	if c.Rectification.FitFraction <= 0 || c.Rectification.FitFraction > 1 {
		return fmt.Errorf("rectification.fitFraction must be in (0,1], got %v", c.Rectification.FitFraction)
	}
	if c.Rectification.SharpenSigma < 0 {
		return fmt.Errorf("rectification.sharpenSigma must not be negative")
	}
	if c.Server.CacheSize < 1 {
		return fmt.Errorf("server.cacheSize must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
