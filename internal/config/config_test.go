package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detection.EdgeThreshold != 0.3 {
		t.Errorf("EdgeThreshold = %v, want 0.3", cfg.Detection.EdgeThreshold)
	}
	if cfg.Pipeline.CorrectionTarget != 2*time.Second {
		t.Errorf("CorrectionTarget = %v, want 2s", cfg.Pipeline.CorrectionTarget)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.CacheSize != 16 {
		t.Errorf("CacheSize = %d, want 16", cfg.Server.CacheSize)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docrectify.yaml")

	cfg := DefaultConfig()
	cfg.Rectification.RefineCorners = false
	cfg.Detection.Rectangle.MinConfidence = 0.8
	cfg.Pipeline.EdgeTarget = 750 * time.Millisecond

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Rectification.RefineCorners {
		t.Error("RefineCorners should be false")
	}
	if loaded.Detection.Rectangle.MinConfidence != 0.8 {
		t.Errorf("MinConfidence = %v, want 0.8", loaded.Detection.Rectangle.MinConfidence)
	}
	if loaded.Pipeline.EdgeTarget != 750*time.Millisecond {
		t.Errorf("EdgeTarget = %v, want 750ms", loaded.Pipeline.EdgeTarget)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "detection:\n  edgeThreshold: 0.4\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detection.EdgeThreshold != 0.4 {
		t.Errorf("EdgeThreshold = %v, want 0.4", cfg.Detection.EdgeThreshold)
	}
	if cfg.Detection.BlurSigma != 1.0 {
		t.Errorf("BlurSigma = %v, want default 1.0", cfg.Detection.BlurSigma)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("detection: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DOCRECTIFY_LOG_LEVEL", "debug")
	t.Setenv("DOCRECTIFY_PREFER_GPU", "true")
	t.Setenv("DOCRECTIFY_CACHE_SIZE", "4")
	t.Setenv("DOCRECTIFY_OCR_LANGUAGE", "deu")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Pipeline.PreferGPU || cfg.Server.CacheSize != 4 || cfg.OCR.Language != "deu" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestApplyEnv_Malformed(t *testing.T) {
	t.Setenv("DOCRECTIFY_CACHE_SIZE", "lots")

	err := DefaultConfig().ApplyEnv()
	if err == nil || !strings.Contains(err.Error(), "DOCRECTIFY_CACHE_SIZE") {
		t.Errorf("expected cache size error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Detection.EdgeThreshold = 1.5 }},
		{"inset too large", func(c *Config) { c.Detection.FallbackInset = 0.6 }},
		{"zero blur", func(c *Config) { c.Detection.BlurSigma = 0 }},
		{"aspect bounds swapped", func(c *Config) { c.Detection.Rectangle.MinAspectRatio = 4 }},
		{"tiny window", func(c *Config) { c.Rectification.RefineWindow = 2 }},
		{"fit fraction zero", func(c *Config) { c.Rectification.FitFraction = 0 }},
		{"no cache", func(c *Config) { c.Server.CacheSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
