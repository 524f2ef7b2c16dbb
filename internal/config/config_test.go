package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "debug"},
		Pipeline: PipelineConfig{
			Renderer:       "filtergraph",
			TransitionSec:  1.0,
			FPS:            30,
			ZoomMax:        1.2,
			PartSizeBytes:  15 * 1024 * 1024,
			ChunkSizeBytes: 8 * 1024 * 1024,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "bad mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: "invalid server mode"},
		{name: "bad renderer", mutate: func(c *Config) { c.Pipeline.Renderer = "gpu" }, wantErr: "invalid pipeline renderer"},
		{name: "zero fps", mutate: func(c *Config) { c.Pipeline.FPS = 0 }, wantErr: "fps must be positive"},
		{name: "negative transition", mutate: func(c *Config) { c.Pipeline.TransitionSec = -1 }, wantErr: "transition_sec"},
		{name: "zoom below one", mutate: func(c *Config) { c.Pipeline.ZoomMax = 0.8 }, wantErr: "zoom_max"},
		{name: "zero part size", mutate: func(c *Config) { c.Pipeline.PartSizeBytes = 0 }, wantErr: "part_size_bytes"},
		{name: "unaligned chunk size", mutate: func(c *Config) { c.Pipeline.ChunkSizeBytes = 1000000 }, wantErr: "256 KiB"},
		{name: "zero chunk size", mutate: func(c *Config) { c.Pipeline.ChunkSizeBytes = 0 }, wantErr: "256 KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
