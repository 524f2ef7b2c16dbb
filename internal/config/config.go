package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the application configuration root.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig configures the metadata store.
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig configures the progress cache.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl"`
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig configures filesystem-backed storage.
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`
	BaseURL       string `mapstructure:"base_url"`
	PresignExpiry int    `mapstructure:"presign_expiry"` // seconds
}

// OSSConfig configures Aliyun OSS storage.
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	PresignExpiry   int    `mapstructure:"presign_expiry"` // seconds
}

// SandboxConfig configures the render sandbox provider and the bounded
// interaction with it.
type SandboxConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	CreateAttempts   int           `mapstructure:"create_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay"`
	ExecTimeout      time.Duration `mapstructure:"exec_timeout"`
	ReadChunkBytes   int64         `mapstructure:"read_chunk_bytes"` // binary bytes per extraction read
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	FetchAttempts    int           `mapstructure:"fetch_attempts"`
	MaxAssetBytes    int64         `mapstructure:"max_asset_bytes"` // per-asset fetch ceiling
}

// FrameConfig is one output geometry.
type FrameConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// PipelineConfig centralizes every assembly and transport tunable so no
// component re-declares its own magic numbers.
type PipelineConfig struct {
	Renderer             string        `mapstructure:"renderer"` // filtergraph, scenedoc
	TransitionSec        float64       `mapstructure:"transition_sec"`
	FPS                  int           `mapstructure:"fps"`
	ZoomMax              float64       `mapstructure:"zoom_max"`
	Portrait             FrameConfig   `mapstructure:"portrait"`
	Landscape            FrameConfig   `mapstructure:"landscape"`
	OverlayLocale        string        `mapstructure:"overlay_locale"`
	FontFile             string        `mapstructure:"font_file"`
	SceneCommand         string        `mapstructure:"scene_command"`
	RenderTimeout        time.Duration `mapstructure:"render_timeout"`
	DurationToleranceSec float64       `mapstructure:"duration_tolerance_sec"`
	PartSizeBytes        int64         `mapstructure:"part_size_bytes"`   // storage multipart part size
	ChunkSizeBytes       int64         `mapstructure:"chunk_size_bytes"`  // platform resumable chunk size
	UploadAttempts       int           `mapstructure:"upload_attempts"`   // per part/chunk retry budget
	PipelineTimeout      time.Duration `mapstructure:"pipeline_timeout"`  // whole-render ceiling
}

// YouTubeConfig configures platform delivery.
type YouTubeConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RefreshToken string        `mapstructure:"refresh_token"`
	CategoryID   string        `mapstructure:"category_id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// resumable uploads reject non-final chunks that are not 256 KiB aligned
const chunkAlignment = 256 * 1024

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	switch c.Pipeline.Renderer {
	case "filtergraph", "scenedoc":
	default:
		return fmt.Errorf("invalid pipeline renderer %q, must be filtergraph/scenedoc", c.Pipeline.Renderer)
	}
	if c.Pipeline.FPS <= 0 {
		return errors.New("pipeline fps must be positive")
	}
	if c.Pipeline.TransitionSec < 0 {
		return errors.New("pipeline transition_sec must not be negative")
	}
	if c.Pipeline.ZoomMax < 1.0 {
		return errors.New("pipeline zoom_max must be at least 1.0")
	}
	if c.Pipeline.PartSizeBytes <= 0 {
		return errors.New("pipeline part_size_bytes must be positive")
	}
	if c.Pipeline.ChunkSizeBytes <= 0 || c.Pipeline.ChunkSizeBytes%chunkAlignment != 0 {
		return errors.New("pipeline chunk_size_bytes must be a positive multiple of 256 KiB")
	}
	return nil
}
