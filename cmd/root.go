package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"newsreel/internal/config"
	"newsreel/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "newsreel",
	Short: "Newsreel - slide-to-video assembly service",
	Long: `Newsreel assembles slide images and narrated audio clips into one
continuous briefing video, persists the artifact to object storage via
multipart upload, and publishes it to the video platform via a resumable
upload session.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.newsreel")
	}

	viper.SetEnvPrefix("NEWSREEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "newsreel")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.progress_ttl", "24h")

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./data/storage")
	viper.SetDefault("storage.local.base_url", "http://localhost:8080/files")
	viper.SetDefault("storage.local.presign_expiry", 3600)

	// Sandbox
	viper.SetDefault("sandbox.base_url", "http://localhost:8090")
	viper.SetDefault("sandbox.create_attempts", 3)
	viper.SetDefault("sandbox.retry_base_delay", "500ms")
	viper.SetDefault("sandbox.retry_max_delay", "10s")
	viper.SetDefault("sandbox.exec_timeout", "2m")
	viper.SetDefault("sandbox.read_chunk_bytes", 8*1024*1024)
	viper.SetDefault("sandbox.fetch_concurrency", 4)
	viper.SetDefault("sandbox.fetch_attempts", 3)
	viper.SetDefault("sandbox.max_asset_bytes", 256*1024*1024)

	// Pipeline
	viper.SetDefault("pipeline.renderer", "filtergraph")
	viper.SetDefault("pipeline.transition_sec", 1.0)
	viper.SetDefault("pipeline.fps", 30)
	viper.SetDefault("pipeline.zoom_max", 1.2)
	viper.SetDefault("pipeline.portrait.width", 1080)
	viper.SetDefault("pipeline.portrait.height", 1920)
	viper.SetDefault("pipeline.landscape.width", 1920)
	viper.SetDefault("pipeline.landscape.height", 1080)
	viper.SetDefault("pipeline.overlay_locale", "ja")
	viper.SetDefault("pipeline.render_timeout", "10m")
	viper.SetDefault("pipeline.duration_tolerance_sec", 1.0)
	viper.SetDefault("pipeline.part_size_bytes", 15*1024*1024)
	viper.SetDefault("pipeline.chunk_size_bytes", 8*1024*1024)
	viper.SetDefault("pipeline.upload_attempts", 3)
	viper.SetDefault("pipeline.pipeline_timeout", "30m")

	// YouTube
	viper.SetDefault("youtube.category_id", "25")
	viper.SetDefault("youtube.poll_interval", "10s")
	viper.SetDefault("youtube.poll_timeout", "15m")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
