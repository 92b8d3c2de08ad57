// Package config loads the flat application configuration from
// defaults, an optional .env file and the process environment.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config is the flattened configuration for the whole binary.
type Config struct {
	// Server
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// Storage layout
	DataDir         string `mapstructure:"data_dir"`
	UploadDir       string `mapstructure:"upload_dir"`
	AnnotationsFile string `mapstructure:"annotations_file"`
	StaticDir       string `mapstructure:"static_dir"`

	// Uploads
	UploadMaxSizeMB       int `mapstructure:"upload_max_size_mb"`
	UploadMaxBatchFiles   int `mapstructure:"upload_max_batch_files"`
	UploadMaxBatchTotalMB int `mapstructure:"upload_max_batch_total_mb"`

	// Thumbnails
	ThumbnailMaxPx   int `mapstructure:"thumbnail_max_px"`
	ThumbnailQuality int `mapstructure:"thumbnail_quality"`

	// Rate limiting
	RateLimitRPS        float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst      int           `mapstructure:"rate_limit_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
}

// InitConfig loads the configuration once.
func InitConfig() {
	once.Do(loadConfig)
}

func Get() *Config {
	return &globalConfig
}

func loadConfig() {
	setDefaults()

	cfgFile := viper.GetString("config_file_path")
	if cfgFile == "" {
		cfgFile = ".env"
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: config file not found, using defaults and environment variables")
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: unable to unmarshal config: %v\n", err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8000)
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "30s")
	viper.SetDefault("server_idle_timeout", "120s")

	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("upload_dir", "")
	viper.SetDefault("annotations_file", "")
	viper.SetDefault("static_dir", "./static")

	viper.SetDefault("upload_max_size_mb", 10)
	viper.SetDefault("upload_max_batch_files", 10)
	viper.SetDefault("upload_max_batch_total_mb", 100)

	viper.SetDefault("thumbnail_max_px", 200)
	viper.SetDefault("thumbnail_quality", 85)

	viper.SetDefault("rate_limit_rps", 30.0)
	viper.SetDefault("rate_limit_burst", 60)
	viper.SetDefault("rate_limit_expire_time", "10m")
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// ResolvedUploadDir returns the upload directory, defaulting to
// <data_dir>/uploads.
func (c *Config) ResolvedUploadDir() string {
	if c.UploadDir != "" {
		return c.UploadDir
	}
	return c.DataDir + "/uploads"
}

// ResolvedAnnotationsFile returns the annotation store path, defaulting
// to <data_dir>/annotations.csv.
func (c *Config) ResolvedAnnotationsFile() string {
	if c.AnnotationsFile != "" {
		return c.AnnotationsFile
	}
	return c.DataDir + "/annotations.csv"
}
