package app

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

const CONFIG_FILE = ".fxctl"

const (
	ENV_SERVER    = "FXCTL_SERVER"
	ENV_SNAPSHOTS = "FXCTL_SNAPSHOTS"
	ENV_WORKERS   = "FXCTL_WORKERS"
	ENV_LOGLEVEL  = "FXCTL_LOG_LEVEL"
)

// Config is the content of a .fxctl config file. Config files are
// read from the home directory, the user config directory and the
// current directory, later files override earlier ones. Environment
// variables override all config files.
type Config struct {
	Server    *string `json:"server,omitempty"`
	Snapshots *string `json:"snapshots,omitempty"`
	Workers   *int    `json:"workers,omitempty"`
	LogLevel  *string `json:"logLevel,omitempty"`
}

func GetConfig(fs vfs.FileSystem) *Config {
	var cfg Config

	dir, err := os.UserHomeDir()
	if err == nil {
		MergeConfig(&cfg, ReadConfig(fs, filepath.Join(dir, CONFIG_FILE)))
	}
	dir, err = os.UserConfigDir()
	if err == nil {
		MergeConfig(&cfg, ReadConfig(fs, filepath.Join(dir, CONFIG_FILE)))
	}
	MergeConfig(&cfg, ReadConfig(fs, CONFIG_FILE))

	if v := os.Getenv(ENV_SERVER); v != "" {
		cfg.Server = utils.Pointer(v)
	}
	if v := os.Getenv(ENV_SNAPSHOTS); v != "" {
		cfg.Snapshots = utils.Pointer(v)
	}
	if v := os.Getenv(ENV_WORKERS); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = utils.Pointer(n)
		}
	}
	if v := os.Getenv(ENV_LOGLEVEL); v != "" {
		cfg.LogLevel = utils.Pointer(v)
	}
	if cfg.Server == nil || *cfg.Server == "" {
		cfg.Server = utils.Pointer("http://localhost:8080")
	}
	return &cfg
}

func ReadConfig(fs vfs.FileSystem, path string) *Config {
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Warn("ignoring invalid config file {{path}}: {{error}}", "path", path, "error", err.Error())
		return nil
	}
	return &cfg
}

func MergeConfig(cfg *Config, add *Config) {
	if add == nil {
		return
	}
	if add.Server != nil {
		cfg.Server = add.Server
	}
	if add.Snapshots != nil {
		cfg.Snapshots = add.Snapshots
	}
	if add.Workers != nil {
		cfg.Workers = add.Workers
	}
	if add.LogLevel != nil {
		cfg.LogLevel = add.LogLevel
	}
}
