// Package config loads process configuration through viper, with the
// precedence chain viper gives for free: explicit flags override
// environment variables, which override the config file, which overrides
// the defaults set here.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting the daemon and the core need at startup.
type Config struct {
	ProjectDirectory string
	TempDir          string
	NumThreads       int
	NumFeatures      int
	SamplingFactor   float64
	BindAddress      string
	Dialect          string
	LogLevel         string
	Development      bool
}

// Load reads fastprop's config from (in ascending precedence) built-in
// defaults, an optional config file, environment variables prefixed
// FASTPROP_, and command-line flags already registered on flags.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("project_directory", ".")
	v.SetDefault("temp_dir", "/tmp/fastprop")
	v.SetDefault("num_threads", 0) // 0 means max(2, hw_concurrency/2)
	v.SetDefault("num_features", 500)
	v.SetDefault("sampling_factor", 1.0)
	v.SetDefault("bind_address", "127.0.0.1:1711")
	v.SetDefault("dialect", "ansi")
	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	v.SetEnvPrefix("fastprop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, flagName := range map[string]string{
			"project_directory": "project-directory",
			"temp_dir":          "temp-dir",
			"num_threads":       "num-threads",
			"num_features":      "num-features",
			"sampling_factor":   "sampling-factor",
			"bind_address":      "bind-address",
			"dialect":           "dialect",
			"log_level":         "log-level",
			"development":       "development",
		} {
			if f := flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Config{
		ProjectDirectory: v.GetString("project_directory"),
		TempDir:          v.GetString("temp_dir"),
		NumThreads:       v.GetInt("num_threads"),
		NumFeatures:      v.GetInt("num_features"),
		SamplingFactor:   v.GetFloat64("sampling_factor"),
		BindAddress:      v.GetString("bind_address"),
		Dialect:          v.GetString("dialect"),
		LogLevel:         v.GetString("log_level"),
		Development:      v.GetBool("development"),
	}, nil
}
