package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/ai/provider"
	"github.com/spigell/prospectiq/internal/logger"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/server"
)

const (
	app = "prospectiq"
)

type Config struct {
	AI     provider.Config `mapstructure:"ai"`
	Server ServerConfig    `mapstructure:"server"`
	// ICP is the default buyer profile used by score and scan when no file is given.
	ICP  *prospect.ICP `mapstructure:"icp"`
	Scan ScanConfig    `mapstructure:"scan"`
}

type ServerConfig struct {
	server.Config `mapstructure:",squash"`
	QuotaLimit    int           `mapstructure:"quota-limit"`
	QuotaWindow   time.Duration `mapstructure:"quota-window"`
}

type ScanConfig struct {
	MinScore    int    `mapstructure:"min-score"`
	Concurrency int    `mapstructure:"concurrency"`
	ProfileFile string `mapstructure:"profile-file"`
	QuotaLimit  int    `mapstructure:"quota-limit"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "prospectiq scores B2B prospects against an ideal customer profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.provider":     "LLM_PROVIDER",
		"ai.provider-url": "LLM_PROVIDER_URL",
		"ai.api-key":      provider.APIKeyEnv,
		"ai.api-key-file": "LLM_API_KEY_FILE",
		"ai.model":        "LLM_MODEL",
		"server.listen":   "PROSPECTIQ_LISTEN",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("server.listen", server.DefaultListen)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is prospectiq.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Everything can come from the environment, so a missing default config is fine.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// setup builds the logger and reads the configuration. Any failure is fatal.
func setup() (*zap.Logger, *Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	return l, config
}

// newCompleter returns the configured provider, or nil for stub mode.
func newCompleter(ctx context.Context, config *Config, l *zap.Logger) ai.Completer {
	completer, err := provider.New(ctx, config.AI, l)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		l.Info("ai provider is not configured, running in stub mode",
			zap.String("hint", "set LLM_PROVIDER_URL and LLM_API_KEY (or LLM_API_KEY_FILE)"),
		)
		return nil
	case err != nil:
		l.Fatal("configuring ai provider", zap.Error(err))
	}
	return completer
}
