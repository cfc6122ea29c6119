package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/atikulmunna/lognorm/internal/config"
	"github.com/atikulmunna/lognorm/internal/logging"
	"github.com/atikulmunna/lognorm/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "lognorm",
	Short: "lognorm normalizes heterogeneous log lines into structured records",
	Long: `lognorm classifies log lines written by klog, logr, logrus and JSON
loggers into records with a lowercase "level" and a "msg". It can scan
finished logs and fail on error or fatal lines, classify single lines, or
follow files live while serving stats and forwarding records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, aggregator.ErrFailingLevel) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.lognorm.yaml, then ./.lognorm.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "lognorm's own log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".lognorm")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	configErr = viper.ReadInConfig()
}

// configErr holds the result of reading the config file. A missing
// default file is fine; an explicit --config that can't be read is not.
var configErr error

// runtime is what every subcommand needs to do its work.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *parser.Registry
}

func loadRuntime() (*runtime, error) {
	if configErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(configErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", configErr)
		}
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	if used := viper.ConfigFileUsed(); used != "" && configErr == nil {
		log.Debug("loaded config", zap.String("file", used))
	}
	return &runtime{cfg: cfg, log: log, registry: reg}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
