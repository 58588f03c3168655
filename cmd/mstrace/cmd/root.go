/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/EarthScope/sac2mseed/pkg/config"
	"github.com/EarthScope/sac2mseed/pkg/di"
	"github.com/EarthScope/sac2mseed/pkg/logging"
	"github.com/EarthScope/sac2mseed/pkg/metrics"
)

var (
	container     *di.Container
	cfg           *config.Config
	metricsServer *http.Server
)

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mstrace",
	Short: "mstrace - miniSEED record and trace tool",
	Long: `mstrace reads miniSEED records from files or standard input,
assembles them into continuous traces and repacks traces into new
records or a record archive.

Settings come from a YAML config file (see 'mstrace init'); flags
override the file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return errors.New("dependency container not initialized")
		}

		configPath, _ := cmd.Flags().GetString("config")
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.Metrics.Addr, _ = cmd.Flags().GetString("metrics-addr")
		}

		logger, err := logging.New(cfg.Logging.Level)
		if err != nil {
			return err
		}
		container.SetLogger(logger)

		if cfg.Metrics.Addr != "" {
			startMetricsServer(cfg.Metrics.Addr)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsServer == nil {
			return nil
		}
		err := metricsServer.Close()
		metricsServer = nil
		return err
	},
}

// loadConfig reads the config at path, or at the default path when path
// is empty. A missing default config yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetDefaultConfigPath()
		if !config.ConfigExists(path) {
			return config.DefaultConfig(), nil
		}
	}
	return config.LoadConfig(path)
}

// metricsRouter serves reg at /metrics.
func metricsRouter(reg prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler(reg))
	return r
}

func startMetricsServer(addr string) {
	log := container.GetLogger()
	metricsServer = &http.Server{
		Addr:    addr,
		Handler: metricsRouter(container.GetRegistry()),
	}
	srv := metricsServer
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	log.Infof("serving metrics on %s", addr)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		fmt.Sprintf("Path to config file (default %s)", config.GetDefaultConfigPath()))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
}
