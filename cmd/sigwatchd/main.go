// Command sigwatchd watches a configured set of Unix signals, exposes
// delivery counts over HTTP, and hot-reloads its signal set when the
// config file changes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srozzo/go-sigwait/internal/sigwatch"
)

const version = "0.1.0"

func main() {
	var (
		configPath string
		listen     string
		dev        bool
	)

	rootCmd := &cobra.Command{
		Use:   "sigwatchd",
		Short: "Signal watcher daemon",
		Long: `sigwatchd installs registrations for a configured set of Unix
signals, counts deliveries, and serves the totals over HTTP. Editing the
config file swaps the watched set without a restart.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, listen, dev)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "sigwatch.toml", "path to TOML config")
	rootCmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	rootCmd.Flags().BoolVar(&dev, "dev", false, "enable developer logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print sigwatchd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sigwatchd v" + version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listen string, dev bool) error {
	if dev {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := sigwatch.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	w, err := sigwatch.NewWatcher(cfg, log.Printf)
	if err != nil {
		return err
	}
	log.Printf("[sigwatchd] watching %v", cfg.Signals)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 3)
	go func() { errc <- w.Run(ctx) }()
	go func() { errc <- sigwatch.WatchConfig(ctx, configPath, w, log.Printf) }()
	go func() { errc <- sigwatch.NewServer(cfg, w).Start(ctx) }()

	// First failure (or a nil on shutdown) wins; the shared context tears
	// the rest down.
	err = <-errc
	cancel()
	<-errc
	<-errc

	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	log.Printf("[sigwatchd] shut down")
	return err
}
