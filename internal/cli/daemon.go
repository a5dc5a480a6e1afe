package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	ctrlMetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/uditkarode/cpu-event-boost/internal/api"
	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/config"
	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/display"
	"github.com/uditkarode/cpu-event-boost/internal/monitoring"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

var (
	listenAddr string
	dryRun     bool
)

func init() {
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "Address the event api listens on (overrides config)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve policies without writing to cpufreq sysfs")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("listen") {
		cfg.API.Listen = listenAddr
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.CPUFreq.DryRun = dryRun
	}

	return cfg, cfg.Validate()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		setupLog.Error(err, "unable to load configuration", "path", configPath)
		return err
	}

	topo, err := topology.NewSysfsProvider(cfg.Clusters.LowPower.CPUs, cfg.Clusters.Performance.CPUs)
	if err != nil {
		setupLog.Error(err, "unable to build cpu topology")
		return err
	}

	subsystem := cpufreq.NewSysfsSubsystem(ctrl.Log.WithName("cpufreq"), cpufreq.Options{DryRun: cfg.CPUFreq.DryRun})
	displaySource := display.NewSource(ctrl.Log)
	defer displaySource.Close()

	metrics := monitoring.NewBoostMetrics()
	opts := cfg.BoostOptions()
	opts.Hook = metrics
	coord := boost.NewCoordinator(displaySource, subsystem, topo, opts, ctrl.Log.WithName("boost"))
	monitoring.RegisterBoostCollectors(metrics, coord, topo, ctrl.Log.WithName(monitoring.LogTopName))

	runnables := []manager.Runnable{coord}
	if cfg.API.Enabled {
		runnables = append(runnables, api.NewServer(coord, displaySource, api.Options{
			Listen:             cfg.API.Listen,
			InputBoostDuration: cfg.InputBoostDuration(),
			Gatherer:           ctrlMetrics.Registry,
		}, ctrl.Log.WithName("api")))
	}

	setupLog.Info("starting boostd", "version", cmd.Root().Version, "dryRun", cfg.CPUFreq.DryRun,
		"api", cfg.API.Enabled)
	if err := runAll(ctrl.SetupSignalHandler(), runnables...); err != nil {
		setupLog.Error(err, "problem running boostd")
		return err
	}

	return nil
}

// runAll starts every runnable and blocks until ctx is done or one of them
// fails, in which case the others are stopped as well.
func runAll(ctx context.Context, runnables ...manager.Runnable) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runnables {
		g.Go(func() error {
			if err := r.Start(ctx); err != nil {
				return fmt.Errorf("%T: %w", r, err)
			}
			return nil
		})
	}

	return g.Wait()
}
