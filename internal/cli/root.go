// Package cli implements the boostd command line using Cobra.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/uditkarode/cpu-event-boost/internal/config"
)

var (
	setupLog = ctrl.Log.WithName("setup")

	configPath string
	logOpts    = zap.Options{}
)

func init() {
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	logOpts.BindFlags(goFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(goFlags)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the TOML configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "boostd",
	Short: "boostd raises CPU frequency floors on display and latency events",
	Long: `boostd coordinates temporary CPU frequency boosts.

Display power transitions, observed scheduling delays and explicit max boost
requests set boost modes that raise the cpufreq minimum of each cluster until
they expire. A blanked display drops every boost immediately.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctrl.SetLogger(zap.New(
			zap.UseDevMode(true),
			func(o *zap.Options) {
				o.TimeEncoder = zapcore.ISO8601TimeEncoder
			},
			zap.UseFlagOptions(&logOpts),
		))
	},
	RunE: runDaemon,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
