package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
	"github.com/uditkarode/cpu-event-boost/internal/topology"
)

// Func definitions for unit testing
var (
	readPolicyFunc  = cpufreq.ReadPolicy
	newTopologyFunc = topology.NewSysfsProvider
)

var (
	resolveCPU       uint
	resolveModes     []string
	resolveScreenOff bool
)

func init() {
	resolveCmd.Flags().UintVar(&resolveCPU, "cpu", 0, "CPU whose policy limits are used")
	resolveCmd.Flags().StringSliceVar(&resolveModes, "modes", nil,
		"Boost modes to assume set (mid_compensate, crit_compensate, max_boost)")
	resolveCmd.Flags().BoolVar(&resolveScreenOff, "screen-off", false, "Assume the display is off")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the minimum frequency boostd would set for a CPU",
	Long: `Resolve reads the live cpufreq limits of a CPU and prints the minimum
frequency the given boost state resolves to with the configured floors.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	modes, err := parseModes(resolveModes, !resolveScreenOff)
	if err != nil {
		return err
	}

	topo, err := newTopologyFunc(cfg.Clusters.LowPower.CPUs, cfg.Clusters.Performance.CPUs)
	if err != nil {
		return err
	}
	policy, err := readPolicyFunc(resolveCPU)
	if err != nil {
		return err
	}

	cluster := topo.ClusterOf(resolveCPU)
	freq := boost.ResolveMinFrequency(modes, cfg.Frequencies().For(cluster), policy)

	fmt.Fprintf(cmd.OutOrStdout(), "cpu %d (%s) modes %s: min %d kHz (hw min %d, max %d)\n",
		resolveCPU, cluster, modes, freq, policy.HWMin, policy.Max)
	return nil
}

func parseModes(names []string, screenOn bool) (boost.Modes, error) {
	var set []boost.Mode
	if screenOn {
		set = append(set, boost.ScreenOn)
	}
	for _, name := range names {
		mode, err := boost.ParseMode(name)
		if err != nil {
			return 0, err
		}
		if mode == boost.ScreenOn {
			return 0, fmt.Errorf("use --screen-off to control %s", boost.ScreenOn)
		}
		set = append(set, mode)
	}
	return boost.NewModes(set...), nil
}
