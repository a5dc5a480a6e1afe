package cpufreq

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uditkarode/cpu-event-boost/internal/notifier"
)

type fakePolicyFiles struct {
	dir string
}

// overrideGetCPUFreqPath points cpufreq attributes of cpu at a temporary
// directory populated with the given policy.
func overrideGetCPUFreqPath(t *testing.T, cpu uint, policy Policy) *fakePolicyFiles {
	dir := t.TempDir()
	for resource, value := range map[string]uint{
		hwMinFreqFile:      policy.HWMin,
		hwMaxFreqFile:      policy.HWMax,
		scalingMinFreqFile: policy.Min,
		scalingMaxFreqFile: policy.Max,
	} {
		content := strconv.FormatUint(uint64(value), 10) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, resource), []byte(content), 0644))
	}

	original := getCPUFreqPathFunction
	getCPUFreqPathFunction = func(c uint, resource string) string {
		require.Equal(t, cpu, c)
		return filepath.Join(dir, resource)
	}
	t.Cleanup(func() { getCPUFreqPathFunction = original })

	return &fakePolicyFiles{dir: dir}
}

func (f *fakePolicyFiles) scalingMin(t *testing.T) uint {
	data, err := os.ReadFile(filepath.Join(f.dir, scalingMinFreqFile))
	require.NoError(t, err)
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	require.NoError(t, err)
	return uint(v)
}

func TestReadPolicy(t *testing.T) {
	expected := Policy{CPU: 2, Min: 300000, Max: 2000000, HWMin: 300000, HWMax: 2400000}
	overrideGetCPUFreqPath(t, 2, expected)

	policy, err := ReadPolicy(2)
	require.NoError(t, err)
	assert.Equal(t, expected, policy)
}

func TestReadPolicy_Malformed(t *testing.T) {
	files := overrideGetCPUFreqPath(t, 0, Policy{})
	require.NoError(t, os.WriteFile(filepath.Join(files.dir, scalingMaxFreqFile), []byte("fast"), 0644))

	_, err := ReadPolicy(0)
	assert.ErrorContains(t, err, scalingMaxFreqFile)
}

func TestUpdatePolicy_CommitsAdjustedMinimum(t *testing.T) {
	files := overrideGetCPUFreqPath(t, 4, Policy{Min: 300000, Max: 2000000, HWMin: 300000, HWMax: 2400000})
	sub := NewSysfsSubsystem(logr.Discard(), Options{})

	notified := Policy{}
	require.NoError(t, sub.RegisterPolicyNotifier("adjust", 0, func(action notifier.Action, p *Policy) notifier.Result {
		switch action {
		case PolicyAdjust:
			assert.Equal(t, uint(4), p.CPU)
			p.Min = 1200000
		case PolicyNotify:
			notified = *p
		}
		return notifier.ResultOK
	}))

	require.NoError(t, sub.UpdatePolicy(4))
	assert.Equal(t, uint(1200000), files.scalingMin(t))
	assert.Equal(t, uint(1200000), notified.Min)
}

func TestUpdatePolicy_ClampsToLimits(t *testing.T) {
	files := overrideGetCPUFreqPath(t, 0, Policy{Min: 500000, Max: 1500000, HWMin: 300000, HWMax: 2400000})
	sub := NewSysfsSubsystem(logr.Discard(), Options{})

	minFreq := uint(9000000)
	require.NoError(t, sub.RegisterPolicyNotifier("adjust", 0, func(action notifier.Action, p *Policy) notifier.Result {
		if action == PolicyAdjust {
			p.Min = minFreq
		}
		return notifier.ResultOK
	}))

	require.NoError(t, sub.UpdatePolicy(0))
	assert.Equal(t, uint(1500000), files.scalingMin(t))

	minFreq = 100
	require.NoError(t, sub.UpdatePolicy(0))
	assert.Equal(t, uint(300000), files.scalingMin(t))
}

func TestUpdatePolicy_DryRun(t *testing.T) {
	files := overrideGetCPUFreqPath(t, 0, Policy{Min: 300000, Max: 2000000, HWMin: 300000, HWMax: 2400000})
	sub := NewSysfsSubsystem(logr.Discard(), Options{DryRun: true})

	require.NoError(t, sub.RegisterPolicyNotifier("adjust", 0, func(action notifier.Action, p *Policy) notifier.Result {
		p.Min = 1000000
		return notifier.ResultOK
	}))

	require.NoError(t, sub.UpdatePolicy(0))
	assert.Equal(t, uint(300000), files.scalingMin(t))
}

func TestUpdatePolicy_MissingCPU(t *testing.T) {
	original := getCPUFreqPathFunction
	getCPUFreqPathFunction = func(cpu uint, resource string) string {
		return filepath.Join(t.TempDir(), "missing", resource)
	}
	t.Cleanup(func() { getCPUFreqPathFunction = original })

	sub := NewSysfsSubsystem(logr.Discard(), Options{})
	assert.Error(t, sub.UpdatePolicy(8))
}

func TestGetCPUFreqPath(t *testing.T) {
	assert.Equal(t, "/sys/devices/system/cpu/cpu3/cpufreq/scaling_min_freq", getCPUFreqPath(3, scalingMinFreqFile))
}
