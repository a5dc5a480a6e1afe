package cpufreq

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	cpuFreqBasePath = "/sys/devices/system/cpu/cpu%d/cpufreq"

	hwMinFreqFile      = "cpuinfo_min_freq"
	hwMaxFreqFile      = "cpuinfo_max_freq"
	scalingMinFreqFile = "scaling_min_freq"
	scalingMaxFreqFile = "scaling_max_freq"
)

func getCPUFreqPath(cpu uint, resource string) string {
	cpuFreqPath := fmt.Sprintf(cpuFreqBasePath, cpu)
	return filepath.Join(cpuFreqPath, resource)
}

var getCPUFreqPathFunction = getCPUFreqPath

// readFrequency returns a frequency value in kHz from a cpufreq attribute.
func readFrequency(cpu uint, resource string) (uint, error) {
	data, err := os.ReadFile(getCPUFreqPathFunction(cpu, resource))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s for CPU %d: %w", resource, cpu, err)
	}

	freq, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to convert %s for CPU %d to uint: %w", resource, cpu, err)
	}

	return uint(freq), nil
}

func writeFrequency(cpu uint, resource string, freq uint) error {
	path := getCPUFreqPathFunction(cpu, resource)
	if err := os.WriteFile(path, []byte(strconv.FormatUint(uint64(freq), 10)), 0644); err != nil {
		return fmt.Errorf("failed to write %s for CPU %d: %w", resource, cpu, err)
	}

	return nil
}

// ReadPolicy loads the current limits of the policy owning cpu.
func ReadPolicy(cpu uint) (Policy, error) {
	policy := Policy{CPU: cpu}

	for _, field := range []struct {
		resource string
		dst      *uint
	}{
		{hwMinFreqFile, &policy.HWMin},
		{hwMaxFreqFile, &policy.HWMax},
		{scalingMinFreqFile, &policy.Min},
		{scalingMaxFreqFile, &policy.Max},
	} {
		freq, err := readFrequency(cpu, field.resource)
		if err != nil {
			return Policy{}, err
		}
		*field.dst = freq
	}

	return policy, nil
}
