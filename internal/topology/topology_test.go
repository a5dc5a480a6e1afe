package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overrideOnlineCPUs(t *testing.T, content string) {
	path := filepath.Join(t.TempDir(), "online")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	original := getOnlineCPUsPathFunction
	getOnlineCPUsPathFunction = func() string { return path }
	t.Cleanup(func() { getOnlineCPUsPathFunction = original })
}

func TestNewSysfsProvider(t *testing.T) {
	_, err := NewSysfsProvider("0-3", "4-7")
	require.NoError(t, err)

	_, err = NewSysfsProvider("0-x", "4-7")
	assert.Error(t, err)

	_, err = NewSysfsProvider("0-4", "4-7")
	assert.True(t, errors.Is(err, ErrOverlappingMask))
}

func TestClusterOf(t *testing.T) {
	p, err := NewSysfsProvider("0-3", "4-7")
	require.NoError(t, err)

	assert.Equal(t, LowPower, p.ClusterOf(0))
	assert.Equal(t, LowPower, p.ClusterOf(3))
	assert.Equal(t, Performance, p.ClusterOf(4))
	// CPUs outside both masks are treated as performance cores
	assert.Equal(t, Performance, p.ClusterOf(12))
}

func TestFirstOnline(t *testing.T) {
	p, err := NewSysfsProvider("0-3", "4-7")
	require.NoError(t, err)

	overrideOnlineCPUs(t, "1-2,5,7\n")

	cpu, err := p.FirstOnline(LowPower)
	require.NoError(t, err)
	assert.Equal(t, uint(1), cpu)

	cpu, err = p.FirstOnline(Performance)
	require.NoError(t, err)
	assert.Equal(t, uint(5), cpu)
}

func TestFirstOnline_ClusterOffline(t *testing.T) {
	p, err := NewSysfsProvider("0-3", "4-7")
	require.NoError(t, err)

	overrideOnlineCPUs(t, "0-3\n")

	_, err = p.FirstOnline(Performance)
	assert.True(t, errors.Is(err, ErrNoOnlineCPU))
}

func TestClusterString(t *testing.T) {
	assert.Equal(t, "low_power", LowPower.String())
	assert.Equal(t, "performance", Performance.String())
	assert.Equal(t, "Cluster(9)", Cluster(9).String())
}
