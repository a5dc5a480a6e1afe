package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/cpufreq"
)

type runnableFunc func(ctx context.Context) error

func (f runnableFunc) Start(ctx context.Context) error {
	return f(ctx)
}

func TestParseModes(t *testing.T) {
	modes, err := parseModes([]string{"max_boost", "crit_compensate"}, true)
	require.NoError(t, err)
	assert.Equal(t, boost.NewModes(boost.ScreenOn, boost.MaxBoost, boost.CritCompensate), modes)

	modes, err = parseModes(nil, false)
	require.NoError(t, err)
	assert.Equal(t, boost.Modes(0), modes)

	_, err = parseModes([]string{"turbo"}, true)
	assert.ErrorContains(t, err, "unknown boost mode")

	_, err = parseModes([]string{"screen_on"}, true)
	assert.ErrorContains(t, err, "--screen-off")
}

func TestRunResolve(t *testing.T) {
	origReadPolicy := readPolicyFunc
	origConfigPath := configPath
	defer func() {
		readPolicyFunc = origReadPolicy
		configPath = origConfigPath
		resolveCPU, resolveModes, resolveScreenOff = 0, nil, false
	}()

	readPolicyFunc = func(cpu uint) (cpufreq.Policy, error) {
		if cpu != 4 {
			return cpufreq.Policy{}, errors.New("no such cpu")
		}
		return cpufreq.Policy{CPU: 4, Min: 300000, Max: 2400000, HWMin: 300000, HWMax: 2803200}, nil
	}
	configPath = filepath.Join(t.TempDir(), "absent.toml")

	tcases := []struct {
		name      string
		modes     []string
		screenOff bool
		expected  string
	}{
		{"steady floor", nil, false, "cpu 4 (performance) modes screen_on: min 652800 kHz (hw min 300000, max 2400000)\n"},
		{"max boost clamped", []string{"max_boost"}, false, "cpu 4 (performance) modes screen_on|max_boost: min 2400000 kHz (hw min 300000, max 2400000)\n"},
		{"screen off", []string{"max_boost"}, true, "cpu 4 (performance) modes max_boost: min 300000 kHz (hw min 300000, max 2400000)\n"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			resolveCPU, resolveModes, resolveScreenOff = 4, tc.modes, tc.screenOff
			out := new(bytes.Buffer)
			resolveCmd.SetOut(out)

			require.NoError(t, runResolve(resolveCmd, nil))
			assert.Equal(t, tc.expected, out.String())
		})
	}

	resolveCPU, resolveModes, resolveScreenOff = 1, nil, false
	assert.ErrorContains(t, runResolve(resolveCmd, nil), "no such cpu")
}

func TestRunAll(t *testing.T) {
	failure := errors.New("listen failed")
	stopped := make(chan struct{})

	err := runAll(context.Background(),
		runnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}),
		runnableFunc(func(ctx context.Context) error {
			return failure
		}),
	)
	assert.ErrorIs(t, err, failure)

	select {
	case <-stopped:
	default:
		t.Fatal("healthy runnable was not stopped after a failure")
	}
}

func TestRunAll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- runAll(ctx, runnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}))
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runAll did not return after cancellation")
	}
}

func TestVersionCommand(t *testing.T) {
	rootCmd.Version = "1.2.3"
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "boostd 1.2.3\n", out.String())
}
