package boost

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/uditkarode/cpu-event-boost/internal/topology"
	"github.com/uditkarode/cpu-event-boost/pkg/testutils"
)

type updaterMock struct {
	mock.Mock
}

func (u *updaterMock) Update(snapshot Modes) {
	u.Called(snapshot)
}

type hookRecorder struct {
	mock.Mock
}

func (h *hookRecorder) OnEvent(source EventSource, outcome Outcome) {
	h.Called(source, outcome)
}

func (h *hookRecorder) OnExpiry(cleared Modes) {
	h.Called(cleared)
}

func (h *hookRecorder) OnPolicyUpdate(cluster topology.Cluster, err error) {
	h.Called(cluster, err)
}

func (h *hookRecorder) OnPolicyAdjust(cluster topology.Cluster, minFreq uint) {
	h.Called(cluster, minFreq)
}

func TestPolicyUpdater_UpdatesOneCPUPerCluster(t *testing.T) {
	topo := testutils.NewTwoClusterTopology()
	sub := new(testutils.MockSubsystem)
	sub.On("UpdatePolicy", uint(0)).Return(nil)
	sub.On("UpdatePolicy", uint(4)).Return(nil)
	hook := new(hookRecorder)
	hook.On("OnPolicyUpdate", mock.Anything, nil).Return()

	upd := NewPolicyUpdater(sub, topo, hook, logr.Discard())
	upd.Update(NewModes(ScreenOn, MaxBoost))

	sub.AssertNumberOfCalls(t, "UpdatePolicy", 2)
	hook.AssertCalled(t, "OnPolicyUpdate", topology.LowPower, nil)
	hook.AssertCalled(t, "OnPolicyUpdate", topology.Performance, nil)
}

func TestPolicyUpdater_OfflineClusterSkipped(t *testing.T) {
	offline := errors.New("offline")
	topo := new(testutils.MockTopology)
	topo.On("FirstOnline", topology.LowPower).Return(uint(0), offline)
	topo.On("FirstOnline", topology.Performance).Return(uint(6), nil)
	sub := new(testutils.MockSubsystem)
	sub.On("UpdatePolicy", uint(6)).Return(errors.New("write failed"))
	hook := new(hookRecorder)
	hook.On("OnPolicyUpdate", mock.Anything, mock.Anything).Return()

	upd := NewPolicyUpdater(sub, topo, hook, logr.Discard())
	upd.Update(NewModes(ScreenOn))

	sub.AssertNumberOfCalls(t, "UpdatePolicy", 1)
	hook.AssertCalled(t, "OnPolicyUpdate", topology.LowPower, offline)
	hook.AssertCalled(t, "OnPolicyUpdate", topology.Performance, mock.MatchedBy(func(err error) bool {
		return err != nil
	}))
}

func TestPolicyUpdater_NilHook(t *testing.T) {
	topo := testutils.NewTwoClusterTopology()
	sub := new(testutils.MockSubsystem)
	sub.On("UpdatePolicy", mock.Anything).Return(nil)

	upd := NewPolicyUpdater(sub, topo, nil, logr.Discard())
	assert.NotPanics(t, func() { upd.Update(NewModes(ScreenOn)) })
}
