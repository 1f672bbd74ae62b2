package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
)

func TestCallTypeDefaults(t *testing.T) {
	veh := signal.NewCall(2, entity.CallTypeVehicular, 100, 12)
	assert.Equal(t, entity.CallPriorityNormal, veh.Priority())
	assert.True(t, veh.Extendable())
	assert.False(t, veh.Persistent())

	ped := signal.NewCall(2, entity.CallTypePedestrian, 100, signal.CallSourceExternal)
	assert.Equal(t, entity.CallPriorityNormal, ped.Priority())
	assert.False(t, ped.Extendable())
	assert.True(t, ped.Persistent())

	emg := signal.NewCall(4, entity.CallTypeEmergency, 100, signal.CallSourceExternal)
	assert.Equal(t, entity.CallPriorityMaximum, emg.Priority())
	assert.True(t, emg.Persistent())

	coord := signal.NewCall(6, entity.CallTypeCoordination, 100, signal.CallSourceCoordinator)
	assert.Equal(t, entity.CallPriorityHigh, coord.Priority())
	assert.False(t, coord.Extendable())
}

func TestCallLifecycle(t *testing.T) {
	c := signal.NewCall(2, entity.CallTypeVehicular, 100, 12)
	assert.Equal(t, entity.CallStatusActive, c.Status())
	assert.True(t, c.IsActive())
	assert.Equal(t, int64(100), c.PlacedAt())
	assert.Equal(t, int64(-1), c.ServedAt())
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, int32(12), c.Source())

	c.MarkServed(150)
	assert.Equal(t, entity.CallStatusServed, c.Status())
	assert.Equal(t, int64(150), c.ServedAt())
	// served still counts as standing demand
	assert.True(t, c.IsActive())

	// serving twice does not move the timestamp
	c.MarkServed(200)
	assert.Equal(t, int64(150), c.ServedAt())

	c.MarkCleared(300)
	assert.Equal(t, entity.CallStatusCleared, c.Status())
	assert.False(t, c.IsActive())
}

func TestCallTimeout(t *testing.T) {
	// pedestrian default timeout is 1800ds
	ped := signal.NewCall(2, entity.CallTypePedestrian, 100, signal.CallSourceExternal)
	assert.False(t, ped.CheckTimeout(100))
	assert.False(t, ped.CheckTimeout(1899))
	assert.True(t, ped.CheckTimeout(1900))
	assert.True(t, ped.CheckTimeout(5000))

	// served calls no longer time out
	ped2 := signal.NewCall(2, entity.CallTypePedestrian, 100, signal.CallSourceExternal)
	ped2.MarkServed(200)
	assert.False(t, ped2.CheckTimeout(5000))

	// vehicular never times out
	veh := signal.NewCall(2, entity.CallTypeVehicular, 100, 12)
	assert.False(t, veh.CheckTimeout(1000000))

	ped.MarkTimedOut(1900)
	assert.Equal(t, entity.CallStatusTimedOut, ped.Status())
	assert.False(t, ped.IsActive())
}

func TestCallUniqueIDs(t *testing.T) {
	a := signal.NewCall(2, entity.CallTypeVehicular, 0, 12)
	b := signal.NewCall(2, entity.CallTypeVehicular, 0, 12)
	assert.NotEqual(t, a.ID(), b.ID())
}
