package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

func TestDetectorPresenceTransitions(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "presence", Extension: 30, MaxExtension: 100})
	assert.NoError(t, err)
	assert.Equal(t, entity.DetectorStateClear, d.State())

	// arrival
	d.UpdateState(true, 10)
	assert.Equal(t, entity.DetectorStateOccupied, d.State())
	assert.Equal(t, int32(0), d.OccupiedTime())
	assert.Equal(t, int64(1), d.VehicleCount())

	// occupancy accumulates
	d.UpdateState(true, 10)
	d.UpdateState(true, 10)
	assert.Equal(t, int32(20), d.OccupiedTime())

	// presence type drops straight back to clear
	d.UpdateState(false, 10)
	assert.Equal(t, entity.DetectorStateClear, d.State())
	assert.Equal(t, int32(0), d.OccupiedTime())

	// second vehicle
	d.UpdateState(true, 10)
	assert.Equal(t, int64(2), d.VehicleCount())
}

func TestDetectorPulseRecentlyClear(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "pulse"})
	assert.NoError(t, err)

	d.UpdateState(true, 10)
	assert.Equal(t, entity.DetectorStateOccupied, d.State())

	// pulse type lingers one state after the vehicle leaves
	d.UpdateState(false, 10)
	assert.Equal(t, entity.DetectorStateRecentlyClear, d.State())
	assert.True(t, d.ShouldPlaceCall())

	d.UpdateState(false, 10)
	assert.Equal(t, entity.DetectorStateClear, d.State())
	assert.False(t, d.ShouldPlaceCall())
}

func TestDetectorCallAndExtensionGates(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "presence", Extension: 30, MaxExtension: 40})
	assert.NoError(t, err)
	assert.False(t, d.ShouldPlaceCall())
	assert.False(t, d.ShouldProvideExtension())

	d.UpdateState(true, 10)
	assert.True(t, d.ShouldPlaceCall())
	assert.True(t, d.ShouldProvideExtension())

	// stuck-on detector stops extending past max_extension
	d.UpdateState(true, 30)
	d.UpdateState(true, 10)
	assert.Equal(t, int32(40), d.OccupiedTime())
	assert.True(t, d.ShouldProvideExtension())
	d.UpdateState(true, 10)
	assert.False(t, d.ShouldProvideExtension())
	assert.True(t, d.ShouldPlaceCall())
}

func TestDetectorUnlimitedExtension(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "presence", Extension: 30})
	assert.NoError(t, err)
	d.UpdateState(true, 10)
	for i := 0; i < 1000; i++ {
		d.UpdateState(true, 10)
	}
	assert.True(t, d.ShouldProvideExtension())
}

func TestDetectorFault(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "presence"})
	assert.NoError(t, err)
	d.UpdateState(true, 10)

	d.SetFault(true)
	assert.Equal(t, entity.DetectorStateFault, d.State())
	assert.False(t, d.ShouldPlaceCall())
	assert.False(t, d.ShouldProvideExtension())

	// fault is sticky against inputs
	d.UpdateState(true, 10)
	assert.Equal(t, entity.DetectorStateFault, d.State())

	d.SetFault(false)
	assert.Equal(t, entity.DetectorStateClear, d.State())
	assert.Equal(t, int32(0), d.OccupiedTime())
}

func TestDetectorDisabledAndGateFlags(t *testing.T) {
	d, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "presence", Disabled: true})
	assert.NoError(t, err)
	d.UpdateState(true, 10)
	assert.Equal(t, entity.DetectorStateClear, d.State())

	d2, err := signal.NewDetector(config.Detector{ID: 2, Phase: 2, Type: "presence", NoCalls: true, NoExtension: true})
	assert.NoError(t, err)
	d2.UpdateState(true, 10)
	assert.False(t, d2.ShouldPlaceCall())
	assert.False(t, d2.ShouldProvideExtension())
}

func TestDetectorUnknownType(t *testing.T) {
	_, err := signal.NewDetector(config.Detector{ID: 1, Phase: 2, Type: "radar"})
	assert.Error(t, err)
}
