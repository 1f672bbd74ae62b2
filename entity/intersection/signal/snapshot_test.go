package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
	"gopkg.in/yaml.v2"
)

func TestSnapshotRoundTrip(t *testing.T) {
	c, err := signal.NewController(quadConfig())
	assert.NoError(t, err)

	// accumulate some mid-cycle state first
	c.PlacePedestrianCall(2)
	for i := 0; i < 17; i++ {
		c.Update(10, allPresent)
	}

	snap := c.Snapshot()
	assert.Equal(t, signal.SnapshotSchemaVersion, snap.SchemaVersion)

	data, err := yaml.Marshal(snap)
	assert.NoError(t, err)

	var decoded signal.ControllerSnapshot
	assert.NoError(t, yaml.UnmarshalStrict(data, &decoded))

	restored, err := signal.RestoreController(&decoded)
	assert.NoError(t, err)

	// the restored controller exports the exact same state
	assert.Equal(t, snap, restored.Snapshot())
}

func TestSnapshotRestoredControllerBehavesIdentically(t *testing.T) {
	orig, err := signal.NewController(quadConfig())
	assert.NoError(t, err)
	for i := 0; i < 13; i++ {
		orig.Update(10, allPresent)
	}

	restored, err := signal.RestoreController(orig.Snapshot())
	assert.NoError(t, err)

	// identical inputs keep both instances in lockstep
	for i := 0; i < 100; i++ {
		present := func(id int32) bool { return i%7 != 0 || id == 12 }
		orig.Update(10, present)
		restored.Update(10, present)
		for _, n := range []int32{2, 4, 6, 8} {
			assert.Equalf(t, orig.Phase(n).State(), restored.Phase(n).State(),
				"tick %d phase %d diverged", i, n)
			assert.Equal(t, orig.Phase(n).Timer(), restored.Phase(n).Timer())
		}
		assert.Equal(t, orig.Calls(), restored.Calls())
	}
	assert.Equal(t, orig.Now(), restored.Now())
}

func TestSnapshotSchemaMismatch(t *testing.T) {
	c, err := signal.NewController(quadConfig())
	assert.NoError(t, err)

	snap := c.Snapshot()
	snap.SchemaVersion = 99
	_, err = signal.RestoreController(snap)
	assert.ErrorContains(t, err, "schema")
}

func TestSnapshotCoordinationState(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)
	for i := 0; i < 15; i++ {
		c.Update(10, allPresent)
	}

	restored, err := signal.RestoreController(c.Snapshot())
	assert.NoError(t, err)
	assert.Equal(t, c.CycleTimer(), restored.CycleTimer())
	assert.Equal(t, c.Coordination().CycleLength(), restored.Coordination().CycleLength())
	assert.Equal(t, c.Coordination().SplitPercent(2), restored.Coordination().SplitPercent(2))
	assert.Equal(t, c.Snapshot(), restored.Snapshot())
}
