package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// dualRing builds a minimal valid 4-phase dual-ring intersection
func dualRing() config.Intersection {
	return config.Intersection{
		ID:    1,
		Rings: 2,
		Mode:  "actuated",
		Barriers: [][]int32{
			{2, 6},
			{4, 8},
		},
		Phases: []config.Phase{
			{Number: 2, Ring: 0, Type: "vehicular", MinGreen: 100, Passage: 30, MaxGreen: 600, Yellow: 40, AllRed: 20, Conflicts: []int32{4, 8}},
			{Number: 4, Ring: 0, Type: "vehicular", MinGreen: 80, Passage: 30, MaxGreen: 400, Yellow: 40, AllRed: 20, Conflicts: []int32{2, 6}},
			{Number: 6, Ring: 1, Type: "vehicular", MinGreen: 100, Passage: 30, MaxGreen: 600, Yellow: 40, AllRed: 20, Conflicts: []int32{4, 8}},
			{Number: 8, Ring: 1, Type: "vehicular", MinGreen: 80, Passage: 30, MaxGreen: 400, Yellow: 40, AllRed: 20, Conflicts: []int32{2, 6}},
		},
		Detectors: []config.Detector{
			{ID: 12, Phase: 2, Type: "presence", ZoneStart: 0.9, ZoneLength: 0.05, Extension: 30, MaxExtension: 300},
		},
	}
}

func TestValidateOK(t *testing.T) {
	c := config.Config{
		Control:       config.Control{Step: config.ControlStep{Start: 0, Total: 100, Interval: 0.1}},
		Intersections: []config.Intersection{dualRing()},
	}
	assert.NoError(t, c.Validate())
}

func TestValidateStepInterval(t *testing.T) {
	c := config.Config{Control: config.Control{Step: config.ControlStep{Interval: 0}}}
	assert.Error(t, c.Validate())
}

func TestValidateDuplicateIntersection(t *testing.T) {
	c := config.Config{
		Control:       config.Control{Step: config.ControlStep{Interval: 0.1}},
		Intersections: []config.Intersection{dualRing(), dualRing()},
	}
	assert.ErrorContains(t, c.Validate(), "duplicate intersection")
}

func TestValidateAsymmetricConflicts(t *testing.T) {
	ic := dualRing()
	// 2->4 recorded, 4->2 dropped
	ic.Phases[1].Conflicts = []int32{6}
	assert.ErrorContains(t, ic.Validate(), "not symmetric")
}

func TestValidateSelfConflict(t *testing.T) {
	ic := dualRing()
	ic.Phases[0].Conflicts = append(ic.Phases[0].Conflicts, 2)
	assert.ErrorContains(t, ic.Validate(), "conflicts with itself")
}

func TestValidatePhaseNumberRange(t *testing.T) {
	ic := dualRing()
	ic.Phases[0].Number = 17
	assert.Error(t, ic.Validate())

	ic = dualRing()
	ic.Phases[0].Number = 0
	assert.Error(t, ic.Validate())
}

func TestValidateDuplicatePhase(t *testing.T) {
	ic := dualRing()
	ic.Phases[1].Number = 2
	assert.ErrorContains(t, ic.Validate(), "duplicate phase")
}

func TestValidateTimings(t *testing.T) {
	ic := dualRing()
	ic.Phases[0].MinGreen = 0
	assert.ErrorContains(t, ic.Validate(), "min_green")

	ic = dualRing()
	ic.Phases[0].Yellow = 0
	assert.ErrorContains(t, ic.Validate(), "clearance")

	ic = dualRing()
	ic.Phases[0].MaxGreen = 50
	assert.ErrorContains(t, ic.Validate(), "max_green")

	ic = dualRing()
	ic.Phases[0].Passage = -1
	assert.ErrorContains(t, ic.Validate(), "passage")
}

func TestValidateBarrierPartition(t *testing.T) {
	// overlap
	ic := dualRing()
	ic.Barriers = [][]int32{{2, 6}, {4, 8, 2}}
	assert.ErrorContains(t, ic.Validate(), "overlap")

	// incomplete
	ic = dualRing()
	ic.Barriers = [][]int32{{2, 6}, {4}}
	assert.ErrorContains(t, ic.Validate(), "not covered")

	// unknown phase
	ic = dualRing()
	ic.Barriers = [][]int32{{2, 6}, {4, 8, 9}}
	assert.ErrorContains(t, ic.Validate(), "unknown phase")

	// empty group
	ic = dualRing()
	ic.Barriers = [][]int32{{2, 4, 6, 8}, {}}
	assert.ErrorContains(t, ic.Validate(), "empty")

	// none at all
	ic = dualRing()
	ic.Barriers = nil
	assert.ErrorContains(t, ic.Validate(), "no barrier")
}

func TestValidateDetectors(t *testing.T) {
	ic := dualRing()
	ic.Detectors = append(ic.Detectors, config.Detector{ID: 12, Phase: 4, Type: "presence"})
	assert.ErrorContains(t, ic.Validate(), "duplicate detector")

	ic = dualRing()
	ic.Detectors[0].Phase = 3
	assert.ErrorContains(t, ic.Validate(), "unknown phase")

	ic = dualRing()
	ic.Detectors[0].ZoneStart = 0.98
	ic.Detectors[0].ZoneLength = 0.05
	assert.ErrorContains(t, ic.Validate(), "zone")
}

func TestValidateCoordination(t *testing.T) {
	ic := dualRing()
	ic.Coordination = &config.Coordination{Mode: "coordinated", CycleLength: 0}
	assert.ErrorContains(t, ic.Validate(), "cycle_length")

	ic = dualRing()
	ic.Coordination = &config.Coordination{Mode: "coordinated", CycleLength: 1200, Splits: []int32{0, 120}}
	assert.ErrorContains(t, ic.Validate(), "split")

	ic = dualRing()
	ic.Coordination = &config.Coordination{Mode: "coordinated", CycleLength: 1200, ForceOffs: []int32{-5}}
	assert.ErrorContains(t, ic.Validate(), "force_off")

	ic = dualRing()
	ic.Coordination = &config.Coordination{Mode: "coordinated", CycleLength: 1200, YieldPhases: []int32{3}}
	assert.ErrorContains(t, ic.Validate(), "yield")

	ic = dualRing()
	ic.Coordination = &config.Coordination{
		Mode: "coordinated", CycleLength: 1200,
		Splits: []int32{0, 45, 0, 25, 0, 45, 0, 25}, ForceOffs: []int32{0, 45, 0, 75, 0, 45, 0, 75},
		YieldPhases: []int32{4, 8}, YieldWindow: 100,
	}
	assert.NoError(t, ic.Validate())
}
