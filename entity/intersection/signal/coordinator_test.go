package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// coordConfig builds a single-ring 2-phase coordinated intersection with a
// 400ds cycle: phase 2 forced off at 50%, phase 4 yieldable before 95%
func coordConfig() config.Intersection {
	return config.Intersection{
		ID:    1,
		Rings: 1,
		Mode:  "coordinated",
		Barriers: [][]int32{
			{2},
			{4},
		},
		Phases: []config.Phase{
			{Number: 2, Ring: 0, Type: "vehicular", MinGreen: 30, Passage: 20, MaxGreen: 300, Yellow: 20, AllRed: 10, Conflicts: []int32{4}},
			{Number: 4, Ring: 0, Type: "vehicular", MinGreen: 30, Passage: 20, MaxGreen: 300, Yellow: 20, AllRed: 10, Conflicts: []int32{2}, Omittable: true},
		},
		Detectors: []config.Detector{
			{ID: 12, Phase: 2, Type: "presence", ZoneStart: 0.9, ZoneLength: 0.05, Extension: 20},
			{ID: 14, Phase: 4, Type: "presence", ZoneStart: 0.9, ZoneLength: 0.05, Extension: 20},
		},
		Coordination: &config.Coordination{
			Mode:        "coordinated",
			CycleLength: 400,
			Splits:      []int32{0, 50, 0, 40},
			ForceOffs:   []int32{0, 50, 0, 95},
			YieldPhases: []int32{4},
			YieldWindow: 60,
			MinExtend:   20,
		},
	}
}

func TestTimingParametersDisabledWhenAbsent(t *testing.T) {
	tp, err := signal.NewTimingParameters(nil)
	assert.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.Equal(t, entity.CoordModeFree, tp.Mode())
}

func TestTimingParametersSplitConversion(t *testing.T) {
	tp, err := signal.NewTimingParameters(&config.Coordination{
		Mode: "coordinated", CycleLength: 1200,
		Splits:    []int32{0, 45, 0, 25},
		ForceOffs: []int32{0, 45, 0, 75},
	})
	assert.NoError(t, err)
	assert.True(t, tp.Enabled())

	assert.Equal(t, int32(540), tp.SplitTime(2))
	assert.Equal(t, int32(300), tp.SplitTime(4))
	assert.True(t, tp.HasSplit(2))
	assert.False(t, tp.HasSplit(1))
	assert.Equal(t, int32(540), tp.ForceOffAt(2))
	assert.Equal(t, int32(900), tp.ForceOffAt(4))
}

func TestTimingParametersCycleChangeKeepsPercentages(t *testing.T) {
	tp, err := signal.NewTimingParameters(&config.Coordination{
		Mode: "coordinated", CycleLength: 1000,
		Splits: []int32{0, 40}, ForceOffs: []int32{0, 40},
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(400), tp.SplitTime(2))

	// percentages are never rescaled, absolute times track the new cycle
	tp.SetCycleLength(2000)
	assert.Equal(t, int32(40), tp.SplitPercent(2))
	assert.Equal(t, int32(800), tp.SplitTime(2))
	assert.Equal(t, int32(800), tp.ForceOffAt(2))
}

func TestTimingParametersYieldWindow(t *testing.T) {
	tp, err := signal.NewTimingParameters(&config.Coordination{
		Mode: "coordinated", CycleLength: 400,
		Splits:      []int32{0, 50, 0, 40},
		ForceOffs:   []int32{0, 50, 0, 95},
		YieldPhases: []int32{4},
		YieldWindow: 60,
	})
	assert.NoError(t, err)

	// window for phase 4 is [320, 380)
	assert.False(t, tp.InYieldWindow(4, 319))
	assert.True(t, tp.InYieldWindow(4, 320))
	assert.True(t, tp.InYieldWindow(4, 379))
	assert.False(t, tp.InYieldWindow(4, 380))

	// phase 2 is not yieldable
	assert.False(t, tp.InYieldWindow(2, 150))
}

func TestTimingParametersYieldWindowWraps(t *testing.T) {
	// force-off at 10% of 400 = 40, window 60 wraps to [380, 400)+[0, 40)
	tp, err := signal.NewTimingParameters(&config.Coordination{
		Mode: "coordinated", CycleLength: 400,
		Splits:      []int32{0, 10},
		ForceOffs:   []int32{0, 10},
		YieldPhases: []int32{2},
		YieldWindow: 60,
	})
	assert.NoError(t, err)
	assert.True(t, tp.InYieldWindow(2, 390))
	assert.True(t, tp.InYieldWindow(2, 10))
	assert.False(t, tp.InYieldWindow(2, 40))
	assert.False(t, tp.InYieldWindow(2, 200))
}

func TestCoordinationRecallOnStart(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)

	// both split phases carry a standing recall call from the start
	assert.Equal(t, 2, c.Calls())
	c.Update(10, nonePresent)
	assert.True(t, c.Phase(2).IsGreen())
}

func TestCoordinationForceOffDespiteExtension(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)

	// constant traffic on phase 2 tries to hold green forever
	present := func(id int32) bool { return id == 12 }
	for i := 0; i < 20; i++ {
		c.Update(10, present)
	}
	// force-off point is 50% of 400 = 200ds: crossing it ends green
	assert.Equal(t, int32(200), c.CycleTimer())
	assert.Equal(t, entity.PhaseStateYellow, c.Phase(2).State())
}

func TestCoordinationServesNextPhaseAfterForceOff(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)

	present := func(id int32) bool { return id == 12 }
	// run past phase 2 force-off and clearance
	for i := 0; i < 25; i++ {
		c.Update(10, present)
	}
	// the recall call keeps phase 4 in line even with no traffic on it
	assert.True(t, c.Phase(4).IsGreen())
}

func TestCoordinationRecallOnCycleWrap(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)

	// consume the initial recalls with no further traffic
	for i := 0; i < 39; i++ {
		c.Update(10, nonePresent)
	}
	assert.Equal(t, 0, c.Calls())

	// cycle wraps at 400ds and re-places recall calls
	c.Update(10, nonePresent)
	assert.Equal(t, int32(0), c.CycleTimer())
	assert.Equal(t, 2, c.Calls())
}

func TestCoordinationYieldCutsOmittablePhase(t *testing.T) {
	c, err := signal.NewController(coordConfig())
	assert.NoError(t, err)

	present := func(id int32) bool { return id == 14 }
	// drive until phase 4 holds green on constant traffic
	for i := 0; i < 26; i++ {
		c.Update(10, present)
	}
	assert.True(t, c.Phase(4).IsGreen())

	// yield window for phase 4 opens at 320: green is surrendered inside it
	for i := 0; i < 10; i++ {
		c.Update(10, present)
		if c.CycleTimer() > 320 {
			break
		}
	}
	for c.CycleTimer() <= 330 {
		c.Update(10, present)
	}
	assert.False(t, c.Phase(4).IsGreen())
}
