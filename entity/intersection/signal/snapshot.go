package signal

import (
	"fmt"

	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
)

// 快照schema版本号，旧版本快照的升级由外部持久化层负责
const SnapshotSchemaVersion int32 = 1

// DetectorSnapshot 检测器完整状态（逐字段可序列化）
type DetectorSnapshot struct {
	ID               int32   `yaml:"id"`
	Phase            int32   `yaml:"phase"`
	Type             int32   `yaml:"type"`
	State            int32   `yaml:"state"`
	ZoneStart        float64 `yaml:"zone_start"`
	ZoneLength       float64 `yaml:"zone_length"`
	Sensitivity      float64 `yaml:"sensitivity"`
	Extension        int32   `yaml:"extension"`
	MaxExtension     int32   `yaml:"max_extension"`
	OccupiedT        int32   `yaml:"occupied_t"`
	VehicleCount     int64   `yaml:"vehicle_count"`
	Enabled          bool    `yaml:"enabled"`
	PlaceCalls       bool    `yaml:"place_calls"`
	ProvideExtension bool    `yaml:"provide_extension"`
}

// CallSnapshot 请求完整状态（逐字段可序列化）
type CallSnapshot struct {
	ID               string `yaml:"id"`
	Phase            int32  `yaml:"phase"`
	Type             int32  `yaml:"type"`
	Priority         int32  `yaml:"priority"`
	Status           int32  `yaml:"status"`
	PlacedAt         int64  `yaml:"placed_at"`
	ServedAt         int64  `yaml:"served_at"`
	ClearedAt        int64  `yaml:"cleared_at"`
	Timeout          int32  `yaml:"timeout"`
	Extendable       bool   `yaml:"extendable"`
	Persistent       bool   `yaml:"persistent"`
	RequiresMinGreen bool   `yaml:"requires_min_green"`
	Source           int32  `yaml:"source"`
}

// PhaseSnapshot 相位完整状态（逐字段可序列化）
type PhaseSnapshot struct {
	Number          int32   `yaml:"number"`
	Ring            int32   `yaml:"ring"`
	Type            int32   `yaml:"type"`
	State           int32   `yaml:"state"`
	Timer           int32   `yaml:"timer"`
	GreenT          int32   `yaml:"green_t"`
	MinGreen        int32   `yaml:"min_green"`
	Passage         int32   `yaml:"passage"`
	MaxGreen        int32   `yaml:"max_green"`
	Yellow          int32   `yaml:"yellow"`
	AllRed          int32   `yaml:"all_red"`
	ConflictMask    uint16  `yaml:"conflict_mask"`
	OverlapMask     uint16  `yaml:"overlap_mask"`
	BarrierGroup    int32   `yaml:"barrier_group"`
	Enabled         bool    `yaml:"enabled"`
	Omittable       bool    `yaml:"omittable"`
	HasPed          bool    `yaml:"has_ped"`
	HasCalls        bool    `yaml:"has_calls"`
	ForceOffLatched bool    `yaml:"force_off_latched"`
	DetectorIDs     []int32 `yaml:"detector_ids"`
}

// TimingSnapshot 协调参数完整状态（逐字段可序列化）
// 说明：split/force-off保持百分比存储语义
type TimingSnapshot struct {
	Mode         int32   `yaml:"mode"`
	CycleLength  int32   `yaml:"cycle_length"`
	NaturalCycle int32   `yaml:"natural_cycle"`
	Offset       int32   `yaml:"offset"`
	Splits       []uint8 `yaml:"splits"`
	ForceOffs    []uint8 `yaml:"force_offs"`
	YieldMask    uint16  `yaml:"yield_mask"`
	YieldWindow  int32   `yaml:"yield_window"`
	Priority     float64 `yaml:"priority"`
	MaxHold      int32   `yaml:"max_hold"`
	MinExtend    int32   `yaml:"min_extend"`
	Enabled      bool    `yaml:"enabled"`
}

// ControllerSnapshot 控制器完整状态（逐字段可序列化）
// 功能：§外部持久化层的保存/恢复载体，所有字段往返后逐字段相等
type ControllerSnapshot struct {
	SchemaVersion   int32              `yaml:"schema_version"`
	ID              int32              `yaml:"id"`
	Mode            int32              `yaml:"mode"`
	State           int32              `yaml:"state"`
	RingCount       int32              `yaml:"ring_count"`
	Active          uint16             `yaml:"active"`
	Barriers        []uint16           `yaml:"barriers"`
	BarrierIndex    int32              `yaml:"barrier_index"`
	Now             int64              `yaml:"now"`
	CycleTimer      int32              `yaml:"cycle_timer"`
	LastCycleTimer  int32              `yaml:"last_cycle_timer"`
	PedClearance    int32              `yaml:"ped_clearance"`
	AllRedClearance int32              `yaml:"all_red_clearance"`
	PreemptPhase    int32              `yaml:"preempt_phase"`
	LastServedCall  string             `yaml:"last_served_call"`
	Phases          []PhaseSnapshot    `yaml:"phases"`
	Detectors       []DetectorSnapshot `yaml:"detectors"`
	Calls           []CallSnapshot     `yaml:"calls"`
	Coordination    TimingSnapshot     `yaml:"coordination"`
}

// Snapshot 导出控制器完整状态
// 功能：逐字段复制运行时状态，供外部持久化层保存
func (c *Controller) Snapshot() *ControllerSnapshot {
	s := &ControllerSnapshot{
		SchemaVersion:   SnapshotSchemaVersion,
		ID:              c.id,
		Mode:            int32(c.mode),
		State:           int32(c.state),
		RingCount:       c.ringCount,
		Active:          uint16(c.active),
		Barriers:        make([]uint16, 0, len(c.barriers)),
		BarrierIndex:    c.barrierIndex,
		Now:             c.now,
		CycleTimer:      c.cycleTimer,
		LastCycleTimer:  c.lastCycleTimer,
		PedClearance:    c.pedClearance,
		AllRedClearance: c.allRedClearance,
		PreemptPhase:    c.preemptPhase,
		LastServedCall:  c.lastServedCall,
		Phases:          make([]PhaseSnapshot, 0, len(c.ordered)),
		Detectors:       make([]DetectorSnapshot, 0, len(c.detectors)),
		Calls:           make([]CallSnapshot, 0, len(c.calls)),
	}
	for _, mask := range c.barriers {
		s.Barriers = append(s.Barriers, uint16(mask))
	}
	for _, p := range c.ordered {
		s.Phases = append(s.Phases, PhaseSnapshot{
			Number:          p.number,
			Ring:            p.ring,
			Type:            int32(p.typ),
			State:           int32(p.state),
			Timer:           p.timer,
			GreenT:          p.greenT,
			MinGreen:        p.minGreen,
			Passage:         p.passage,
			MaxGreen:        p.maxGreen,
			Yellow:          p.yellow,
			AllRed:          p.allRed,
			ConflictMask:    uint16(p.conflictMask),
			OverlapMask:     uint16(p.overlapMask),
			BarrierGroup:    p.barrierGroup,
			Enabled:         p.enabled,
			Omittable:       p.omittable,
			HasPed:          p.hasPed,
			HasCalls:        p.hasCalls,
			ForceOffLatched: p.forceOffLatched,
			DetectorIDs:     append([]int32(nil), p.detectorIDs...),
		})
	}
	for _, d := range c.detectors {
		s.Detectors = append(s.Detectors, DetectorSnapshot{
			ID:               d.id,
			Phase:            d.phase,
			Type:             int32(d.typ),
			State:            int32(d.state),
			ZoneStart:        d.zoneStart,
			ZoneLength:       d.zoneLength,
			Sensitivity:      d.sensitivity,
			Extension:        d.extension,
			MaxExtension:     d.maxExtension,
			OccupiedT:        d.occupiedT,
			VehicleCount:     d.vehicleCount,
			Enabled:          d.enabled,
			PlaceCalls:       d.placeCalls,
			ProvideExtension: d.provideExtension,
		})
	}
	for _, call := range c.calls {
		s.Calls = append(s.Calls, CallSnapshot{
			ID:               call.id,
			Phase:            call.phase,
			Type:             int32(call.typ),
			Priority:         int32(call.priority),
			Status:           int32(call.status),
			PlacedAt:         call.placedAt,
			ServedAt:         call.servedAt,
			ClearedAt:        call.clearedAt,
			Timeout:          call.timeout,
			Extendable:       call.extendable,
			Persistent:       call.persistent,
			RequiresMinGreen: call.requiresMinGreen,
			Source:           call.source,
		})
	}
	s.Coordination = TimingSnapshot{
		Mode:         int32(c.coord.mode),
		CycleLength:  c.coord.cycleLength,
		NaturalCycle: c.coord.naturalCycle,
		Offset:       c.coord.offset,
		Splits:       append([]uint8(nil), c.coord.splits[:]...),
		ForceOffs:    append([]uint8(nil), c.coord.forceOffs[:]...),
		YieldMask:    uint16(c.coord.yieldMask),
		YieldWindow:  c.coord.yieldWindow,
		Priority:     c.coord.priority,
		MaxHold:      c.coord.maxHold,
		MinExtend:    c.coord.minExtend,
		Enabled:      c.coord.enabled,
	}
	return s
}

// RestoreController 从快照重建控制器
// 功能：逐字段恢复运行时状态，与Snapshot互为逆操作
// 返回：重建的控制器与schema不匹配等错误
func RestoreController(s *ControllerSnapshot) (*Controller, error) {
	if s.SchemaVersion != SnapshotSchemaVersion {
		return nil, fmt.Errorf("signal: snapshot schema %d not supported (want %d), upgrade externally", s.SchemaVersion, SnapshotSchemaVersion)
	}
	c := &Controller{
		id:              s.ID,
		mode:            entity.ControllerMode(s.Mode),
		state:           entity.ControllerState(s.State),
		ringCount:       s.RingCount,
		phases:          make(map[int32]*Phase, len(s.Phases)),
		ordered:         make([]*Phase, 0, len(s.Phases)),
		rings:           make([][]*Phase, s.RingCount),
		detectors:       make([]*Detector, 0, len(s.Detectors)),
		detectorByID:    make(map[int32]*Detector, len(s.Detectors)),
		calls:           make([]*Call, 0, len(s.Calls)),
		active:          entity.PhaseMask(s.Active),
		barriers:        make([]entity.PhaseMask, 0, len(s.Barriers)),
		barrierIndex:    s.BarrierIndex,
		now:             s.Now,
		cycleTimer:      s.CycleTimer,
		lastCycleTimer:  s.LastCycleTimer,
		pedClearance:    s.PedClearance,
		allRedClearance: s.AllRedClearance,
		preemptPhase:    s.PreemptPhase,
		lastServedCall:  s.LastServedCall,
	}
	for _, mask := range s.Barriers {
		c.barriers = append(c.barriers, entity.PhaseMask(mask))
	}
	for i := range c.rings {
		c.rings[i] = make([]*Phase, 0)
	}
	for _, ps := range s.Phases {
		p := &Phase{
			number:          ps.Number,
			ring:            ps.Ring,
			typ:             entity.PhaseType(ps.Type),
			state:           entity.PhaseState(ps.State),
			timer:           ps.Timer,
			greenT:          ps.GreenT,
			minGreen:        ps.MinGreen,
			passage:         ps.Passage,
			maxGreen:        ps.MaxGreen,
			yellow:          ps.Yellow,
			allRed:          ps.AllRed,
			conflictMask:    entity.PhaseMask(ps.ConflictMask),
			overlapMask:     entity.PhaseMask(ps.OverlapMask),
			barrierGroup:    ps.BarrierGroup,
			enabled:         ps.Enabled,
			omittable:       ps.Omittable,
			hasPed:          ps.HasPed,
			hasCalls:        ps.HasCalls,
			forceOffLatched: ps.ForceOffLatched,
			detectorIDs:     append([]int32(nil), ps.DetectorIDs...),
		}
		c.phases[p.number] = p
		c.ordered = append(c.ordered, p)
		c.rings[p.ring] = append(c.rings[p.ring], p)
	}
	for _, ds := range s.Detectors {
		d := &Detector{
			id:               ds.ID,
			phase:            ds.Phase,
			typ:              entity.DetectorType(ds.Type),
			state:            entity.DetectorState(ds.State),
			zoneStart:        ds.ZoneStart,
			zoneLength:       ds.ZoneLength,
			sensitivity:      ds.Sensitivity,
			extension:        ds.Extension,
			maxExtension:     ds.MaxExtension,
			occupiedT:        ds.OccupiedT,
			vehicleCount:     ds.VehicleCount,
			enabled:          ds.Enabled,
			placeCalls:       ds.PlaceCalls,
			provideExtension: ds.ProvideExtension,
		}
		c.detectors = append(c.detectors, d)
		c.detectorByID[d.id] = d
	}
	for _, cs := range s.Calls {
		c.calls = append(c.calls, &Call{
			id:               cs.ID,
			phase:            cs.Phase,
			typ:              entity.CallType(cs.Type),
			priority:         entity.CallPriority(cs.Priority),
			status:           entity.CallStatus(cs.Status),
			placedAt:         cs.PlacedAt,
			servedAt:         cs.ServedAt,
			clearedAt:        cs.ClearedAt,
			timeout:          cs.Timeout,
			extendable:       cs.Extendable,
			persistent:       cs.Persistent,
			requiresMinGreen: cs.RequiresMinGreen,
			source:           cs.Source,
		})
	}
	co := s.Coordination
	c.coord = &TimingParameters{
		mode:         entity.CoordMode(co.Mode),
		cycleLength:  co.CycleLength,
		naturalCycle: co.NaturalCycle,
		offset:       co.Offset,
		yieldMask:    entity.PhaseMask(co.YieldMask),
		yieldWindow:  co.YieldWindow,
		priority:     co.Priority,
		maxHold:      co.MaxHold,
		minExtend:    co.MinExtend,
		enabled:      co.Enabled,
	}
	copy(c.coord.splits[:], co.Splits)
	copy(c.coord.forceOffs[:], co.ForceOffs)

	c.Prepare()
	return c, nil
}
