package signal

import (
	"errors"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/container"
)

var (
	ErrNotManual = errors.New("signal: controller is not in manual mode")
)

// 抢占时冲突相位清空计时的加速倍数
const preemptClearanceFactor = 2

// output 控制器输出快照
// 功能：Prepare阶段写入，外部读取接口只读快照，保证一个tick内
// 读到一致的结果
type output struct {
	mode        entity.ControllerMode
	state       entity.ControllerState
	active      entity.PhaseMask
	phaseStates [entity.MaxPhases + 1]entity.PhaseState
	hasCalls    [entity.MaxPhases + 1]bool
}

// Controller 路口信控控制器
// 功能：持有双环相位集合，执行冲突/屏障矩阵约束下的环仲裁，
// 管理请求集合与协调周期，按固定的四段顺序每tick推进
// 说明：一个tick内的更新顺序固定且不可在单实例内并行：
// (1)重算相位需求标志 (2)推进相位计时状态机 (3)环/屏障仲裁启动新相位
// (4)请求超时与清理。相位、请求、检测器均由控制器独占持有
type Controller struct {
	id int32

	mode  entity.ControllerMode
	state entity.ControllerState

	ringCount int32
	phases    map[int32]*Phase // 相位编号->相位
	ordered   []*Phase         // 相位编号升序
	rings     [][]*Phase       // 每环内相位编号升序

	detectors    []*Detector
	detectorByID map[int32]*Detector

	calls []*Call // 请求集合（控制器独占持有）

	// 当前激活相位掩码，只通过setPhaseActive/isPhaseActive两个操作变更
	active entity.PhaseMask

	barriers     []entity.PhaseMask // 屏障分组（有序划分）
	barrierIndex int32              // 当前屏障组下标

	now            int64 // 当前仿真时刻（ds，单调）
	cycleTimer     int32 // 协调周期计时（ds）
	lastCycleTimer int32 // 上一tick周期计时（force-off跨越检测）

	coord *TimingParameters

	pedClearance    int32 // 行人清空常量（ds）
	allRedClearance int32 // 全红清空常量（ds）

	preemptPhase   int32  // 当前抢占目标相位（0表示无）
	lastServedCall string // 最近一次启动相位时服务的主请求ID（记账）

	snapshot output // 输出快照
}

// NewController 根据路口配置创建控制器
// 功能：构建相位表、环结构、屏障分组、检测器与协调参数
// 参数：ic-路口配置（已通过config.Validate，冲突矩阵对称等契约成立）
// 返回：控制器实例与解析错误
func NewController(ic config.Intersection) (*Controller, error) {
	mode, err := entity.ParseControllerMode(ic.Mode)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		id:              ic.ID,
		mode:            mode,
		state:           entity.ControllerStateNormal,
		ringCount:       ic.Rings,
		phases:          make(map[int32]*Phase),
		ordered:         make([]*Phase, 0, len(ic.Phases)),
		rings:           make([][]*Phase, ic.Rings),
		detectors:       make([]*Detector, 0, len(ic.Detectors)),
		detectorByID:    make(map[int32]*Detector),
		calls:           make([]*Call, 0),
		barriers:        make([]entity.PhaseMask, 0, len(ic.Barriers)),
		pedClearance:    ic.PedClearance,
		allRedClearance: ic.AllRedClearance,
	}

	for _, pc := range ic.Phases {
		p, err := NewPhase(pc)
		if err != nil {
			return nil, err
		}
		c.phases[p.number] = p
		c.ordered = append(c.ordered, p)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].number < c.ordered[j].number })
	for i := range c.rings {
		c.rings[i] = make([]*Phase, 0)
	}
	for _, p := range c.ordered {
		c.rings[p.ring] = append(c.rings[p.ring], p)
	}

	for gi, group := range ic.Barriers {
		mask := entity.MaskOf(group...)
		c.barriers = append(c.barriers, mask)
		for _, num := range group {
			c.phases[num].barrierGroup = int32(gi)
		}
	}

	for _, dc := range ic.Detectors {
		d, err := NewDetector(dc)
		if err != nil {
			return nil, err
		}
		c.detectors = append(c.detectors, d)
		c.detectorByID[d.id] = d
		c.phases[d.phase].detectorIDs = append(c.phases[d.phase].detectorIDs, d.id)
	}

	if c.coord, err = NewTimingParameters(ic.Coordination); err != nil {
		return nil, err
	}
	if c.coord.Enabled() {
		c.cycleTimer = c.coord.Offset() % c.coord.CycleLength()
		c.lastCycleTimer = c.cycleTimer
		// 初始recall，保证协调相位从一开始就有需求
		c.placeCoordinationCalls()
	}

	c.Prepare()
	return c, nil
}

// Prepare 准备阶段
// 功能：将运行时状态写入输出快照，外部读取接口在下一次Prepare前
// 始终返回本次快照
func (c *Controller) Prepare() {
	c.snapshot.mode = c.mode
	c.snapshot.state = c.state
	c.snapshot.active = c.active
	for _, p := range c.ordered {
		c.snapshot.phaseStates[p.number] = p.state
		c.snapshot.hasCalls[p.number] = p.hasCalls
	}
}

// Update 更新阶段，执行一个控制tick
// 功能：按固定顺序执行检测器输入、协调计时、需求重算、相位推进、
// 环/屏障仲裁与请求清理
// 参数：dtDs-本tick整ds增量（0表示亚ds余量未满，状态保持），
// present-检测器占用信号查询函数（外部协作者提供）
// 说明：相同的输入序列（时间增量+占用信号）必然产生相同的输出状态
func (c *Controller) Update(dtDs int32, present func(detectorID int32) bool) {
	if dtDs <= 0 {
		return
	}
	c.now += int64(dtDs)

	// 黄闪：不仲裁不计时，只维护检测器与请求集合
	if c.mode == entity.ControllerModeFlash || c.state == entity.ControllerStateMaintenance {
		c.updateDetectors(present, dtDs)
		c.cleanupCalls()
		return
	}

	// 第0步：检测器状态推进与请求放置
	c.updateDetectors(present, dtDs)
	// 协调周期计时与recall
	c.advanceCycle(dtDs)
	// 抢占目标同步（确定性tie-break：最低相位编号）
	c.syncPreemption()
	// 第1步：重算相位需求标志
	c.refreshDemand()
	// 第2步：推进相位计时状态机
	c.advancePhases(dtDs)
	// 第3步：仲裁启动新相位
	if c.preempting() {
		c.arbitratePreemption()
	} else if c.mode != entity.ControllerModeManual {
		c.arbitrateRings()
	}
	// 第4步：请求超时与清理
	c.cleanupCalls()
}

// updateDetectors 推进所有检测器并放置检测器驱动的请求
func (c *Controller) updateDetectors(present func(detectorID int32) bool, dtDs int32) {
	for _, d := range c.detectors {
		d.UpdateState(present(d.id), dtDs)
		if d.ShouldPlaceCall() {
			typ := entity.CallTypeVehicular
			if c.phases[d.phase].typ == entity.PhaseTypePedestrian {
				typ = entity.CallTypePedestrian
			}
			c.placeCall(d.phase, typ, d.id)
		}
	}
}

// placeCall 放置请求（幂等）
// 功能：同一来源对同一相位已有active/served请求时不重复创建
// 返回：已存在或新建的请求
func (c *Controller) placeCall(phase int32, typ entity.CallType, source int32) *Call {
	for _, existing := range c.calls {
		if existing.source == source && existing.phase == phase && existing.IsActive() {
			return existing
		}
	}
	call := NewCall(phase, typ, c.now, source)
	c.calls = append(c.calls, call)
	return call
}

// PlacePedestrianCall 行人按钮钩子
// 功能：绕过检测器，直接为相位放置行人请求（持久，180秒超时）
func (c *Controller) PlacePedestrianCall(phase int32) {
	if _, ok := c.phases[phase]; !ok {
		log.Panicf("controller %d: pedestrian call for unknown phase %d", c.id, phase)
	}
	c.placeCall(phase, entity.CallTypePedestrian, CallSourceExternal)
}

// PlacePreemptionCall 紧急/铁路抢占触发钩子
// 功能：放置最高优先级抢占请求并切换控制器状态；正常环/屏障仲裁
// 被旁路，抢占相位跳过CallsPresent直接启动
// 参数：phase-抢占目标相位，railroad-是否铁路抢占
func (c *Controller) PlacePreemptionCall(phase int32, railroad bool) {
	if _, ok := c.phases[phase]; !ok {
		log.Panicf("controller %d: preemption call for unknown phase %d", c.id, phase)
	}
	typ := entity.CallTypeEmergency
	st := entity.ControllerStateEmergencyPreempt
	if railroad {
		typ = entity.CallTypeRailroad
		st = entity.ControllerStateRailroadPreempt
	}
	c.placeCall(phase, typ, CallSourceExternal)
	c.state = st
	c.syncPreemption()
}

// ClearPreemption 外部解除抢占
// 功能：清除全部抢占请求（持久请求只能由外部清除），恢复正常状态
func (c *Controller) ClearPreemption() {
	for _, call := range c.calls {
		if call.typ == entity.CallTypeEmergency || call.typ == entity.CallTypeRailroad {
			if call.IsActive() {
				call.MarkCleared(c.now)
			}
		}
	}
	c.state = entity.ControllerStateNormal
	c.preemptPhase = 0
}

// preempting 是否处于抢占状态
func (c *Controller) preempting() bool {
	return c.state == entity.ControllerStateEmergencyPreempt ||
		c.state == entity.ControllerStateRailroadPreempt
}

// syncPreemption 同步抢占目标相位
// 功能：从当前有效抢占请求中确定目标相位；两个互相冲突的最高优先级
// 抢占请求同时存在时，最低相位编号胜出（确定性tie-break，文档化行为）
func (c *Controller) syncPreemption() {
	if !c.preempting() {
		return
	}
	pq := container.NewPriorityQueue[*Call]()
	for _, call := range c.calls {
		if (call.typ == entity.CallTypeEmergency || call.typ == entity.CallTypeRailroad) && call.IsActive() {
			pq.HeapPush(call, float64(call.phase))
		}
	}
	if pq.Len() == 0 {
		// 抢占请求全部消失，回到正常状态
		c.state = entity.ControllerStateNormal
		c.preemptPhase = 0
		return
	}
	winner, _ := pq.HeapPop()
	c.preemptPhase = winner.phase
}

// advanceCycle 推进协调周期计时
// 功能：周期计时模周期长度推进；周期回绕时为所有协调相位放置recall请求
func (c *Controller) advanceCycle(dtDs int32) {
	if !c.coord.Enabled() || c.mode != entity.ControllerModeCoordinated {
		return
	}
	c.lastCycleTimer = c.cycleTimer
	c.cycleTimer += dtDs
	if c.cycleTimer >= c.coord.CycleLength() {
		c.cycleTimer %= c.coord.CycleLength()
		c.placeCoordinationCalls()
	}
}

// placeCoordinationCalls 为配置了绿信比的相位放置协调recall请求
func (c *Controller) placeCoordinationCalls() {
	for _, p := range c.ordered {
		if p.enabled && c.coord.HasSplit(p.number) {
			c.placeCall(p.number, entity.CallTypeCoordination, CallSourceCoordinator)
		}
	}
}

// refreshDemand 重算所有相位的需求标志
func (c *Controller) refreshDemand() {
	demand := make(map[int32]bool, len(c.phases))
	for _, call := range c.calls {
		if call.IsActive() {
			demand[call.phase] = true
		}
	}
	for _, p := range c.ordered {
		p.setDemand(demand[p.number])
	}
}

// advancePhases 推进所有激活相位的计时状态机
// 功能：逐相位计算延长依据与协调强制关断/让行，推进状态机并处理
// 绿灯结束/回到Rest事件；抢占时冲突相位被立即压入黄灯并以加速
// 时钟清空
func (c *Controller) advancePhases(dtDs int32) {
	preempting := c.preempting() && c.preemptPhase != 0
	for _, p := range c.ordered {
		if !p.state.IsActive() {
			continue
		}
		dt := dtDs
		if preempting && p.number != c.preemptPhase && p.ConflictsWith(c.preemptPhase) {
			// 抢占：冲突相位立即结束绿灯（最小绿保护不生效），清空加速
			if p.IsGreen() && p.forceToYellow() {
				c.onGreenEnd(p)
			}
			if p.IsClearing() {
				dt = dtDs * preemptClearanceFactor
			}
		}

		// 行人持久请求：绿灯内行人清空时间走完后由控制器代表外部清除
		if p.IsGreen() && c.pedClearance > 0 {
			c.clearServedPedestrianCalls(p)
		}

		// 协调：force-off跨越与让行窗口（锁存到绿灯结束，最小绿在状态机内保底）
		if c.coord.Enabled() && c.mode == entity.ControllerModeCoordinated && p.IsGreen() {
			if c.coord.HasForceOff(p.number) &&
				cycleCrossed(c.coord.ForceOffAt(p.number), c.lastCycleTimer, c.cycleTimer) {
				p.forceOffLatched = true
			}
			if p.omittable && p.greenT >= c.coord.minExtend &&
				c.coord.InYieldWindow(p.number, c.cycleTimer) {
				p.forceOffLatched = true
			}
		}

		evt := p.advance(dt, c.extensionDemand(p), p.forceOffLatched)
		if evt.enteredYellow {
			c.onGreenEnd(p)
		}
		if evt.returnedToRest {
			c.setPhaseActive(p.number, false)
		}
	}
}

// extensionDemand 计算相位的绿灯延长依据
// 功能：需同时存在(1)本相位某个启用、未故障、允许延长的检测器当前
// 占用且未超过最大累计延长 (2)本相位一个可延长的有效请求
func (c *Controller) extensionDemand(p *Phase) bool {
	hasDetector := false
	for _, id := range p.detectorIDs {
		if c.detectorByID[id].ShouldProvideExtension() {
			hasDetector = true
			break
		}
	}
	if !hasDetector {
		return false
	}
	for _, call := range c.calls {
		if call.phase == p.number && call.extendable && call.IsActive() {
			return true
		}
	}
	return false
}

// onGreenEnd 绿灯结束（进入黄灯）时的请求收尾
// 功能：非持久的已服务请求清除；无行人清空常量时行人请求也在此清除
func (c *Controller) onGreenEnd(p *Phase) {
	for _, call := range c.calls {
		if call.phase != p.number || call.status != entity.CallStatusServed {
			continue
		}
		if !call.persistent {
			call.MarkCleared(c.now)
		} else if call.typ == entity.CallTypePedestrian && c.pedClearance <= 0 {
			call.MarkCleared(c.now)
		}
	}
}

// clearServedPedestrianCalls 行人清空时间走完后清除已服务的行人请求
func (c *Controller) clearServedPedestrianCalls(p *Phase) {
	for _, call := range c.calls {
		if call.phase == p.number && call.typ == entity.CallTypePedestrian &&
			call.status == entity.CallStatusServed &&
			c.now-call.servedAt >= int64(c.pedClearance) {
			call.MarkCleared(c.now)
		}
	}
}

// arbitratePreemption 抢占仲裁
// 功能：目标相位未激活且所有冲突相位清空完毕时强制启动
// （跳过CallsPresent与屏障约束）
func (c *Controller) arbitratePreemption() {
	if c.preemptPhase == 0 {
		return
	}
	p := c.phases[c.preemptPhase]
	if c.isPhaseActive(p.number) {
		return
	}
	if p.conflictMask.Intersects(c.active) {
		// 冲突相位仍在清空
		return
	}
	c.startPhase(p)
}

// arbitrateRings 环/屏障仲裁
// 功能：空闲环内从当前屏障组中选出编号最小的可启动相位；当前组
// 全部回到Rest且无可启动需求后屏障才允许推进到下一个有需求的组
// 说明：冲突检查是全局的（对所有环的激活相位），这是防止跨环
// 不安全组合的关键；相位启动次序按相位编号（NEMA环结构），请求
// 优先级只影响相位内部的服务记账
func (c *Controller) arbitrateRings() {
	c.maybeAdvanceBarrier()
	for _, ring := range c.rings {
		if c.ringActive(ring) {
			continue
		}
		for _, p := range ring {
			if p.enabled && p.state == entity.PhaseStateCallsPresent &&
				p.barrierGroup == c.barrierIndex &&
				!p.conflictMask.Intersects(c.active) {
				c.startPhase(p)
				break
			}
		}
	}
}

// maybeAdvanceBarrier 屏障推进检查
// 功能：当前屏障组内所有相位（跨所有环）都回到Rest且组内无可启动
// 需求时，循环推进到下一个有需求的组
func (c *Controller) maybeAdvanceBarrier() {
	cur := c.barriers[c.barrierIndex]
	if c.active.Intersects(cur) {
		return
	}
	if c.groupHasDemand(cur) {
		return
	}
	n := int32(len(c.barriers))
	for i := int32(1); i < n; i++ {
		g := (c.barrierIndex + i) % n
		if c.groupHasDemand(c.barriers[g]) {
			c.barrierIndex = g
			return
		}
	}
}

// groupHasDemand 屏障组内是否存在可启动需求
func (c *Controller) groupHasDemand(mask entity.PhaseMask) bool {
	for _, p := range c.ordered {
		if p.enabled && p.state == entity.PhaseStateCallsPresent && mask.Has(p.number) {
			return true
		}
	}
	return false
}

// ringActive 环内是否有激活相位
func (c *Controller) ringActive(ring []*Phase) bool {
	for _, p := range ring {
		if c.isPhaseActive(p.number) {
			return true
		}
	}
	return false
}

// startPhase 启动相位
// 功能：置激活位、进入最小绿，并服务该相位的全部有效请求；
// 优先级加权只决定记账上的"主服务请求"（最高优先级、最早放置），
// 不改变相位启动次序
func (c *Controller) startPhase(p *Phase) {
	c.setPhaseActive(p.number, true)
	p.start()

	pq := container.NewPriorityQueue[*Call]()
	for i, call := range c.calls {
		if call.phase == p.number && call.status == entity.CallStatusActive {
			// 小顶堆：高优先级在前，同优先级先放置在前，再按插入次序
			pq.HeapPush(call, float64(-call.priority)*1e9+float64(call.placedAt)+float64(i)*1e-3)
			call.MarkServed(c.now)
		}
	}
	if pq.Len() > 0 {
		primary, _ := pq.HeapPop()
		c.lastServedCall = primary.id
		log.Debugf("controller %d: start phase %d serving call %s (type %d)", c.id, p.number, primary.id, primary.typ)
	} else {
		log.Debugf("controller %d: start phase %d without standing calls", c.id, p.number)
	}
}

// cleanupCalls 请求超时与清理
// 功能：超时请求标记timed-out并移除；cleared/timed-out请求移除
func (c *Controller) cleanupCalls() {
	kept := c.calls[:0]
	for _, call := range c.calls {
		if call.CheckTimeout(c.now) {
			call.MarkTimedOut(c.now)
			log.Debugf("controller %d: call %s for phase %d timed out", c.id, call.id, call.phase)
			continue
		}
		if call.status == entity.CallStatusCleared || call.status == entity.CallStatusTimedOut {
			continue
		}
		kept = append(kept, call)
	}
	// 截断尾部引用，避免泄漏
	for i := len(kept); i < len(c.calls); i++ {
		c.calls[i] = nil
	}
	c.calls = kept
}

// setPhaseActive 变更激活位（唯一的写入点）
func (c *Controller) setPhaseActive(phase int32, active bool) {
	if active {
		c.active = c.active.Set(phase)
	} else {
		c.active = c.active.Clear(phase)
	}
}

// isPhaseActive 查询激活位（唯一的读取点）
func (c *Controller) isPhaseActive(phase int32) bool {
	return c.active.Has(phase)
}

// cycleCrossed 判断周期计时本tick是否跨过指定时刻（环形区间）
func cycleCrossed(point, prev, cur int32) bool {
	if prev <= cur {
		return prev < point && point <= cur
	}
	// 周期回绕
	return point > prev || point <= cur
}

// ManualAdvance 手动推进
// 功能：手动模式下由主机驱动一次环仲裁（启动下一个合格相位）
// 返回：非手动模式返回ErrNotManual
func (c *Controller) ManualAdvance() error {
	if c.mode != entity.ControllerModeManual {
		return ErrNotManual
	}
	c.arbitrateRings()
	return nil
}

// SetMode 外部模式切换
// 功能：切换控制器运行模式；切入黄闪时所有相位强制回到Rest
// （黄闪只能由外部显式切换触发，控制器不会自发降级）
func (c *Controller) SetMode(mode entity.ControllerMode) {
	if c.mode == mode {
		return
	}
	if mode == entity.ControllerModeFlash {
		for _, p := range c.ordered {
			p.forceToRest()
		}
		c.active = 0
	}
	c.mode = mode
}

// SetMaintenance 设置/解除维护状态
// 说明：维护状态下不计时不仲裁，仅维护检测器与请求集合
func (c *Controller) SetMaintenance(on bool) {
	if on {
		c.state = entity.ControllerStateMaintenance
	} else if c.state == entity.ControllerStateMaintenance {
		c.state = entity.ControllerStateNormal
	}
}

// SetDetectorFault 设置/解除检测器故障
func (c *Controller) SetDetectorFault(detectorID int32, fault bool) {
	d, ok := c.detectorByID[detectorID]
	if !ok {
		log.Panicf("controller %d: no detector %d", c.id, detectorID)
	}
	d.SetFault(fault)
}

// ID 路口ID
func (c *Controller) ID() int32 {
	return c.id
}

// Mode 控制器运行模式（快照）
func (c *Controller) Mode() entity.ControllerMode {
	return c.snapshot.mode
}

// State 控制器状态（快照）
func (c *Controller) State() entity.ControllerState {
	return c.snapshot.state
}

// ActivePhases 当前激活相位掩码（快照）
func (c *Controller) ActivePhases() entity.PhaseMask {
	return c.snapshot.active
}

// PhaseState 指定相位状态（快照）
func (c *Controller) PhaseState(phase int32) entity.PhaseState {
	return c.snapshot.phaseStates[phase]
}

// IsGreen 指定相位是否绿灯（快照）
func (c *Controller) IsGreen(phase int32) bool {
	return c.snapshot.phaseStates[phase].IsGreen()
}

// IsClearing 指定相位是否清空中（快照）
func (c *Controller) IsClearing(phase int32) bool {
	return c.snapshot.phaseStates[phase].IsClearing()
}

// HasCalls 指定相位是否有待服务请求（快照）
func (c *Controller) HasCalls(phase int32) bool {
	return c.snapshot.hasCalls[phase]
}

// DetectorIDs 检测器ID列表
func (c *Controller) DetectorIDs() []int32 {
	return lo.Map(c.detectors, func(d *Detector, _ int) int32 { return d.id })
}

// Calls 当前请求数量（含active与served）
func (c *Controller) Calls() int {
	return len(c.calls)
}

// CycleTimer 协调周期计时（ds）
func (c *Controller) CycleTimer() int32 {
	return c.cycleTimer
}

// Now 控制器当前时刻（ds）
func (c *Controller) Now() int64 {
	return c.now
}

// Coordination 协调参数
func (c *Controller) Coordination() *TimingParameters {
	return c.coord
}

// Phase 获取相位（测试与快照使用）
func (c *Controller) Phase(number int32) *Phase {
	return c.phases[number]
}

// Detector 获取检测器（测试与快照使用）
func (c *Controller) Detector(id int32) *Detector {
	return c.detectorByID[id]
}
