package signal

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// advanceResult 一次状态机推进产生的事件
// 说明：控制器依赖这些事件完成请求清理与active位维护
type advanceResult struct {
	enteredYellow  bool // 本tick进入黄灯（绿灯结束）
	returnedToRest bool // 本tick回到Rest（全红结束，可再次被选择）
}

// Phase 相位
// 功能：一个交通流向的定义与计时状态机
// （Rest → CallsPresent → MinimumGreen → {PassageTime|MaximumGreen} → Yellow → AllRed → Rest）
// 说明：所有时间参数为整ds；冲突矩阵在配置时对称填入（外部校验契约），
// 运行期只查询不修正；状态机仅在该相位为环内激活相位时由控制器推进
type Phase struct {
	number int32 // 相位编号（1..N）
	ring   int32 // 所属环（0-based）
	typ    entity.PhaseType

	state  entity.PhaseState
	timer  int32 // 当前状态已运行时长（ds）
	greenT int32 // 绿灯起累计时长（ds），最大绿上限依据

	minGreen int32 // 最小绿（ds）
	passage  int32 // 间隔延长时间（ds）
	maxGreen int32 // 最大绿（ds）
	yellow   int32 // 黄灯（ds）
	allRed   int32 // 全红（ds）

	conflictMask entity.PhaseMask // 冲突相位掩码
	overlapMask  entity.PhaseMask // 兼容跟随相位掩码
	barrierGroup int32            // 所属屏障组下标（控制器初始化时填入）

	enabled   bool // 是否启用
	omittable bool // 协调时可被跳过/提前让行
	hasPed    bool // 是否带行人信号
	hasCalls  bool // 需求标志（每tick由请求集合重算）

	forceOffLatched bool // 协调强制关断已触发（跨过force-off点后锁存到绿灯结束）

	detectorIDs []int32 // 分配到本相位的检测器ID
}

// NewPhase 根据配置创建相位
// 参数：c-相位配置
// 返回：相位实例与解析错误
func NewPhase(c config.Phase) (*Phase, error) {
	typ, err := entity.ParsePhaseType(c.Type)
	if err != nil {
		return nil, err
	}
	return &Phase{
		number:       c.Number,
		ring:         c.Ring,
		typ:          typ,
		state:        entity.PhaseStateRest,
		minGreen:     c.MinGreen,
		passage:      c.Passage,
		maxGreen:     c.MaxGreen,
		yellow:       c.Yellow,
		allRed:       c.AllRed,
		conflictMask: entity.MaskOf(c.Conflicts...),
		overlapMask:  entity.MaskOf(c.Overlaps...),
		enabled:      !c.Disabled,
		omittable:    c.Omittable,
		hasPed:       c.Pedestrian,
		detectorIDs:  make([]int32, 0),
	}, nil
}

// ConflictsWith 判断与指定相位是否冲突
// 说明：只查询本相位的冲突掩码，不假设存储对称（对称性是配置契约）
func (p *Phase) ConflictsWith(other int32) bool {
	return p.conflictMask.Has(other)
}

// setDemand 更新需求标志
// 功能：请求集合重算后写入hasCalls，并处理Rest与CallsPresent之间的转换
// 说明：CallsPresent尚未激活，等待控制器的启动决策；需求消失
// （请求全部超时）则退回Rest
func (p *Phase) setDemand(has bool) {
	p.hasCalls = has
	if p.state == entity.PhaseStateRest && has {
		p.state = entity.PhaseStateCallsPresent
	} else if p.state == entity.PhaseStateCallsPresent && !has {
		p.state = entity.PhaseStateRest
	}
}

// start 控制器启动本相位
// 功能：进入最小绿，计时清零
func (p *Phase) start() {
	p.state = entity.PhaseStateMinimumGreen
	p.timer = 0
	p.greenT = 0
	p.forceOffLatched = false
}

// advance 推进计时状态机一个tick
// 功能：按当前状态推进计时并执行转移
// 参数：dtDs-本tick整ds增量，extension-本tick是否存在合格的延长依据，
// forceOff-协调强制关断/让行要求结束绿灯
// 返回：本tick产生的事件
// 算法说明：
// 1. 最小绿：计时达到最小绿后，有延长依据则进入间隔延长，否则gap-out进黄灯；
//    强制关断同样要等最小绿满足（最小绿不可侵犯）
// 2. 间隔延长：延长依据存在则gap计时复位（可反复复位），消失后计满passage进黄灯
// 3. 最大绿为硬上限：绿灯累计达到最大绿时经MaximumGreen标记态当tick转入黄灯，
//    持续的延长依据无法阻止（任何相位都不能无限持绿）
// 4. 黄灯、全红按配置时长推进，全红结束回到Rest并可再次被选择
func (p *Phase) advance(dtDs int32, extension bool, forceOff bool) advanceResult {
	var r advanceResult
	switch p.state {
	case entity.PhaseStateMinimumGreen:
		p.timer += dtDs
		p.greenT += dtDs
		if p.greenT >= p.maxGreen {
			p.state = entity.PhaseStateMaximumGreen
		} else if p.timer >= p.minGreen {
			if !forceOff && extension {
				p.state = entity.PhaseStatePassageTime
				p.timer = 0
			} else {
				p.toYellow(&r)
			}
		}
	case entity.PhaseStatePassageTime:
		p.greenT += dtDs
		if p.greenT >= p.maxGreen {
			p.state = entity.PhaseStateMaximumGreen
		} else if forceOff {
			p.toYellow(&r)
		} else if extension {
			// gap复位：新的延长依据重启间隔计时
			p.timer = 0
		} else {
			p.timer += dtDs
			if p.timer >= p.passage {
				p.toYellow(&r)
			}
		}
	case entity.PhaseStateYellow:
		p.timer += dtDs
		if p.timer >= p.yellow {
			p.state = entity.PhaseStateAllRed
			p.timer = 0
		}
	case entity.PhaseStateAllRed:
		p.timer += dtDs
		if p.timer >= p.allRed {
			p.state = entity.PhaseStateRest
			p.timer = 0
			p.hasCalls = false
			r.returnedToRest = true
		}
	}
	// MaximumGreen是上限标记而非驻留状态，当tick立即转入黄灯
	if p.state == entity.PhaseStateMaximumGreen {
		p.toYellow(&r)
	}
	return r
}

// forceToYellow 抢占强制结束绿灯
// 功能：绿灯状态立即转入黄灯（最小绿保护对抢占不生效）
// 返回：是否发生了绿灯结束事件
func (p *Phase) forceToYellow() bool {
	if p.state.IsGreen() {
		var r advanceResult
		p.toYellow(&r)
		return r.enteredYellow
	}
	return false
}

// forceToRest 强制回到Rest（黄闪等外部模式切换）
func (p *Phase) forceToRest() {
	p.state = entity.PhaseStateRest
	p.timer = 0
	p.greenT = 0
	p.hasCalls = false
	p.forceOffLatched = false
}

func (p *Phase) toYellow(r *advanceResult) {
	p.state = entity.PhaseStateYellow
	p.timer = 0
	p.forceOffLatched = false
	r.enteredYellow = true
}

// Number 相位编号
func (p *Phase) Number() int32 {
	return p.number
}

// Ring 所属环
func (p *Phase) Ring() int32 {
	return p.ring
}

// Type 相位类型
func (p *Phase) Type() entity.PhaseType {
	return p.typ
}

// State 当前状态
func (p *Phase) State() entity.PhaseState {
	return p.state
}

// HasCalls 是否有待服务需求
func (p *Phase) HasCalls() bool {
	return p.hasCalls
}

// IsGreen 是否绿灯
func (p *Phase) IsGreen() bool {
	return p.state.IsGreen()
}

// IsClearing 是否处于清空（黄灯/全红）
func (p *Phase) IsClearing() bool {
	return p.state.IsClearing()
}

// Enabled 是否启用
func (p *Phase) Enabled() bool {
	return p.enabled
}

// Timer 当前状态已运行时长（ds）
func (p *Phase) Timer() int32 {
	return p.timer
}

// GreenTime 绿灯起累计时长（ds）
func (p *Phase) GreenTime() int32 {
	return p.greenT
}
