package signal

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// TimingParameters 协调周期参数（协调器）
// 功能：可选的协调周期叠加层：绿信比表、强制关断表、让行窗口，
// 全部由主周期长度换算
// 说明：split与force-off按周期百分比存储（每相位一字节），修改周期
// 长度不会回溯重算已存的百分比，绝对时刻总是由百分比与当前周期长度
// 实时换算得到
type TimingParameters struct {
	mode entity.CoordMode

	cycleLength  int32 // 周期长度（ds）
	naturalCycle int32 // 自由运行自然周期（ds）
	offset       int32 // 相对主周期的偏移（ds）

	splits    [entity.MaxPhases]uint8 // 各相位绿信比（周期百分比，下标=相位编号-1）
	forceOffs [entity.MaxPhases]uint8 // 各相位强制关断点（周期百分比）

	yieldMask   entity.PhaseMask // 可让行相位掩码
	yieldWindow int32            // 让行窗口长度（ds），force-off点前的窗口

	priority  float64 // 协调优先权重
	maxHold   int32   // 最大保持时长（ds）
	minExtend int32   // 最小延长时长（ds）

	enabled bool
}

// NewTimingParameters 根据配置创建协调参数
// 参数：c-协调配置（nil表示无协调，返回禁用实例）
// 返回：协调参数实例与解析错误
func NewTimingParameters(c *config.Coordination) (*TimingParameters, error) {
	if c == nil {
		return &TimingParameters{mode: entity.CoordModeFree}, nil
	}
	mode, err := entity.ParseCoordMode(c.Mode)
	if err != nil {
		return nil, err
	}
	t := &TimingParameters{
		mode:         mode,
		cycleLength:  c.CycleLength,
		naturalCycle: c.NaturalCycle,
		offset:       c.Offset,
		yieldMask:    entity.MaskOf(c.YieldPhases...),
		yieldWindow:  c.YieldWindow,
		priority:     c.Priority,
		maxHold:      c.MaxHold,
		minExtend:    c.MinExtend,
		enabled:      mode == entity.CoordModeCoordinated,
	}
	for i, pct := range c.Splits {
		t.splits[i] = uint8(pct)
	}
	for i, pct := range c.ForceOffs {
		t.forceOffs[i] = uint8(pct)
	}
	return t, nil
}

// Enabled 协调是否生效
func (t *TimingParameters) Enabled() bool {
	return t.enabled && t.cycleLength > 0
}

// Mode 协调模式
func (t *TimingParameters) Mode() entity.CoordMode {
	return t.mode
}

// CycleLength 当前周期长度（ds）
func (t *TimingParameters) CycleLength() int32 {
	return t.cycleLength
}

// Offset 周期偏移（ds）
func (t *TimingParameters) Offset() int32 {
	return t.offset
}

// SetCycleLength 修改周期长度
// 说明：已存的split/force-off百分比不回溯重算，绝对时刻自动按新周期换算
func (t *TimingParameters) SetCycleLength(length int32) {
	if length <= 0 {
		log.Panicf("coordination: cycle length %d must be positive", length)
	}
	t.cycleLength = length
}

// SplitTime 指定相位的绿信比换算出的绝对时长（ds）
func (t *TimingParameters) SplitTime(phase int32) int32 {
	return t.cycleLength * int32(t.splits[phase-1]) / 100
}

// SplitPercent 指定相位的绿信比百分比
func (t *TimingParameters) SplitPercent(phase int32) int32 {
	return int32(t.splits[phase-1])
}

// HasSplit 指定相位是否配置了绿信比（协调相位）
func (t *TimingParameters) HasSplit(phase int32) bool {
	return t.splits[phase-1] > 0
}

// ForceOffAt 指定相位的强制关断时刻（周期内ds位置）
func (t *TimingParameters) ForceOffAt(phase int32) int32 {
	return t.cycleLength * int32(t.forceOffs[phase-1]) / 100
}

// HasForceOff 指定相位是否配置了强制关断点
func (t *TimingParameters) HasForceOff(phase int32) bool {
	return t.forceOffs[phase-1] > 0
}

// InYieldWindow 判断周期计时是否处于指定相位的让行窗口
// 功能：让行窗口为force-off点前yieldWindow长度的区间（周期环上）
// 参数：phase-相位编号，cycleT-当前周期计时（ds）
// 说明：仅对可让行相位有意义；窗口跨周期零点时按环形区间判断
func (t *TimingParameters) InYieldWindow(phase int32, cycleT int32) bool {
	if !t.yieldMask.Has(phase) || t.yieldWindow <= 0 || !t.HasForceOff(phase) {
		return false
	}
	end := t.ForceOffAt(phase)
	start := end - t.yieldWindow
	if start >= 0 {
		return cycleT >= start && cycleT < end
	}
	// 窗口跨过周期零点
	start += t.cycleLength
	return cycleT >= start || cycleT < end
}

// YieldMask 可让行相位掩码
func (t *TimingParameters) YieldMask() entity.PhaseMask {
	return t.yieldMask
}
