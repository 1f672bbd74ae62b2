package signal

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// Detector 检测器
// 功能：感知车道检测区内的车辆占用/通过，结合配置决定是否放置请求
// 或提供绿灯延长依据
// 说明：状态只能通过UpdateState由外部占用信号驱动变化；fault状态由
// 外部设置，故障检测器不参与请求放置与绿灯延长（避免常占/常空的
// 检测器饿死或淹没路口）
type Detector struct {
	id    int32
	phase int32 // 所属相位编号
	typ   entity.DetectorType
	state entity.DetectorState

	zoneStart   float64 // 检测区起点（车道归一化坐标0-1）
	zoneLength  float64 // 检测区长度（归一化）
	sensitivity float64 // 灵敏度

	extension    int32 // 单次延长时长（ds）
	maxExtension int32 // 最大累计延长时长（ds），<=0表示不限

	occupiedT    int32 // 当前占用累计时长（ds）
	vehicleCount int64 // 累计过车数

	enabled          bool // 是否启用
	placeCalls       bool // 允许放置请求
	provideExtension bool // 允许提供绿灯延长
}

// NewDetector 根据配置创建检测器
// 参数：c-检测器配置（类型字符串已由外部校验器保证合法前提下解析）
// 返回：检测器实例与解析错误
func NewDetector(c config.Detector) (*Detector, error) {
	typ, err := entity.ParseDetectorType(c.Type)
	if err != nil {
		return nil, err
	}
	return &Detector{
		id:               c.ID,
		phase:            c.Phase,
		typ:              typ,
		state:            entity.DetectorStateClear,
		zoneStart:        c.ZoneStart,
		zoneLength:       c.ZoneLength,
		sensitivity:      c.Sensitivity,
		extension:        c.Extension,
		maxExtension:     c.MaxExtension,
		enabled:          !c.Disabled,
		placeCalls:       !c.NoCalls,
		provideExtension: !c.NoExtension,
	}, nil
}

// UpdateState 根据外部占用信号推进检测器状态
// 功能：纯转移函数，每tick调用一次
// 参数：present-当前检测区是否有车，dtDs-本tick整ds增量
// 算法说明：
// 1. clear/recently-clear+有车 → occupied（占用计时清零，过车数+1）
// 2. occupied+有车 → 占用计时累加
// 3. occupied+无车 → pulse类型进入recently-clear，其余直接clear
// 4. recently-clear+无车 → clear
// 说明：故障或禁用状态下不做任何转移
func (d *Detector) UpdateState(present bool, dtDs int32) {
	if !d.enabled || d.state == entity.DetectorStateFault {
		return
	}
	switch d.state {
	case entity.DetectorStateClear, entity.DetectorStateRecentlyClear:
		if present {
			d.state = entity.DetectorStateOccupied
			d.occupiedT = 0
			d.vehicleCount++
		} else if d.state == entity.DetectorStateRecentlyClear {
			d.state = entity.DetectorStateClear
		}
	case entity.DetectorStateOccupied:
		if present {
			d.occupiedT += dtDs
		} else if d.typ == entity.DetectorTypePulse {
			d.state = entity.DetectorStateRecentlyClear
		} else {
			d.state = entity.DetectorStateClear
			d.occupiedT = 0
		}
	}
}

// ShouldPlaceCall 判断是否应为所属相位放置请求
// 说明：pulse类型在recently-clear状态仍可放置请求（过车后登记需求）
func (d *Detector) ShouldPlaceCall() bool {
	if !d.enabled || !d.placeCalls || d.state == entity.DetectorStateFault {
		return false
	}
	return d.state == entity.DetectorStateOccupied ||
		(d.typ == entity.DetectorTypePulse && d.state == entity.DetectorStateRecentlyClear)
}

// ShouldProvideExtension 判断是否应为所属相位提供绿灯延长
// 说明：累计占用超过最大延长时长后不再延长（防止常占检测器无限延绿）
func (d *Detector) ShouldProvideExtension() bool {
	if !d.enabled || !d.provideExtension || d.state != entity.DetectorStateOccupied {
		return false
	}
	return d.maxExtension <= 0 || d.occupiedT <= d.maxExtension
}

// SetFault 设置/解除故障状态
// 说明：由外部系统设置；解除故障后回到clear重新开始
func (d *Detector) SetFault(fault bool) {
	if fault {
		d.state = entity.DetectorStateFault
	} else if d.state == entity.DetectorStateFault {
		d.state = entity.DetectorStateClear
		d.occupiedT = 0
	}
}

// SetEnabled 设置启用状态
func (d *Detector) SetEnabled(enabled bool) {
	d.enabled = enabled
}

// ID 检测器ID
func (d *Detector) ID() int32 {
	return d.id
}

// Phase 所属相位编号
func (d *Detector) Phase() int32 {
	return d.phase
}

// State 当前状态
func (d *Detector) State() entity.DetectorState {
	return d.state
}

// OccupiedTime 当前占用累计时长（ds）
func (d *Detector) OccupiedTime() int32 {
	return d.occupiedT
}

// VehicleCount 累计过车数
func (d *Detector) VehicleCount() int64 {
	return d.vehicleCount
}
