package entity

import (
	"fmt"
)

// 相位数上限（PhaseMask为uint16，相位编号1..16）
const MaxPhases = 16

// PhaseMask 相位位掩码
// 功能：以bit-per-phase的方式表示一组相位，bit(n-1)对应相位n
// 说明：用于冲突矩阵、屏障分组、当前激活相位等场合
type PhaseMask uint16

// Set 置位指定相位
func (m PhaseMask) Set(phase int32) PhaseMask {
	return m | 1<<(phase-1)
}

// Clear 清除指定相位
func (m PhaseMask) Clear(phase int32) PhaseMask {
	return m &^ (1 << (phase - 1))
}

// Has 检查指定相位是否置位
func (m PhaseMask) Has(phase int32) bool {
	return m&(1<<(phase-1)) != 0
}

// Intersects 检查两个掩码是否有交集
func (m PhaseMask) Intersects(other PhaseMask) bool {
	return m&other != 0
}

// Phases 展开掩码中包含的相位编号列表（升序）
func (m PhaseMask) Phases() []int32 {
	phases := make([]int32, 0)
	for p := int32(1); p <= MaxPhases; p++ {
		if m.Has(p) {
			phases = append(phases, p)
		}
	}
	return phases
}

// MaskOf 根据相位编号列表构造掩码
func MaskOf(phases ...int32) PhaseMask {
	var m PhaseMask
	for _, p := range phases {
		m = m.Set(p)
	}
	return m
}

// DetectorType 检测器类型
type DetectorType int32

const (
	DetectorTypePresence DetectorType = iota // 存在型检测器（线圈常占）
	DetectorTypePulse                        // 脉冲型检测器（过车计数）
	DetectorTypeSpeed                        // 速度型检测器
	DetectorTypeQueue                        // 排队型检测器
)

// DetectorState 检测器状态
type DetectorState int32

const (
	DetectorStateClear         DetectorState = iota // 无车
	DetectorStateOccupied                           // 占用
	DetectorStateRecentlyClear                      // 刚离开（仅pulse类型）
	DetectorStateFault                              // 故障（由外部设置）
)

// CallType 请求类型
type CallType int32

const (
	CallTypeVehicular    CallType = iota // 机动车请求
	CallTypePedestrian                   // 行人请求
	CallTypeEmergency                    // 紧急车辆抢占请求
	CallTypeRailroad                     // 铁路抢占请求
	CallTypeTransit                      // 公交优先请求
	CallTypeCoordination                 // 协调周期recall请求
)

// CallPriority 请求优先级
type CallPriority int32

const (
	CallPriorityNormal  CallPriority = iota // 普通
	CallPriorityHigh                        // 高（公交、协调）
	CallPriorityMaximum                     // 最高（紧急、铁路）
)

// CallStatus 请求状态
type CallStatus int32

const (
	CallStatusActive   CallStatus = iota // 等待服务
	CallStatusServed                     // 所属相位已放行
	CallStatusCleared                    // 服务完成
	CallStatusTimedOut                   // 超时
)

// CallDefaults 请求类型的默认参数
// 说明：优先级、超时与持久性是请求类型在创建时刻的纯函数（查表），
// 不存在运行期的虚分派
type CallDefaults struct {
	Priority         CallPriority // 优先级
	Timeout          int32        // 超时时长（ds），0表示永不超时
	Persistent       bool         // 持久请求：服务后不自动清除
	Extendable       bool         // 可作为绿灯延长依据
	RequiresMinGreen bool         // 要求满足最小绿
}

// 各请求类型的默认参数表
var callDefaults = map[CallType]CallDefaults{
	CallTypeVehicular:    {Priority: CallPriorityNormal, Timeout: 0, Persistent: false, Extendable: true, RequiresMinGreen: true},
	CallTypePedestrian:   {Priority: CallPriorityNormal, Timeout: 1800, Persistent: true, Extendable: false, RequiresMinGreen: true},
	CallTypeEmergency:    {Priority: CallPriorityMaximum, Timeout: 0, Persistent: true, Extendable: false, RequiresMinGreen: false},
	CallTypeRailroad:     {Priority: CallPriorityMaximum, Timeout: 0, Persistent: true, Extendable: false, RequiresMinGreen: false},
	CallTypeTransit:      {Priority: CallPriorityHigh, Timeout: 600, Persistent: false, Extendable: true, RequiresMinGreen: true},
	CallTypeCoordination: {Priority: CallPriorityHigh, Timeout: 0, Persistent: false, Extendable: false, RequiresMinGreen: true},
}

// DefaultsOf 获取请求类型的默认参数
// 功能：按类型查表返回默认优先级/超时/持久性等参数
// 参数：t-请求类型
// 返回：默认参数表项，未知类型则panic
func DefaultsOf(t CallType) CallDefaults {
	d, ok := callDefaults[t]
	if !ok {
		panic(fmt.Sprintf("entity: unknown call type %d", t))
	}
	return d
}

// PhaseType 相位类型
type PhaseType int32

const (
	PhaseTypeVehicular     PhaseType = iota // 机动车直行相位
	PhaseTypePedestrian                     // 行人相位
	PhaseTypeOverlap                        // 跟随（overlap）相位
	PhaseTypeProtectedTurn                  // 保护转向相位
)

// PhaseState 相位状态机状态
type PhaseState int32

const (
	PhaseStateRest         PhaseState = iota // 静止，无请求
	PhaseStateCallsPresent                   // 有请求，等待控制器启动
	PhaseStateMinimumGreen                   // 最小绿
	PhaseStatePassageTime                    // 间隔延长（gap timing）
	PhaseStateMaximumGreen                   // 最大绿上限标记状态（不驻留）
	PhaseStateYellow                         // 黄灯
	PhaseStateAllRed                         // 全红清空
)

// IsGreen 判断是否为绿灯状态
func (s PhaseState) IsGreen() bool {
	return s == PhaseStateMinimumGreen || s == PhaseStatePassageTime || s == PhaseStateMaximumGreen
}

// IsClearing 判断是否为清空（黄灯/全红）状态
func (s PhaseState) IsClearing() bool {
	return s == PhaseStateYellow || s == PhaseStateAllRed
}

// IsActive 判断相位是否处于激活区间（绿灯开始到全红结束）
// 说明：控制器active位的定义，与冲突互斥检查一致
func (s PhaseState) IsActive() bool {
	return s.IsGreen() || s.IsClearing()
}

// ControllerMode 控制器运行模式
type ControllerMode int32

const (
	ControllerModeActuated    ControllerMode = iota // 感应控制
	ControllerModeCoordinated                       // 协调控制
	ControllerModeManual                            // 手动控制
	ControllerModeFlash                             // 黄闪
)

// ControllerState 控制器状态
type ControllerState int32

const (
	ControllerStateNormal           ControllerState = iota // 正常
	ControllerStateEmergencyPreempt                        // 紧急车辆抢占
	ControllerStateRailroadPreempt                         // 铁路抢占
	ControllerStateMaintenance                             // 维护
)

// CoordMode 协调模式
type CoordMode int32

const (
	CoordModeFree        CoordMode = iota // 自由运行
	CoordModeCoordinated                  // 协调周期
	CoordModeManual                       // 手动
)

// 字符串到枚举的解析表（配置文件使用字符串表示）
var (
	detectorTypeNames = map[string]DetectorType{
		"presence": DetectorTypePresence,
		"pulse":    DetectorTypePulse,
		"speed":    DetectorTypeSpeed,
		"queue":    DetectorTypeQueue,
	}
	phaseTypeNames = map[string]PhaseType{
		"vehicular":      PhaseTypeVehicular,
		"pedestrian":     PhaseTypePedestrian,
		"overlap":        PhaseTypeOverlap,
		"protected_turn": PhaseTypeProtectedTurn,
	}
	controllerModeNames = map[string]ControllerMode{
		"actuated":    ControllerModeActuated,
		"coordinated": ControllerModeCoordinated,
		"manual":      ControllerModeManual,
		"flash":       ControllerModeFlash,
	}
	coordModeNames = map[string]CoordMode{
		"free":        CoordModeFree,
		"coordinated": CoordModeCoordinated,
		"manual":      CoordModeManual,
	}
)

// ParseDetectorType 解析检测器类型字符串
func ParseDetectorType(s string) (DetectorType, error) {
	if t, ok := detectorTypeNames[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("entity: unknown detector type %q", s)
}

// ParsePhaseType 解析相位类型字符串
func ParsePhaseType(s string) (PhaseType, error) {
	if t, ok := phaseTypeNames[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("entity: unknown phase type %q", s)
}

// ParseControllerMode 解析控制器模式字符串
func ParseControllerMode(s string) (ControllerMode, error) {
	if m, ok := controllerModeNames[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("entity: unknown controller mode %q", s)
}

// ParseCoordMode 解析协调模式字符串
func ParseCoordMode(s string) (CoordMode, error) {
	if m, ok := coordModeNames[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("entity: unknown coordination mode %q", s)
}
