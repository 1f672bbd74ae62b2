package signal

import (
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
)

// 请求来源的特殊值（非负值为检测器ID）
const (
	CallSourceExternal    int32 = -1 // 外部钩子（行人按钮、抢占触发）
	CallSourceCoordinator int32 = -2 // 协调器recall
)

// 时间戳未设置
const timestampUnset int64 = -1

// Call 服务请求
// 功能：一个相位的一份需求，携带类型/优先级/时间戳，支持超时与持久语义
// 说明：优先级与默认超时/持久性在创建时由类型查表确定（entity.DefaultsOf），
// 生命周期内不变；请求由控制器的请求集合持有，不属于检测器
type Call struct {
	id    string
	phase int32
	typ   entity.CallType

	priority entity.CallPriority
	status   entity.CallStatus

	placedAt  int64 // 放置时刻（ds）
	servedAt  int64 // 服务开始时刻（ds），未设置为-1
	clearedAt int64 // 清除时刻（ds），未设置为-1

	timeout int32 // 超时时长（ds），0表示永不超时

	extendable       bool // 可作为绿灯延长依据
	persistent       bool // 持久：服务后不自动清除
	requiresMinGreen bool // 要求满足最小绿

	source int32 // 放置来源：检测器ID或CallSource*特殊值，用于去重
}

// NewCall 创建请求
// 功能：按类型查表填入默认优先级/超时/持久性
// 参数：phase-目标相位，typ-请求类型，now-当前时刻（ds），source-放置来源
// 返回：新请求实例
func NewCall(phase int32, typ entity.CallType, now int64, source int32) *Call {
	d := entity.DefaultsOf(typ)
	return &Call{
		source:           source,
		id:               uuid.NewString(),
		phase:            phase,
		typ:              typ,
		priority:         d.Priority,
		status:           entity.CallStatusActive,
		placedAt:         now,
		servedAt:         timestampUnset,
		clearedAt:        timestampUnset,
		timeout:          d.Timeout,
		extendable:       d.Extendable,
		persistent:       d.Persistent,
		requiresMinGreen: d.RequiresMinGreen,
	}
}

// IsActive 是否计入需求
// 说明：active与served两种状态都算作待满足的需求
func (c *Call) IsActive() bool {
	return c.status == entity.CallStatusActive || c.status == entity.CallStatusServed
}

// CheckTimeout 判断是否超时
// 功能：超时时长>0且放置后未被服务超过该时长即超时
// 参数：now-当前时刻（ds）
func (c *Call) CheckTimeout(now int64) bool {
	return c.timeout > 0 && c.status == entity.CallStatusActive && now-c.placedAt >= int64(c.timeout)
}

// MarkServed 标记为已服务（所属相位放行）
func (c *Call) MarkServed(now int64) {
	if c.status == entity.CallStatusActive {
		c.status = entity.CallStatusServed
		c.servedAt = now
	}
}

// MarkCleared 标记为已清除
func (c *Call) MarkCleared(now int64) {
	c.status = entity.CallStatusCleared
	c.clearedAt = now
}

// MarkTimedOut 标记为超时
func (c *Call) MarkTimedOut(now int64) {
	c.status = entity.CallStatusTimedOut
	c.clearedAt = now
}

// ID 请求ID
func (c *Call) ID() string {
	return c.id
}

// Phase 目标相位编号
func (c *Call) Phase() int32 {
	return c.phase
}

// Type 请求类型
func (c *Call) Type() entity.CallType {
	return c.typ
}

// Priority 优先级
func (c *Call) Priority() entity.CallPriority {
	return c.priority
}

// Status 当前状态
func (c *Call) Status() entity.CallStatus {
	return c.status
}

// PlacedAt 放置时刻（ds）
func (c *Call) PlacedAt() int64 {
	return c.placedAt
}

// ServedAt 服务开始时刻（ds），未服务为-1
func (c *Call) ServedAt() int64 {
	return c.servedAt
}

// Persistent 是否持久请求
func (c *Call) Persistent() bool {
	return c.persistent
}

// Extendable 是否可作为绿灯延长依据
func (c *Call) Extendable() bool {
	return c.extendable
}

// Source 放置来源（检测器ID或CallSource*特殊值）
func (c *Call) Source() int32 {
	return c.source
}
