package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// Clock 仿真时钟管理器
// 功能：管理仿真系统的时间推进，并将浮点步长换算为整ds（0.1秒）增量
// 说明：控制器所有计时均以整ds进行，换算时保留亚ds余量累积，
// 避免每步独立截断导致的时间漂移
type Clock struct {
	DT         float64 // 每个模拟步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数
	Ds           int64   // 当前仿真时间（ds，单调递增）

	remainder float64 // 亚ds余量（0<=remainder<1，单位ds）
}

// New 根据配置创建新的时钟实例
// 功能：根据全局配置初始化时钟信息
// 参数：stepConfig-控制步配置，包含时间间隔、起止步数
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 初始化时钟状态
// 功能：重置步数、秒级时间、ds计数与亚ds余量
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
	c.Ds = int64(c.T * 10)
	c.remainder = c.T*10 - float64(c.Ds)
}

// Advance 推进一个模拟步
// 功能：步数加一，更新秒级时间，并返回本步的整ds增量
// 返回：本步整ds增量
// 算法说明：
// 1. 将DT换算为ds并加到余量上
// 2. 取整数部分作为本步增量，余数保留到下一步
// 3. 单调ds计数Ds累加增量
func (c *Clock) Advance() int32 {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT

	c.remainder += c.DT * 10
	dtDs := int32(c.remainder)
	c.remainder -= float64(dtDs)
	c.Ds += int64(dtDs)
	return dtDs
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串（HH:MM:SS）
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 功能：将当前时间分解为小时、分钟、秒三个部分
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
