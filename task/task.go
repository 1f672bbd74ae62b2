package task

import (
	"flag"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/signalctl-sim-oss/clock"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：管理仿真系统的所有组件，包括时钟、路口管理器、配置、
// 车辆到达流等
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 路口管理器
	intersectionManager entity.IIntersectionManager
	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig
	// 演示用车辆到达流（外部占用信号来源）
	feeder *Feeder

	// 本步整ds增量（prepare计算，update消费）
	dtDs int32
}

// NewContext 创建新的仿真任务上下文
// 功能：初始化仿真系统的所有组件和配置
// 参数：job-任务名称，c-配置对象
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 校验配置（进入控制器前的外部校验契约）
// 2. 初始化时钟与运行时配置
// 3. 创建车辆到达流与路口管理器并初始化所有路口
func NewContext(job string, c config.Config) *Context {
	if err := c.Validate(); err != nil {
		log.Panicf("config validate err: %v", err)
	}
	ctx := &Context{
		job:           job,
		clock:         clock.New(c.Control.Step),
		runtimeConfig: config.NewRuntimeConfig(c),
		feeder:        NewFeeder(c.Intersections),
	}
	m := intersection.NewManager(ctx)
	if err := m.Init(c.Intersections, ctx.feeder); err != nil {
		log.Panicf("init intersections err: %v", err)
	}
	ctx.intersectionManager = m
	return ctx
}

// Clock 时钟
func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

// IntersectionManager 路口管理器
func (ctx *Context) IntersectionManager() entity.IIntersectionManager {
	return ctx.intersectionManager
}

// RuntimeConfig 运行时配置
func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// prepare 准备阶段，每步执行一次
// 功能：推进时钟并换算本步整ds增量，输出心跳日志，执行各路口的
// 准备阶段（写入输出快照）
func (ctx *Context) prepare() {
	ctx.dtDs = ctx.clock.Advance()

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}

	ctx.intersectionManager.Prepare()
}

// update 更新阶段，每步执行一次
// 功能：以本步整ds增量并行推进所有路口的控制tick
func (ctx *Context) update() {
	ctx.intersectionManager.Update(ctx.dtDs)
}

// Run 运行
// 功能：执行主循环直至到达结束步或收到关闭指令
func (ctx *Context) Run() {
	for ctx.clock.InternalStep < ctx.clock.END_STEP {
		ctx.prepare()
		ctx.update()
		if ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
}

// Close 发送关闭指令
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}
