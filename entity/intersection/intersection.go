package intersection

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// Intersection 路口
// 功能：一个受控路口实体，持有其信控控制器并在每tick将外部占用
// 信号接入控制器
// 说明：一个路口的全部状态由其控制器独占持有，路口之间不共享可变
// 状态（这也是管理器可以并行推进各路口的前提）
type Intersection struct {
	ctx entity.ITaskContext

	id         int32
	controller ISignalController      // 信控模块
	source     entity.IPresenceSource // 外部占用信号来源
	detectors  []int32                // 检测器ID列表（缓存）
}

// newIntersection 创建并初始化一个新的路口实例
// 参数：ctx-任务上下文，ic-路口配置，source-占用信号来源
// 返回：初始化完成的路口实例
func newIntersection(ctx entity.ITaskContext, ic config.Intersection, source entity.IPresenceSource) *Intersection {
	ctrl, err := signal.NewController(ic)
	if err != nil {
		log.Panicf("init intersection %d error: %v", ic.ID, err)
	}
	i := &Intersection{
		ctx:        ctx,
		id:         ic.ID,
		controller: ctrl,
		source:     source,
	}
	i.detectors = ctrl.DetectorIDs()
	return i
}

// prepare 准备阶段，写入控制器输出快照
func (i *Intersection) prepare() {
	i.controller.Prepare()
}

// update 更新阶段，执行控制器的一个tick
// 参数：dtDs-本步整ds增量
func (i *Intersection) update(dtDs int32) {
	i.controller.Update(dtDs, i.present)
}

// present 查询指定检测器当前是否有车
// 说明：占用信号如何从车辆几何推导不属于核心，无来源时视为无车
func (i *Intersection) present(detectorID int32) bool {
	if i.source == nil {
		return false
	}
	return i.source.VehiclePresent(i.id, detectorID)
}

// ID 获取路口的唯一标识符
func (i *Intersection) ID() int32 {
	if i == nil {
		return -1
	}
	return i.id
}

// Mode 控制器运行模式
func (i *Intersection) Mode() entity.ControllerMode {
	return i.controller.Mode()
}

// State 控制器状态
func (i *Intersection) State() entity.ControllerState {
	return i.controller.State()
}

// ActivePhases 当前激活相位掩码
func (i *Intersection) ActivePhases() entity.PhaseMask {
	return i.controller.ActivePhases()
}

// PhaseState 指定相位状态
func (i *Intersection) PhaseState(phase int32) entity.PhaseState {
	return i.controller.PhaseState(phase)
}

// IsGreen 指定相位是否绿灯
func (i *Intersection) IsGreen(phase int32) bool {
	return i.controller.IsGreen(phase)
}

// IsClearing 指定相位是否清空中
func (i *Intersection) IsClearing(phase int32) bool {
	return i.controller.IsClearing(phase)
}

// HasCalls 指定相位是否有待服务请求
func (i *Intersection) HasCalls(phase int32) bool {
	return i.controller.HasCalls(phase)
}

// DetectorIDs 检测器ID列表
func (i *Intersection) DetectorIDs() []int32 {
	return i.detectors
}

// PlacePedestrianCall 行人按钮钩子
func (i *Intersection) PlacePedestrianCall(phase int32) {
	i.controller.PlacePedestrianCall(phase)
}

// PlacePreemptionCall 紧急/铁路抢占触发钩子
func (i *Intersection) PlacePreemptionCall(phase int32, railroad bool) {
	i.controller.PlacePreemptionCall(phase, railroad)
}

// ClearPreemption 外部解除抢占
func (i *Intersection) ClearPreemption() {
	i.controller.ClearPreemption()
}

// SetMode 外部模式切换
func (i *Intersection) SetMode(mode entity.ControllerMode) {
	i.controller.SetMode(mode)
}

// Controller 信控控制器（测试与持久化协作者使用）
func (i *Intersection) Controller() ISignalController {
	return i.controller
}
