package intersection

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity/intersection/signal"
)

// 依赖倒置，表达intersection对信控实现的接口需求

// 给外部协作者提供的信控读取接口
type ISignalControllerGetter interface {
	Mode() entity.ControllerMode              // 控制器运行模式
	State() entity.ControllerState            // 控制器状态
	ActivePhases() entity.PhaseMask           // 当前激活相位掩码
	PhaseState(phase int32) entity.PhaseState // 指定相位状态
	IsGreen(phase int32) bool                 // 指定相位是否绿灯
	IsClearing(phase int32) bool              // 指定相位是否清空中
	HasCalls(phase int32) bool                // 指定相位是否有待服务请求
	DetectorIDs() []int32                     // 检测器ID列表
}

// 信控控制器接口
type ISignalController interface {
	ISignalControllerGetter
	Prepare()                                              // 准备阶段，写入输出快照
	Update(dtDs int32, present func(detectorID int32) bool) // 更新阶段，执行一个控制tick

	PlacePedestrianCall(phase int32)                // 行人按钮钩子
	PlacePreemptionCall(phase int32, railroad bool) // 紧急/铁路抢占触发钩子
	ClearPreemption()                               // 外部解除抢占
	SetMode(mode entity.ControllerMode)             // 外部模式切换
	ManualAdvance() error                           // 手动模式推进
	SetDetectorFault(detectorID int32, fault bool)  // 检测器故障注入

	Snapshot() *signal.ControllerSnapshot // 完整状态导出（外部持久化）
}
