package entity

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// Manager依赖倒置

// entity/intersection/intersection.go的依赖倒置
// 给外部协作者（渲染、统计、上层协调）提供的路口控制器读取与输入接口
type IIntersection interface {
	ID() int32

	// 输出接口：驱动灯头渲染与状态显示
	Mode() ControllerMode            // 控制器运行模式
	State() ControllerState          // 控制器状态
	ActivePhases() PhaseMask         // 当前激活相位位掩码
	PhaseState(phase int32) PhaseState // 指定相位状态机状态
	IsGreen(phase int32) bool        // 指定相位是否绿灯
	IsClearing(phase int32) bool     // 指定相位是否处于清空（黄灯/全红）
	HasCalls(phase int32) bool       // 指定相位是否有待服务请求
	DetectorIDs() []int32            // 检测器ID列表（供外部占用信号源遍历）

	// 输入接口：绕过检测器的外部请求放置钩子
	PlacePedestrianCall(phase int32)                 // 行人按钮
	PlacePreemptionCall(phase int32, railroad bool)  // 紧急/铁路抢占触发
	ClearPreemption()                                // 外部解除抢占
	SetMode(mode ControllerMode)                     // 外部模式切换（含黄闪回退）
}

// entity/intersection/manager.go的依赖倒置
type IIntersectionManager interface {
	Init(ics []config.Intersection, source IPresenceSource) error // 初始化

	// 输入路口ID，查找路口，如果不存在则panic
	Get(id int32) IIntersection
	// 输入路口ID，查找路口，如果不存在则返回error
	GetOrError(id int32) (IIntersection, error)

	Prepare()           // 准备阶段
	Update(dtDs int32)  // 更新阶段，dtDs为本步整ds增量
}
