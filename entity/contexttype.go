package entity

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/clock"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// 车辆存在信号来源接口
// 说明：检测区占用信号如何从车辆几何位置推导不属于核心，
// 由外部协作者实现（演示程序中为随机到达流）
type IPresenceSource interface {
	// 查询指定路口指定检测器当前是否有车
	VehiclePresent(intersectionID, detectorID int32) bool
}

type ITaskContext interface {
	Clock() *clock.Clock
	IntersectionManager() IIntersectionManager
	RuntimeConfig() *config.RuntimeConfig
}
