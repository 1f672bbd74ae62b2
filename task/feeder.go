package task

import (
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/randengine"
)

// Feeder 随机车辆到达流
// 功能：实现entity.IPresenceSource，为每个检测器按配置的到达率生成
// 占用信号
// 说明：检测区占用如何从真实车辆几何推导不属于核心，本类型是演示
// 程序自带的外部协作者；每路口一个以路口ID为种子的随机数引擎，
// 管理器只跨路口并行，单路口内查询串行，因此无需加锁，且相同种子
// 下输入序列可复现
type Feeder struct {
	engines map[int32]*randengine.Engine // 路口ID->随机数引擎
	rates   map[int32]map[int32]float64  // 路口ID->检测器ID->每步到达率
}

// NewFeeder 根据配置创建到达流
// 参数：ics-路口配置列表
// 返回：初始化完成的到达流实例
func NewFeeder(ics []config.Intersection) *Feeder {
	f := &Feeder{
		engines: make(map[int32]*randengine.Engine),
		rates:   make(map[int32]map[int32]float64),
	}
	for _, ic := range ics {
		f.engines[ic.ID] = randengine.New(uint64(ic.ID))
		rates := make(map[int32]float64)
		for _, dc := range ic.Detectors {
			rates[dc.ID] = dc.ArrivalRate
		}
		f.rates[ic.ID] = rates
	}
	return f
}

// VehiclePresent 查询指定路口指定检测器当前是否有车
// 说明：到达率为0（未配置）的检测器永远无车
func (f *Feeder) VehiclePresent(intersectionID, detectorID int32) bool {
	rates, ok := f.rates[intersectionID]
	if !ok {
		return false
	}
	rate := rates[detectorID]
	if rate <= 0 {
		return false
	}
	return f.engines[intersectionID].PTrue(rate)
}
