package intersection

import (
	"fmt"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/entity"
	"github.com/tsinghua-fib-lab/signalctl-sim-oss/utils/config"
)

// IntersectionManager 路口管理器
// 功能：持有所有路口实例，提供查找接口，并在每步并行推进各路口
// 说明：路口之间不共享可变状态，跨路口并行是本系统唯一合法的并行；
// 单个路口内部的四段更新顺序严格串行
type IntersectionManager struct {
	ctx entity.ITaskContext

	data          map[int32]*Intersection
	intersections []*Intersection

	dtDs int32 // 本步整ds增量（Update入参缓存，供并行闭包读取）
}

// NewManager 创建路口管理器实例
// 参数：ctx-任务上下文
// 返回：新创建的路口管理器实例
func NewManager(ctx entity.ITaskContext) *IntersectionManager {
	return &IntersectionManager{
		ctx:           ctx,
		data:          make(map[int32]*Intersection),
		intersections: make([]*Intersection, 0),
	}
}

// Init 初始化所有路口及其信控
// 功能：根据配置并行创建所有路口对象
// 参数：ics-路口配置列表，source-外部占用信号来源
// 说明：配置合法性由config.Validate在进入本函数前保证
func (m *IntersectionManager) Init(ics []config.Intersection, source entity.IPresenceSource) error {
	for i := range ics {
		if err := ics[i].Validate(); err != nil {
			return fmt.Errorf("intersection %d: %w", ics[i].ID, err)
		}
	}
	m.intersections = parallel.GoMap(ics, func(ic config.Intersection) *Intersection {
		return newIntersection(m.ctx, ic, source)
	})
	m.data = lo.SliceToMap(m.intersections, func(i *Intersection) (int32, *Intersection) {
		return i.id, i
	})
	return nil
}

// Get 根据ID获取路口实例
// 功能：通过路口ID查找对应的路口对象，如果不存在则panic
func (m *IntersectionManager) Get(id int32) entity.IIntersection {
	if i, ok := m.data[id]; !ok {
		log.Panicf("no id %d in intersection data", id)
		return nil
	} else {
		return i
	}
}

// GetOrError 根据ID获取路口实例（带错误处理）
// 功能：通过路口ID查找对应的路口对象，如果不存在则返回错误
func (m *IntersectionManager) GetOrError(id int32) (entity.IIntersection, error) {
	if i, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in intersection data", id)
	} else {
		return i, nil
	}
}

// Prepare 准备阶段，处理所有路口的准备工作
// 说明：使用并行处理提高性能
func (m *IntersectionManager) Prepare() {
	parallel.GoFor(m.intersections, func(i *Intersection) { i.prepare() })
}

// Update 更新阶段，执行所有路口的控制tick
// 参数：dtDs-本步整ds增量
// 说明：使用并行处理提高性能
func (m *IntersectionManager) Update(dtDs int32) {
	m.dtDs = dtDs
	parallel.GoFor(m.intersections, func(i *Intersection) { i.update(m.dtDs) })
}
