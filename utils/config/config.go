package config

import (
	"fmt"
)

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control

	return rc
}

// Validate 校验整个配置
// 功能：在配置进入控制器之前完成全部一致性检查
// 返回：第一个发现的配置错误，合法则返回nil
// 说明：控制器核心假定配置已通过校验，运行期不再检查（外部校验契约）
func (c *Config) Validate() error {
	if c.Control.Step.Interval <= 0 {
		return fmt.Errorf("config: step interval must be positive, got %f", c.Control.Step.Interval)
	}
	ids := make(map[int32]bool)
	for i := range c.Intersections {
		ic := &c.Intersections[i]
		if ids[ic.ID] {
			return fmt.Errorf("config: duplicate intersection id %d", ic.ID)
		}
		ids[ic.ID] = true
		if err := ic.Validate(); err != nil {
			return fmt.Errorf("config: intersection %d: %w", ic.ID, err)
		}
	}
	return nil
}

// Validate 校验单个路口配置
// 功能：检查相位表、冲突矩阵对称性、屏障划分与检测器引用
// 返回：第一个发现的配置错误，合法则返回nil
// 算法说明：
// 1. 相位编号范围与唯一性、环分配合法性
// 2. 时间参数为正（最小绿、黄灯、全红不允许为0）
// 3. 冲突矩阵对称：A冲突B则B必须冲突A
// 4. 屏障分组为相位编号的不相交完全划分
// 5. 检测器所属相位必须存在
// 6. 协调参数表长度与百分比范围
func (ic *Intersection) Validate() error {
	if ic.Rings <= 0 {
		return fmt.Errorf("rings must be positive, got %d", ic.Rings)
	}
	if len(ic.Phases) == 0 {
		return fmt.Errorf("no phases")
	}

	phases := make(map[int32]*Phase)
	conflicts := make(map[int32]map[int32]bool)
	for i := range ic.Phases {
		p := &ic.Phases[i]
		if p.Number < 1 || p.Number > MaxPhases {
			return fmt.Errorf("phase number %d out of range [1, %d]", p.Number, MaxPhases)
		}
		if _, ok := phases[p.Number]; ok {
			return fmt.Errorf("duplicate phase number %d", p.Number)
		}
		if p.Ring < 0 || p.Ring >= ic.Rings {
			return fmt.Errorf("phase %d: ring %d out of range [0, %d)", p.Number, p.Ring, ic.Rings)
		}
		if p.MinGreen <= 0 {
			return fmt.Errorf("phase %d: min_green must be positive, got %d", p.Number, p.MinGreen)
		}
		if p.Yellow <= 0 || p.AllRed <= 0 {
			return fmt.Errorf("phase %d: clearance intervals must be positive (yellow=%d all_red=%d)", p.Number, p.Yellow, p.AllRed)
		}
		if p.MaxGreen < p.MinGreen {
			return fmt.Errorf("phase %d: max_green %d < min_green %d", p.Number, p.MaxGreen, p.MinGreen)
		}
		if p.Passage < 0 {
			return fmt.Errorf("phase %d: passage must not be negative, got %d", p.Number, p.Passage)
		}
		phases[p.Number] = p
		set := make(map[int32]bool)
		for _, other := range p.Conflicts {
			set[other] = true
		}
		conflicts[p.Number] = set
	}

	// 冲突矩阵对称性
	for num, set := range conflicts {
		for other := range set {
			if _, ok := phases[other]; !ok {
				return fmt.Errorf("phase %d: conflict with unknown phase %d", num, other)
			}
			if other == num {
				return fmt.Errorf("phase %d: conflicts with itself", num)
			}
			if !conflicts[other][num] {
				return fmt.Errorf("conflict matrix not symmetric: %d->%d recorded but %d->%d missing", num, other, other, num)
			}
		}
	}

	// 屏障分组：不相交的完全划分
	if len(ic.Barriers) == 0 {
		return fmt.Errorf("no barrier groups")
	}
	seen := make(map[int32]bool)
	for gi, group := range ic.Barriers {
		if len(group) == 0 {
			return fmt.Errorf("barrier group %d is empty", gi)
		}
		for _, num := range group {
			if _, ok := phases[num]; !ok {
				return fmt.Errorf("barrier group %d: unknown phase %d", gi, num)
			}
			if seen[num] {
				return fmt.Errorf("barrier groups overlap at phase %d", num)
			}
			seen[num] = true
		}
	}
	for num := range phases {
		if !seen[num] {
			return fmt.Errorf("phase %d not covered by any barrier group", num)
		}
	}

	// 检测器引用
	detIDs := make(map[int32]bool)
	for i := range ic.Detectors {
		d := &ic.Detectors[i]
		if detIDs[d.ID] {
			return fmt.Errorf("duplicate detector id %d", d.ID)
		}
		detIDs[d.ID] = true
		if _, ok := phases[d.Phase]; !ok {
			return fmt.Errorf("detector %d: unknown phase %d", d.ID, d.Phase)
		}
		if d.ZoneStart < 0 || d.ZoneStart > 1 || d.ZoneLength < 0 || d.ZoneStart+d.ZoneLength > 1 {
			return fmt.Errorf("detector %d: zone [%f, %f] out of [0, 1]", d.ID, d.ZoneStart, d.ZoneStart+d.ZoneLength)
		}
	}

	// 协调参数
	if co := ic.Coordination; co != nil {
		if co.CycleLength <= 0 {
			return fmt.Errorf("coordination: cycle_length must be positive, got %d", co.CycleLength)
		}
		if len(co.Splits) > MaxPhases || len(co.ForceOffs) > MaxPhases {
			return fmt.Errorf("coordination: split/force_off tables longer than %d", MaxPhases)
		}
		for i, pct := range co.Splits {
			if pct < 0 || pct > 100 {
				return fmt.Errorf("coordination: split[%d]=%d out of [0, 100]", i, pct)
			}
		}
		for i, pct := range co.ForceOffs {
			if pct < 0 || pct > 100 {
				return fmt.Errorf("coordination: force_off[%d]=%d out of [0, 100]", i, pct)
			}
		}
		for _, num := range co.YieldPhases {
			if _, ok := phases[num]; !ok {
				return fmt.Errorf("coordination: yield phase %d unknown", num)
			}
		}
	}

	return nil
}
