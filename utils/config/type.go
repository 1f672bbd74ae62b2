package config

// 相位数上限，与entity.MaxPhases保持一致（config不依赖entity，常量独立维护）
const MaxPhases = 16

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：控制仿真的时间范围、步长和精度
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
type Control struct {
	Step ControlStep `yaml:"step"`
}

// Detector 检测器配置
// 功能：定义单个检测区的静态参数
// 说明：检测区位置按车道归一化坐标表示（0-1），时间参数单位均为ds（0.1秒）
type Detector struct {
	ID           int32   `yaml:"id"`                      // 检测器ID（路口内唯一）
	Phase        int32   `yaml:"phase"`                   // 所属相位编号
	Type         string  `yaml:"type"`                    // 类型：presence|pulse|speed|queue
	ZoneStart    float64 `yaml:"zone_start"`              // 检测区起点（归一化0-1）
	ZoneLength   float64 `yaml:"zone_length"`             // 检测区长度（归一化）
	Sensitivity  float64 `yaml:"sensitivity,omitempty"`   // 灵敏度
	Extension    int32   `yaml:"extension,omitempty"`     // 单次延长时长（ds）
	MaxExtension int32   `yaml:"max_extension,omitempty"` // 最大累计延长时长（ds）
	Disabled     bool    `yaml:"disabled,omitempty"`      // 是否禁用
	NoCalls      bool    `yaml:"no_calls,omitempty"`      // 不允许放置请求
	NoExtension  bool    `yaml:"no_extension,omitempty"`  // 不允许提供绿灯延长
	ArrivalRate  float64 `yaml:"arrival_rate,omitempty"`  // 演示用到达率（每步出现车辆的概率）
}

// Phase 相位配置
// 功能：定义单个相位的环分配、时间参数与冲突关系
// 说明：时间参数单位均为ds；冲突表必须对称填写（A冲突B则B也必须冲突A），
// 由Validate校验，控制器运行期不做检查
type Phase struct {
	Number     int32   `yaml:"number"`               // 相位编号（1..16）
	Ring       int32   `yaml:"ring"`                 // 所属环（0-based）
	Type       string  `yaml:"type"`                 // 类型：vehicular|pedestrian|overlap|protected_turn
	MinGreen   int32   `yaml:"min_green"`            // 最小绿（ds）
	Passage    int32   `yaml:"passage"`              // 间隔延长时间（ds）
	MaxGreen   int32   `yaml:"max_green"`            // 最大绿（ds）
	Yellow     int32   `yaml:"yellow"`               // 黄灯（ds）
	AllRed     int32   `yaml:"all_red"`              // 全红（ds）
	Conflicts  []int32 `yaml:"conflicts"`            // 冲突相位编号表
	Overlaps   []int32 `yaml:"overlaps,omitempty"`   // 兼容跟随相位编号表
	Disabled   bool    `yaml:"disabled,omitempty"`   // 是否禁用
	Omittable  bool    `yaml:"omittable,omitempty"`  // 协调时可被跳过/提前让行
	Pedestrian bool    `yaml:"pedestrian,omitempty"` // 是否带行人信号
}

// Coordination 协调周期配置
// 功能：定义协调控制的周期、绿信比与强制关断表
// 说明：split与force_off以周期百分比存储（每相位一个0-100的值），
// 修改cycle_length不会重算百分比，绝对时刻由百分比与当前周期长度实时换算
type Coordination struct {
	Mode         string  `yaml:"mode"`                    // 模式：free|coordinated|manual
	CycleLength  int32   `yaml:"cycle_length"`            // 周期长度（ds）
	NaturalCycle int32   `yaml:"natural_cycle,omitempty"` // 自由运行自然周期（ds）
	Offset       int32   `yaml:"offset,omitempty"`        // 相对主周期的偏移（ds）
	Splits       []int32 `yaml:"splits"`                  // 各相位绿信比（百分比，按相位编号1..N顺序）
	ForceOffs    []int32 `yaml:"force_offs"`              // 各相位强制关断点（周期百分比）
	YieldPhases  []int32 `yaml:"yield_phases,omitempty"`  // 可让行相位编号表
	YieldWindow  int32   `yaml:"yield_window,omitempty"`  // 让行窗口长度（ds）
	Priority     float64 `yaml:"priority,omitempty"`      // 协调优先权重
	MaxHold      int32   `yaml:"max_hold,omitempty"`      // 最大保持时长（ds）
	MinExtend    int32   `yaml:"min_extend,omitempty"`    // 最小延长时长（ds）
}

// Intersection 单路口配置
// 功能：定义一个路口控制器的完整配置（相位、检测器、屏障、协调参数）
type Intersection struct {
	ID              int32         `yaml:"id"`                         // 路口ID
	Rings           int32         `yaml:"rings"`                      // 环数
	Mode            string        `yaml:"mode"`                       // 控制器模式：actuated|coordinated|manual|flash
	Barriers        [][]int32     `yaml:"barriers"`                   // 屏障分组（相位编号的有序划分）
	PedClearance    int32         `yaml:"ped_clearance,omitempty"`    // 行人清空常量（ds）
	AllRedClearance int32         `yaml:"all_red_clearance,omitempty"` // 全红清空常量（ds）
	Phases          []Phase       `yaml:"phases"`                     // 相位表
	Detectors       []Detector    `yaml:"detectors"`                  // 检测器表
	Coordination    *Coordination `yaml:"coordination,omitempty"`     // 协调参数（可选）
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
type Config struct {
	Control       Control        `yaml:"control"`       // 模拟过程控制
	Intersections []Intersection `yaml:"intersections"` // 路口列表
}
