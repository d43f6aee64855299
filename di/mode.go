package di

// Mode 描述一个注入点的值应当如何被查找。
type Mode int

const (
	// ModeByName 按显式名称查找。
	ModeByName Mode = iota
	// ModeByType 严格按类型查找，不回退到名称。
	ModeByType
	// ModeAutoNameFirst 名称存在时按名称，否则按类型。
	ModeAutoNameFirst
	// ModeAutoTypeFirst 先按类型，类型查找失败（未找到或歧义）时回退到名称。
	ModeAutoTypeFirst
	// ModeValue 对表达式求值，再解析占位符并转换为目标类型。
	ModeValue
	// ModeNameCollector 收集某类型的全部 bean 名称。
	ModeNameCollector
	// ModeInstanceCollector 收集某类型的全部 bean 实例。
	ModeInstanceCollector
)

// String 返回模式名称
func (m Mode) String() string {
	switch m {
	case ModeByName:
		return "ByName"
	case ModeByType:
		return "ByType"
	case ModeAutoNameFirst:
		return "AutoNameFirst"
	case ModeAutoTypeFirst:
		return "AutoTypeFirst"
	case ModeValue:
		return "ValueExpression"
	case ModeNameCollector:
		return "NameCollector"
	case ModeInstanceCollector:
		return "InstanceCollector"
	default:
		return "Unknown"
	}
}

// IsCollector 判断是否为集合模式
func (m Mode) IsCollector() bool {
	return m == ModeNameCollector || m == ModeInstanceCollector
}

// usesName 判断 Reference.Name 在该模式下是否是查找键
func (m Mode) usesName() bool {
	return m == ModeByName || m == ModeAutoNameFirst || m == ModeAutoTypeFirst
}

// Strategy 是注入点声明的解析策略，同时也是分类器的类别。
// 常量的声明顺序即优先级顺序。
type Strategy int

const (
	StrategyResource Strategy = iota
	StrategyQualifier
	StrategyAutowired
	StrategyNameCollector
	StrategyInstanceCollector
	StrategyValue

	strategyCount = int(StrategyValue) + 1
)

// Strategies 按优先级从高到低返回全部策略
func Strategies() []Strategy {
	return []Strategy{
		StrategyResource,
		StrategyQualifier,
		StrategyAutowired,
		StrategyNameCollector,
		StrategyInstanceCollector,
		StrategyValue,
	}
}

// String 返回策略名称
func (s Strategy) String() string {
	switch s {
	case StrategyResource:
		return "Resource"
	case StrategyQualifier:
		return "Qualifier"
	case StrategyAutowired:
		return "Autowired"
	case StrategyNameCollector:
		return "NameCollector"
	case StrategyInstanceCollector:
		return "InstanceCollector"
	case StrategyValue:
		return "Value"
	default:
		return "Unknown"
	}
}

// singleArgument 报告该策略用于方法时是否要求方法只有一个参数
func (s Strategy) singleArgument() bool {
	return s != StrategyAutowired
}
