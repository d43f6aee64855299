package di

import (
	"reflect"

	"github.com/gocrud/ioc/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

// Precedence 决定成员声明多个策略时的处理方式
type Precedence int

const (
	// PrecedenceSilent 保留在优先级更高的类别中，并记录一条警告
	PrecedenceSilent Precedence = iota
	// PrecedenceStrict 分类失败，返回 *MultipleStrategiesError
	PrecedenceStrict
)

// InjectionElement 是分类结果：六个互不相交的有序列表
type InjectionElement struct {
	Type  reflect.Type
	lists [strategyCount][]*Member
}

// Members 返回策略 s 类别下的成员
func (e *InjectionElement) Members(s Strategy) []*Member {
	return e.lists[s]
}

// Empty 判断是否没有任何注入点
func (e *InjectionElement) Empty() bool {
	for _, l := range e.lists {
		if len(l) > 0 {
			return false
		}
	}
	return true
}

// Each 按类别优先级、类别内声明顺序遍历
func (e *InjectionElement) Each(fn func(s Strategy, m *Member) error) error {
	for _, s := range Strategies() {
		for _, m := range e.lists[s] {
			if err := fn(s, m); err != nil {
				return err
			}
		}
	}
	return nil
}

type classifyKey struct {
	typ        reflect.Type
	enumerator MemberEnumerator
}

// Classifier 对类型的注入点进行分类，结果按 (类型, 枚举器) 缓存
type Classifier struct {
	precedence Precedence
	logger     logging.Logger
	cache      *xsync.MapOf[classifyKey, *InjectionElement]
}

// NewClassifier 创建分类器
func NewClassifier(precedence Precedence, logger logging.Logger) *Classifier {
	return &Classifier{
		precedence: precedence,
		logger:     orNop(logger).WithCategory("di.classifier"),
		cache:      xsync.NewMapOf[classifyKey, *InjectionElement](),
	}
}

// Classify 把 typ 上的注入点划入六个类别。
// 已被更高优先级类别收录的成员不会再出现在后续类别中。
// 不可比较的枚举器无法作为缓存键，每次都重新分类。
func (c *Classifier) Classify(typ reflect.Type, en MemberEnumerator) (*InjectionElement, error) {
	if en != nil && !reflect.ValueOf(en).Comparable() {
		return c.classify(typ, en)
	}

	key := classifyKey{typ: typ, enumerator: en}
	if el, ok := c.cache.Load(key); ok {
		return el, nil
	}

	el, err := c.classify(typ, en)
	if err != nil {
		return nil, err
	}
	actual, _ := c.cache.LoadOrStore(key, el)
	return actual, nil
}

func (c *Classifier) classify(typ reflect.Type, en MemberEnumerator) (*InjectionElement, error) {
	el := &InjectionElement{Type: typ}
	claimed := make(map[MemberID]Strategy)
	var errs error

	for _, s := range Strategies() {
		members, err := en.Members(typ, s)
		if err != nil {
			return nil, err
		}
		kept := make([]*Member, 0, len(members))
		for _, m := range members {
			if first, dup := claimed[m.ID]; dup {
				if c.precedence == PrecedenceStrict {
					errs = multierr.Append(errs, &MultipleStrategiesError{
						Owner: typ, Member: m.Display, First: first, Second: s,
					})
				} else {
					c.logger.Warn("member declares more than one strategy, lower one ignored",
						logging.Field{Key: "type", Value: typ.String()},
						logging.Field{Key: "member", Value: m.Display},
						logging.Field{Key: "kept", Value: first.String()},
						logging.Field{Key: "ignored", Value: s.String()})
				}
				continue
			}
			claimed[m.ID] = s
			kept = append(kept, m)
		}
		el.lists[s] = kept
	}

	if errs != nil {
		return nil, errs
	}
	return el, nil
}
