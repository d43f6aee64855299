package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/di"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// ActuatorBean 是 actuator 控制器的 bean 名称
const ActuatorBean = "actuator"

// BeanInfo 是 /actuator/beans 中的一项
type BeanInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Scope   string `json:"scope"`
	Primary bool   `json:"primary,omitempty"`
	Order   int    `json:"order"`
}

// InjectionPoint 描述一个注入点及其引用
type InjectionPoint struct {
	Member   string   `json:"member"`
	Strategy string   `json:"strategy"`
	Mode     string   `json:"mode"`
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Lazy     bool     `json:"lazy,omitempty"`
	Specify  []string `json:"specify,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
}

// Injection 是 /actuator/beans/:name/injection 的响应
type Injection struct {
	Bean        string           `json:"bean"`
	Constructor []InjectionPoint `json:"constructor"`
	Fields      []InjectionPoint `json:"fields"`
	Setters     []InjectionPoint `json:"setters"`
}

type actuator struct {
	container *di.Container
	metrics   http.Handler
}

func newActuator(container *di.Container, gatherer prometheus.Gatherer) *actuator {
	return &actuator{
		container: container,
		metrics:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

// MountRoutes 实现 Controller
func (a *actuator) MountRoutes(router gin.IRouter) {
	g := router.Group("/actuator")
	g.GET("/beans", a.beans)
	g.GET("/beans/:name/injection", a.injection)
	g.GET("/metrics", gin.WrapH(a.metrics))
}

func (a *actuator) beans(c *gin.Context) {
	infos := lo.Map(a.container.Definitions(), func(def *di.Definition, _ int) BeanInfo {
		order, _, _ := a.container.BeanOrder(def.Name)
		return BeanInfo{
			Name:    def.Name,
			Type:    def.Type.String(),
			Scope:   def.Scope.String(),
			Primary: def.Primary,
			Order:   order,
		}
	})
	c.JSON(http.StatusOK, infos)
}

func (a *actuator) injection(c *gin.Context) {
	name := c.Param("name")
	def, ok := a.container.Definition(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": (&di.NoSuchBeanDefinitionError{Name: name}).Error()})
		return
	}

	out := Injection{
		Bean:        name,
		Constructor: lo.Map(def.ConstructorRefs(), func(ref di.Reference, _ int) InjectionPoint {
			return point("", "", ref)
		}),
	}
	if plan := def.Plan(); plan != nil {
		for _, pv := range plan.Properties {
			out.Fields = append(out.Fields, point(pv.Member.Display, pv.Strategy.String(), pv.Ref))
		}
		for _, sv := range plan.Setters {
			for _, ref := range sv.Refs {
				out.Setters = append(out.Setters, point(sv.Member.Display, sv.Strategy.String(), ref))
			}
		}
	}
	c.JSON(http.StatusOK, out)
}

func point(member, strategy string, ref di.Reference) InjectionPoint {
	p := InjectionPoint{
		Member:   member,
		Strategy: strategy,
		Mode:     ref.Mode.String(),
		Name:     ref.Name,
		Required: ref.Required,
		Lazy:     ref.Lazy,
		Specify:  ref.Specify,
		Exclude:  ref.Exclude,
	}
	if ref.Type != nil {
		p.Type = ref.Type.String()
	}
	return p
}
