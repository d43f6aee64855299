package web_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct {
	Greeting string `value:"hello"`
}

type helloController struct {
	Greeter *greeter `autowired:""`
}

func (c *helloController) MountRoutes(r gin.IRouter) {
	r.GET("/hello", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Greeter.Greeting+" "+web.GetRequestID(ctx))
	})
}

type pingController struct{}

func newPingController() *pingController { return &pingController{} }

func (c *pingController) MountRoutes(r gin.IRouter) {
	r.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
}

func newHost(t *testing.T, opts ...web.BuilderOption) (*core.Runtime, *web.Host) {
	t.Helper()
	rt := core.NewRuntime()
	di.Register[*greeter](rt.Container)
	require.NoError(t, rt.Apply(web.New(opts...)))
	require.NoError(t, rt.Build())

	host := core.GetFeature[*web.Host](rt)
	require.NotNil(t, host)
	return rt, host
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHost_ControllersFromContainer(t *testing.T) {
	_, host := newHost(t, web.WithControllers(&helloController{}, newPingController))
	require.Len(t, host.Controllers, 2)

	w := get(t, host.Handler(), "/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = get(t, host.Handler(), "/hello", web.RequestIDHeader, "req-1")
	assert.Equal(t, "hello req-1", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(web.RequestIDHeader))

	w = get(t, host.Handler(), "/ping")
	assert.NotEmpty(t, w.Header().Get(web.RequestIDHeader))
}

func TestHost_RejectsNonController(t *testing.T) {
	rt := core.NewRuntime()
	err := rt.Apply(web.New(web.WithControllers(&greeter{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not implement web.Controller")
}

func TestActuator(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "demo_total", Help: "demo"})
	reg.MustRegister(counter)
	counter.Inc()

	_, host := newHost(t, web.WithControllers(&helloController{}), web.WithActuator(reg))

	w := get(t, host.Handler(), "/actuator/beans")
	require.Equal(t, http.StatusOK, w.Code)
	var beans []web.BeanInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &beans))
	names := make([]string, 0, len(beans))
	for _, b := range beans {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "greeter")
	assert.Contains(t, names, "helloController")
	assert.Contains(t, names, web.HostBean)

	w = get(t, host.Handler(), "/actuator/beans/helloController/injection")
	require.Equal(t, http.StatusOK, w.Code)
	var inj web.Injection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inj))
	require.Len(t, inj.Fields, 1)
	assert.Equal(t, "Autowired", inj.Fields[0].Strategy)
	assert.Equal(t, "AutoTypeFirst", inj.Fields[0].Mode)
	assert.Equal(t, "greeter", inj.Fields[0].Name)
	assert.True(t, inj.Fields[0].Required)

	w = get(t, host.Handler(), "/actuator/beans/missing/injection")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, host.Handler(), "/actuator/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "demo_total 1")
}

func TestHost_StartStop(t *testing.T) {
	rt, host := newHost(t, web.WithPort(0), web.WithControllers(newPingController))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Start(ctx))

	require.Eventually(t, func() bool {
		_, port, err := net.SplitHostPort(host.Address())
		if err != nil || port == "0" {
			return false
		}
		resp, err := http.Get("http://127.0.0.1:" + port + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	require.NoError(t, rt.Stop(stopCtx))
}
