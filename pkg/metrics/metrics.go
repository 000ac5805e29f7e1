package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
)

const namespace = "controllers"

// Metrics counts controller loading and route registration.
type Metrics struct {
	routes *prometheus.CounterVec
	loads  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		routes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_registered_total",
			Help:      "Routes handed to the router, by method and outcome",
		}, []string{"method", "outcome"}),
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptor_loads_total",
			Help:      "Descriptor modules loaded, by outcome",
		}, []string{"outcome"}),
		gatherer: reg,
	}
}

// ObserveRoute records one registration attempt.
func (m *Metrics) ObserveRoute(method string, err error) {
	if m == nil {
		return
	}
	m.routes.WithLabelValues(strings.ToUpper(method), outcome(err)).Inc()
}

// Loader counts the outcome of every load and factory call made through l.
func (m *Metrics) Loader(l controller.Loader) controller.Loader {
	if m == nil {
		return l
	}
	return controller.LoaderFunc(func(path string) (controller.Factory, error) {
		factory, err := l.Load(path)
		if err != nil || factory == nil {
			m.loads.WithLabelValues("error").Inc()
			return factory, err
		}
		return func(r controller.Router) (controller.Descriptor, error) {
			defer func() {
				if p := recover(); p != nil {
					m.loads.WithLabelValues("error").Inc()
					panic(p)
				}
			}()
			d, err := factory(r)
			switch {
			case err != nil:
				m.loads.WithLabelValues("error").Inc()
			case len(d) == 0:
				m.loads.WithLabelValues("empty").Inc()
			default:
				m.loads.WithLabelValues("ok").Inc()
			}
			return d, err
		}, nil
	})
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
