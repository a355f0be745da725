package probe

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	observations prometheus.Counter
	distinct     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "singleton",
			Subsystem: "probe",
			Name:      "observations_total",
			Help:      "Number of GetInstance calls made by probe workers.",
		}),
		distinct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "singleton",
			Subsystem: "probe",
			Name:      "distinct_addresses",
			Help:      "Distinct instance addresses seen by the most recent run.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.observations, err = register(reg, m.observations); err != nil {
		return nil, err
	}
	if m.distinct, err = register(reg, m.distinct); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses a collector that an earlier probe already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, errors.Wrap(err, "registering probe metrics")
}
