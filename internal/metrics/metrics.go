// Package metrics exposes facility-level Prometheus gauges, updated once
// per tick from the same snapshot that feeds the telemetry ring. Read-only
// observability surface — it never feeds back into the simulation, the same
// guarantee spec §4.6 gives the GPU/network/storage/cooling/carbon layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dcsim/dc-simulator/pkg/model"
)

// Registry bundles the gauges this simulator publishes.
type Registry struct {
	reg *prometheus.Registry

	itPowerKW       prometheus.Gauge
	facilityPowerKW prometheus.Gauge
	pue             prometheus.Gauge
	carbonRateKG    prometheus.Gauge
	activeFailures  prometheus.Gauge
	throttledRacks  prometheus.Gauge
	slaViolations   prometheus.Gauge
	tickCount       prometheus.Gauge
}

// NewRegistry builds and registers the gauge set on a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.itPowerKW = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "it_power_kw", Help: "Facility IT power draw in kW.",
	})
	r.facilityPowerKW = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "facility_power_kw", Help: "Facility total power draw (IT * PUE) in kW.",
	})
	r.pue = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "pue", Help: "Current dynamic power usage effectiveness.",
	})
	r.carbonRateKG = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "carbon_cumulative_kg", Help: "Cumulative carbon emissions in kg.",
	})
	r.activeFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "active_failures", Help: "Number of currently active failures.",
	})
	r.throttledRacks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "throttled_racks", Help: "Number of racks currently throttled.",
	})
	r.slaViolations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "sla_violations_total", Help: "Cumulative SLA violation count.",
	})
	r.tickCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dcsim", Name: "tick_count", Help: "Number of ticks advanced since the last reset.",
	})

	r.reg.MustRegister(r.itPowerKW, r.facilityPowerKW, r.pue, r.carbonRateKG,
		r.activeFailures, r.throttledRacks, r.slaViolations, r.tickCount)
	return r
}

// Registerer exposes the underlying prometheus.Registerer for the HTTP
// layer's promhttp.HandlerFor.
func (r *Registry) Registerer() *prometheus.Registry { return r.reg }

// Observe updates every gauge from one FacilityState snapshot.
func (r *Registry) Observe(s model.FacilityState) {
	r.itPowerKW.Set(s.Power.ITKW)
	r.facilityPowerKW.Set(s.Power.FacilityKW)
	r.pue.Set(s.Power.PUE)
	r.carbonRateKG.Set(s.Carbon.CumulativeKG)
	r.activeFailures.Set(float64(len(s.ActiveFailures)))
	r.throttledRacks.Set(float64(s.Thermal.ThrottledCnt))
	r.slaViolations.Set(float64(s.Workload.SLAViolations))
	r.tickCount.Set(float64(s.TickCount))
}
