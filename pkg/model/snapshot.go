package model

// ThermalRackState is the per-rack thermal telemetry published each tick.
type ThermalRackState struct {
	RackID    int     `json:"rack_id"`
	ZoneID    int     `json:"zone_id"`
	InletC    float64 `json:"inlet_temp_c"`
	OutletC   float64 `json:"outlet_temp_c"`
	HeatKW    float64 `json:"heat_kw"`
	Humidity  float64 `json:"humidity_pct"`
	Throttled bool    `json:"throttled"`
}

// ThermalSummary is the whole-facility thermal snapshot.
type ThermalSummary struct {
	AmbientC     float64            `json:"ambient_temp_c"`
	Racks        []ThermalRackState `json:"racks"`
	ThrottledCnt int                `json:"throttled_rack_count"`
}

// ServerPowerState is per-server power telemetry.
type ServerPowerState struct {
	ServerID string  `json:"server_id"`
	RackID   int     `json:"rack_id"`
	PowerW   float64 `json:"power_w"`
}

// RackPowerState is per-rack power telemetry.
type RackPowerState struct {
	RackID       int     `json:"rack_id"`
	PowerKW      float64 `json:"power_kw"`
	PDUUtil      float64 `json:"pdu_util"`
	PDUSpikeMult float64 `json:"pdu_spike_multiplier,omitempty"`
}

// PowerSummary is the whole-facility power snapshot.
type PowerSummary struct {
	ITKW             float64            `json:"it_kw"`
	PUE              float64            `json:"pue"`
	FacilityKW       float64            `json:"facility_kw"`
	CapKW            float64            `json:"cap_kw"`
	HeadroomKW       float64            `json:"headroom_kw"`
	CapExceeded      bool               `json:"power_cap_exceeded"`
	Racks            []RackPowerState   `json:"racks"`
	Servers          []ServerPowerState `json:"servers,omitempty"`
}

// GPUState is per-GPU telemetry. GPUs are modelled per-server (one
// aggregate "GPU" record per server, bandwidth/clocks/temperature averaged
// across the server's GPU population) to keep the snapshot bounded.
type GPUState struct {
	ServerID        string  `json:"server_id"`
	RackID          int     `json:"rack_id"`
	JunctionTempC   float64 `json:"junction_temp_c"`
	Throttled       bool    `json:"throttled"`
	ClockMHz        float64 `json:"clock_mhz"`
	ECCErrorRate    float64 `json:"ecc_error_rate"`
	MemBandwidthGBs float64 `json:"mem_bandwidth_gbs"`
	Util            float64 `json:"util"`
}

// GPUSummary is the whole-facility GPU snapshot.
type GPUSummary struct {
	Servers            []GPUState `json:"servers"`
	HealthyFraction    float64    `json:"healthy_gpu_fraction"`
	AvgJunctionTempC   float64    `json:"avg_junction_temp_c"`
}

// NetworkRackState is per-rack ToR network telemetry.
type NetworkRackState struct {
	RackID    int     `json:"rack_id"`
	Util      float64 `json:"util"`
	LatencyMs float64 `json:"latency_ms"`
	LossFrac  float64 `json:"loss_fraction"`
}

// SpineLinkState is a rack-to-spine link's utilisation.
type SpineLinkState struct {
	RackID int     `json:"rack_id"`
	Util   float64 `json:"util"`
}

// NetworkSummary is the whole-facility network snapshot.
type NetworkSummary struct {
	Racks       []NetworkRackState `json:"racks"`
	SpineLinks  []SpineLinkState   `json:"spine_links"`
	AvgLatency  float64            `json:"avg_latency_ms"`
}

// StorageRackState is per-rack storage telemetry.
type StorageRackState struct {
	RackID        int     `json:"rack_id"`
	IOPS          float64 `json:"iops"`
	LatencyMs     float64 `json:"latency_ms"`
	QueueDepth    float64 `json:"queue_depth"`
	CapacityUsedFrac float64 `json:"capacity_used_fraction"`
	WearFrac      float64 `json:"wear_fraction"`
}

// StorageSummary is the whole-facility storage snapshot.
type StorageSummary struct {
	Racks          []StorageRackState `json:"racks"`
	AvgDriveHealthPct float64         `json:"avg_drive_health_pct"`
}

// CRACState is per-CRAC cooling telemetry.
type CRACState struct {
	UnitID        int     `json:"unit_id"`
	OutputKW      float64 `json:"output_kw"`
	COP           float64 `json:"cop"`
	PowerKW       float64 `json:"power_kw"`
	HealthMultiplier float64 `json:"health_multiplier"`
}

// CoolingSummary is the whole-facility cooling snapshot.
type CoolingSummary struct {
	CRACUnits    []CRACState `json:"crac_units"`
	TotalPowerKW float64     `json:"total_power_kw"`
}

// CarbonSummary is the whole-facility carbon/cost snapshot.
type CarbonSummary struct {
	IntensityGCO2PerKWh float64 `json:"intensity_gco2_per_kwh"`
	PriceGBPPerKWh      float64 `json:"price_gbp_per_kwh"`
	CumulativeKG        float64 `json:"cumulative_carbon_kg"`
	CumulativeGBP       float64 `json:"cumulative_cost_gbp"`
}

// WorkloadSummary is the whole-facility workload snapshot.
type WorkloadSummary struct {
	PendingCount     int          `json:"pending_count"`
	RunningCount     int          `json:"running_count"`
	CompletedCount   int          `json:"completed_count"`
	FailedCount      int          `json:"failed_count"`
	SLAViolations    int          `json:"sla_violations"`
	TotalJobsSeen    int          `json:"total_jobs_seen"`
	Running          []JobSummary `json:"running,omitempty"`
	Pending          []JobSummary `json:"pending,omitempty"`
}

// FacilityState is the immutable per-tick snapshot of the whole simulation.
// It serialises to JSON verbatim and is what agent callbacks observe.
type FacilityState struct {
	Clock            float64           `json:"clock_s"`
	TickCount        int               `json:"tick_count"`
	Thermal          ThermalSummary    `json:"thermal"`
	Power            PowerSummary      `json:"power"`
	GPU              GPUSummary        `json:"gpu"`
	Network          NetworkSummary    `json:"network"`
	Storage          StorageSummary    `json:"storage"`
	Cooling          CoolingSummary    `json:"cooling"`
	Carbon           CarbonSummary     `json:"carbon"`
	Workload         WorkloadSummary   `json:"workload"`
	ActiveFailures   []ActiveFailure   `json:"active_failures"`
}
