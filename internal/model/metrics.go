package model

const (
	MetricMin = 0
	MetricMax = 100
)

// BusinessMetrics tracks the company-facing health of the product
type BusinessMetrics struct {
	Income      int `json:"income" bson:"income"`
	Security    int `json:"security" bson:"security"`
	Performance int `json:"performance" bson:"performance"`
	Reputation  int `json:"reputation" bson:"reputation"`
	TechDebt    int `json:"techDebt" bson:"techDebt"` // Lower is better
}

// OperationalMetrics are the four delivery metrics
type OperationalMetrics struct {
	DeploymentFrequency int `json:"deploymentFrequency" bson:"deploymentFrequency"`
	LeadTime            int `json:"leadTime" bson:"leadTime"`                   // Lower is better
	MTTR                int `json:"mttr" bson:"mttr"`                           // Lower is better
	ChangeFailureRate   int `json:"changeFailureRate" bson:"changeFailureRate"` // Lower is better
}

// DefaultBusinessMetrics is the starting position of every session
func DefaultBusinessMetrics() BusinessMetrics {
	return BusinessMetrics{Income: 50, Security: 50, Performance: 50, Reputation: 50, TechDebt: 20}
}

// DefaultOperationalMetrics is the starting position of every session
func DefaultOperationalMetrics() OperationalMetrics {
	return OperationalMetrics{DeploymentFrequency: 50, LeadTime: 50, MTTR: 50, ChangeFailureRate: 50}
}

// MetricDeltas is a signed adjustment per metric
type MetricDeltas struct {
	Income              int `json:"income,omitempty" bson:"income,omitempty"`
	Security            int `json:"security,omitempty" bson:"security,omitempty"`
	Performance         int `json:"performance,omitempty" bson:"performance,omitempty"`
	Reputation          int `json:"reputation,omitempty" bson:"reputation,omitempty"`
	TechDebt            int `json:"techDebt,omitempty" bson:"techDebt,omitempty"`
	DeploymentFrequency int `json:"deploymentFrequency,omitempty" bson:"deploymentFrequency,omitempty"`
	LeadTime            int `json:"leadTime,omitempty" bson:"leadTime,omitempty"`
	MTTR                int `json:"mttr,omitempty" bson:"mttr,omitempty"`
	ChangeFailureRate   int `json:"changeFailureRate,omitempty" bson:"changeFailureRate,omitempty"`
}

// Clone returns a copy of d, or nil
func (d *MetricDeltas) Clone() *MetricDeltas {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// IsZero reports whether no field is set
func (d *MetricDeltas) IsZero() bool {
	return d == nil || *d == MetricDeltas{}
}

// DeltaMode selects how the sign of a delta is interpreted
type DeltaMode int

const (
	// DeltaRaw applies every delta exactly as declared
	DeltaRaw DeltaMode = iota
	// DeltaBeneficial moves every metric in its good direction by |delta|
	DeltaBeneficial
	// DeltaHarmful moves every metric in its bad direction by |delta|
	DeltaHarmful
)

// Apply adjusts both metric records by d under mode, clamping each field to [0,100]
func Apply(b *BusinessMetrics, o *OperationalMetrics, d *MetricDeltas, mode DeltaMode) {
	if d.IsZero() {
		return
	}
	b.Income = step(b.Income, d.Income, true, mode)
	b.Security = step(b.Security, d.Security, true, mode)
	b.Performance = step(b.Performance, d.Performance, true, mode)
	b.Reputation = step(b.Reputation, d.Reputation, true, mode)
	b.TechDebt = step(b.TechDebt, d.TechDebt, false, mode)
	o.DeploymentFrequency = step(o.DeploymentFrequency, d.DeploymentFrequency, true, mode)
	o.LeadTime = step(o.LeadTime, d.LeadTime, false, mode)
	o.MTTR = step(o.MTTR, d.MTTR, false, mode)
	o.ChangeFailureRate = step(o.ChangeFailureRate, d.ChangeFailureRate, false, mode)
}

func step(value, delta int, higherIsBetter bool, mode DeltaMode) int {
	switch mode {
	case DeltaBeneficial, DeltaHarmful:
		delta = abs(delta)
		good := mode == DeltaBeneficial
		if good != higherIsBetter {
			delta = -delta
		}
	}
	return Clamp(value + delta)
}

// Clamp bounds v to [MetricMin, MetricMax]
func Clamp(v int) int {
	if v < MetricMin {
		return MetricMin
	}
	if v > MetricMax {
		return MetricMax
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// HistoryEntry is the metric position at the end of a turn
type HistoryEntry struct {
	Turn        int                `json:"turn" bson:"turn"`
	Business    BusinessMetrics    `json:"business" bson:"business"`
	Operational OperationalMetrics `json:"operational" bson:"operational"`
}
