package metrics

import (
	"sync/atomic"
	"time"

	"reflex/budget"
)

type SearchMetric struct {
	Algorithm        string
	Duration         time.Duration
	Iterations       int
	FMCalls          int
	Copies           int
	ReflexiveCalls   int
	Repairs          int
	NonRepairs       int
	PopulationReused bool
	StopReason       string
}

type MoveMetric struct {
	Step   int
	Player int // Player ID
	Action string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int
	Winner         int // Player ID, -1 for a shared win
	Scores         []int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(algorithm string)
	AddReflexiveCall()
	AddRepairs(repairs, nonRepairs int)
	SetPopulationReused(value bool)
	Complete(ctrl *budget.Controller) SearchMetric
}

type collector struct {
	algorithm        string
	startTime        time.Time
	reflexiveCalls   atomic.Int32
	repairs          atomic.Int32
	nonRepairs       atomic.Int32
	populationReused atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(algorithm string) {
	m.algorithm = algorithm
	m.startTime = time.Now()
	m.reflexiveCalls.Store(0)
	m.repairs.Store(0)
	m.nonRepairs.Store(0)
	m.populationReused.Store(false)
}

func (m *collector) AddReflexiveCall() {
	m.reflexiveCalls.Add(1)
}

func (m *collector) AddRepairs(repairs, nonRepairs int) {
	m.repairs.Add(int32(repairs))
	m.nonRepairs.Add(int32(nonRepairs))
}

func (m *collector) SetPopulationReused(value bool) {
	m.populationReused.Store(value)
}

func (m *collector) Complete(ctrl *budget.Controller) SearchMetric {
	return SearchMetric{
		Algorithm:        m.algorithm,
		Duration:         time.Since(m.startTime),
		Iterations:       ctrl.Iterations(),
		FMCalls:          ctrl.FMCalls(),
		Copies:           ctrl.Copies(),
		ReflexiveCalls:   int(m.reflexiveCalls.Load()),
		Repairs:          int(m.repairs.Load()),
		NonRepairs:       int(m.nonRepairs.Load()),
		PopulationReused: m.populationReused.Load(),
		StopReason:       ctrl.StopReason().String(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(algorithm string)                        {}
func (m *dummyCollector) AddReflexiveCall()                             {}
func (m *dummyCollector) AddRepairs(repairs, nonRepairs int)            {}
func (m *dummyCollector) SetPopulationReused(value bool)                {}
func (m *dummyCollector) Complete(ctrl *budget.Controller) SearchMetric { return SearchMetric{} }
