package budget

import (
	"time"
)

type Option func(c *Controller)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller counts what a search spends and decides when it has to stop.
// Checks are only meant to happen between iterations, so a search can
// overrun by at most the iteration in flight.
type Controller struct {
	budget Budget
	now    func() time.Time

	start      time.Time
	iterStart  time.Time
	spent      time.Duration // summed over completed iterations
	iterations int
	fmCalls    int
	copies     int
	reason     StopReason
	halted     StopReason

	parent *Controller // set when counts are shared with an enclosing search
}

func New(b Budget, options ...Option) *Controller {
	c := &Controller{
		budget: b,
		now:    time.Now,
	}
	for _, option := range options {
		option(c)
	}
	c.start = c.now()
	c.iterStart = c.start
	return c
}

// Nested returns a controller for a search run inside this one, limited to
// the given number of iterations. When shared, its forward model calls and
// copies also count against this controller and it stops as soon as this one
// would.
func (c *Controller) Nested(iterations int, shared bool) *Controller {
	n := &Controller{
		budget: Budget{Kind: Iterations, Limit: iterations},
		now:    c.now,
	}
	if shared {
		n.parent = c
	}
	n.start = n.now()
	n.iterStart = n.start
	return n
}

func (c *Controller) Budget() Budget { return c.budget }

func (c *Controller) StartIteration() {
	c.iterStart = c.now()
}

func (c *Controller) EndIteration() {
	c.iterations++
	c.spent += c.now().Sub(c.iterStart)
}

func (c *Controller) AddFMCalls(n int) {
	c.fmCalls += n
	if c.parent != nil {
		c.parent.AddFMCalls(n)
	}
}

func (c *Controller) AddCopies(n int) {
	c.copies += n
	if c.parent != nil {
		c.parent.AddCopies(n)
	}
}

func (c *Controller) Iterations() int { return c.iterations }
func (c *Controller) FMCalls() int    { return c.fmCalls }
func (c *Controller) Copies() int     { return c.copies }

func (c *Controller) Elapsed() time.Duration {
	return c.now().Sub(c.start)
}

// StopReason is the reason recorded by the last Continue call that returned false.
func (c *Controller) StopReason() StopReason {
	return c.reason
}

// Halt stops the search for a reason of its own. Every later Continue call
// returns false and reports reason.
func (c *Controller) Halt(reason StopReason) {
	c.halted = reason
	c.reason = reason
}

// Continue reports whether another iteration may start.
func (c *Controller) Continue() bool {
	c.reason = c.check()
	if c.reason == StopNone && c.parent != nil && !c.parent.Continue() {
		c.reason = StopParent
	}
	return c.reason == StopNone
}

func (c *Controller) check() StopReason {
	if c.halted != StopNone {
		return c.halted
	}
	limit := c.budget.Limit
	switch c.budget.Kind {
	case Time:
		remaining := time.Duration(limit)*time.Millisecond - c.Elapsed()
		if remaining <= time.Duration(c.budget.BreakMS)*time.Millisecond {
			return StopTime
		}
		if c.iterations > 0 && remaining < 2*(c.spent/time.Duration(c.iterations)) {
			return StopTime
		}
	case Iterations:
		if c.iterations >= limit {
			return StopIterations
		}
	case FMCalls:
		if c.fmCalls >= limit {
			return StopFMCalls
		}
	case Copies:
		if c.copies >= limit {
			return StopCopies
		}
	case FMAndCopies:
		if c.fmCalls+c.copies >= limit {
			return StopFMCalls | StopCopies
		}
	default:
		kindMismatch(c.budget.Kind)
	}
	return StopNone
}
