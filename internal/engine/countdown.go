package engine

type TimerState string

const (
	TimerDisarmed TimerState = "disarmed"
	TimerTicking  TimerState = "ticking"
	TimerPaused   TimerState = "paused"
)

// Countdown counts whole seconds down to zero. It does not keep time itself:
// the host calls Tick once per interval.
type Countdown struct {
	Remaining int
	State     TimerState
}

func (c *Countdown) Arm(budgetSec int) {
	c.Remaining = max(budgetSec, 0)
	c.State = TimerTicking
}

func (c *Countdown) Pause() {
	if c.State == TimerTicking {
		c.State = TimerPaused
	}
}

func (c *Countdown) Resume() {
	if c.State == TimerPaused {
		c.State = TimerTicking
	}
}

func (c *Countdown) Disarm() {
	c.State = TimerDisarmed
}

// Tick reports true exactly once per Arm: on the tick that reaches zero.
func (c *Countdown) Tick() bool {
	if c.State != TimerTicking {
		return false
	}
	if c.Remaining > 0 {
		c.Remaining--
	}
	if c.Remaining == 0 {
		c.State = TimerDisarmed
		return true
	}
	return false
}
