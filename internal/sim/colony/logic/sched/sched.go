package sched

// Periodic is a scheduled-task record owned by the component that needs the cadence.
// The zero value with Interval set is due on the first check.
type Periodic struct {
	NextDue  uint64 `json:"next_due"`
	Interval uint64 `json:"interval"`
}

func Every(interval uint64) Periodic { return Periodic{Interval: interval} }

// Due reports whether the task should run at now and, if so, schedules the next run.
func (p *Periodic) Due(now uint64) bool {
	if p == nil || p.Interval == 0 {
		return false
	}
	if now < p.NextDue {
		return false
	}
	p.NextDue = now + p.Interval
	return true
}
