package sched

// Dice is the random source used for load-shedding decisions (sampled scans,
// jittered cooldowns). Nothing that must be correct depends on it.
type Dice interface {
	Float64() float64
}

// HashDice is deterministic given (Seed, tick, call index): two runs with the same
// seed make the same choices.
type HashDice struct {
	Seed int64
	Tick func() uint64

	lastTick uint64
	n        uint64
}

func (d *HashDice) Float64() float64 {
	var tick uint64
	if d.Tick != nil {
		tick = d.Tick()
	}
	if tick != d.lastTick {
		d.lastTick = tick
		d.n = 0
	}
	d.n++
	h := mix64(uint64(d.Seed) ^ (tick * 0x9e3779b97f4a7c15) ^ (d.n * 0xbf58476d1ce4e5b9))
	return float64(h>>11) / float64(uint64(1)<<53)
}

// FixedDice always rolls the same value.
type FixedDice float64

func (d FixedDice) Float64() float64 { return float64(d) }

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Chance rolls d and reports whether the roll landed under p.
func Chance(d Dice, p float64) bool {
	if d == nil {
		return false
	}
	return d.Float64() < p
}

// RandomInterval returns base jittered by +/-10%.
func RandomInterval(d Dice, base uint64) uint64 {
	if base == 0 {
		return 0
	}
	f := 0.5
	if d != nil {
		f = d.Float64()
	}
	spread := base / 5
	return base - base/10 + uint64(float64(spread)*f)
}
