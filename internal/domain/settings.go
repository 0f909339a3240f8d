package domain

const (
	SettingInterval      = "interval"
	SettingItemsPerCycle = "posts_per_interval"

	DefaultIntervalMinutes = 10
	DefaultItemsPerCycle   = 1

	MinIntervalMinutes = 1
	MinItemsPerCycle   = 1
	MaxItemsPerCycle   = 10
)

// Settings is the pair of scheduling parameters read on every tick.
type Settings struct {
	IntervalMinutes int
	ItemsPerCycle   int
}

// Due reports whether the cycle should run on the given tick.
func (s Settings) Due(tick int64) bool {
	interval := int64(s.IntervalMinutes)
	if interval < MinIntervalMinutes {
		interval = MinIntervalMinutes
	}
	return tick%interval == 0
}
