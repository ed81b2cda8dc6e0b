package host

import "time"

type tickerGen struct{}

func (tickerGen) Create(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

func NewTickerGen() PeriodicTickerChannelCreator {
	return tickerGen{}
}
