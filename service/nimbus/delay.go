package nimbus

import "strconv"

// defaultDelaySecs is used when neither the caller nor the topology config
// gives a usable delay.
const defaultDelaySecs = 5

// Delay is an optional delay in seconds for kill and rebalance.
type Delay struct {
	secs int
	set  bool
}

// NoDelay leaves the delay to the topology config.
var NoDelay = Delay{}

// SomeDelay is an explicit delay of secs seconds.
func SomeDelay(secs int) Delay {
	return Delay{secs: secs, set: true}
}

// Get returns the delay and whether it was given.
func (d Delay) Get() (int, bool) {
	return d.secs, d.set
}

func (d Delay) String() string {
	if !d.set {
		return "none"
	}
	return strconv.Itoa(d.secs) + "s"
}
