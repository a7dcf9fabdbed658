package sampler

import "github.com/Dicklesworthstone/diskpulse/internal/model"

// ComputeRates turns two snapshots of the same device into read and write
// operations per second. A counter that went backwards (device reset,
// wraparound) yields a negative rate; it is passed through unchanged.
func ComputeRates(prev, curr model.DeviceCounters, seconds float64) (readIOPS, writeIOPS float64) {
	readIOPS = (float64(curr.ReadOps) - float64(prev.ReadOps)) / seconds
	writeIOPS = (float64(curr.WriteOps) - float64(prev.WriteOps)) / seconds
	return
}
