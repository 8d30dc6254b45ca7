package utils

import (
	"time"

	"github.com/quivertx/quiver-go/internal/protocol"
)

const (
	rttAlpha = 0.125
	rttBeta  = 0.25
)

// RTTStats provides round-trip statistics
type RTTStats struct {
	hasMeasurement bool

	minRTT      time.Duration
	latestRTT   time.Duration
	smoothedRTT time.Duration
	meanDev     time.Duration

	maxAckDelay time.Duration
}

// NewRTTStats makes a properly initialized RTTStats object
func NewRTTStats() *RTTStats {
	return &RTTStats{maxAckDelay: protocol.DefaultMaxAckDelay}
}

// MinRTT returns the minRTT for the entire connection.
func (r *RTTStats) MinRTT() time.Duration { return r.minRTT }

// LatestRTT returns the most recent rtt measurement.
func (r *RTTStats) LatestRTT() time.Duration { return r.latestRTT }

// SmoothedRTT returns the smoothed RTT for the connection.
// May return Zero if no valid updates have occurred.
func (r *RTTStats) SmoothedRTT() time.Duration { return r.smoothedRTT }

// MeanDeviation gets the mean deviation of the RTT samples (rttvar).
func (r *RTTStats) MeanDeviation() time.Duration { return r.meanDev }

// MaxAckDelay gets the max_ack_delay advertised by the peer.
func (r *RTTStats) MaxAckDelay() time.Duration { return r.maxAckDelay }

// HasMeasurement says whether there is a valid RTT measurement.
func (r *RTTStats) HasMeasurement() bool { return r.hasMeasurement }

// SmoothedOrInitialRTT returns the smoothed RTT, falling back to the
// default initial RTT before the first measurement.
func (r *RTTStats) SmoothedOrInitialRTT() time.Duration {
	if !r.hasMeasurement {
		return protocol.DefaultInitialRTT
	}
	return r.smoothedRTT
}

// UpdateRTT updates the RTT based on a new sample.
// The ack delay is subtracted from the sample, capped at max_ack_delay,
// unless doing so would push the sample below min_rtt.
func (r *RTTStats) UpdateRTT(sendDelta, ackDelay time.Duration) {
	if sendDelta <= 0 {
		return
	}
	r.latestRTT = sendDelta

	if !r.hasMeasurement || sendDelta < r.minRTT {
		r.minRTT = sendDelta
	}

	sample := sendDelta
	if d := min(ackDelay, r.maxAckDelay); sendDelta-d >= r.minRTT {
		sample -= d
	}

	if !r.hasMeasurement {
		r.hasMeasurement = true
		r.smoothedRTT = sample
		r.meanDev = sample / 2
		return
	}
	r.meanDev = time.Duration((1-rttBeta)*float64(r.meanDev) + rttBeta*float64((r.smoothedRTT-sample).Abs()))
	r.smoothedRTT = time.Duration((1-rttAlpha)*float64(r.smoothedRTT) + rttAlpha*float64(sample))
}

// SetMaxAckDelay sets the max_ack_delay advertised by the peer.
func (r *RTTStats) SetMaxAckDelay(mad time.Duration) {
	r.maxAckDelay = mad
}

// Reset clears all measurements.
func (r *RTTStats) Reset() {
	r.hasMeasurement = false
	r.minRTT = 0
	r.latestRTT = 0
	r.smoothedRTT = 0
	r.meanDev = 0
}
