package protocol

import "time"

// DesiredConnectionIDLength is the connection ID length that is used for connection IDs we generate.
const DesiredConnectionIDLength = 8

// MaxConnectionIDLen is the maximum length of the connection ID.
const MaxConnectionIDLen = 18

// MinInitialPacketSize is the minimum size an Initial packet is required to have.
const MinInitialPacketSize = 1200

// TimerGranularity is the granularity of the loss detection timer.
// The loss delay, the handshake retransmission period and the probe timeout
// are never set below this value.
const TimerGranularity = 50 * time.Millisecond

// DefaultInitialRTT is the RTT that is assumed before the first measurement.
const DefaultInitialRTT = 100 * time.Millisecond

// DefaultMaxAckDelay is the max_ack_delay assumed until the peer advertises one.
const DefaultMaxAckDelay = 25 * time.Millisecond

// MaxAckElicitingProbes is the maximum number of probe packets sent per probe timeout.
const MaxAckElicitingProbes = 2
