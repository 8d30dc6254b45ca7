package ackhandler

import (
	"time"

	"github.com/quivertx/quiver-go/internal/monotime"
	"github.com/quivertx/quiver-go/internal/protocol"
	"github.com/quivertx/quiver-go/internal/qerr"
	"github.com/quivertx/quiver-go/internal/utils"
	"github.com/quivertx/quiver-go/internal/wire"
)

const (
	// Maximum reordering in time space before time based loss detection considers a packet lost.
	// Specified as an RTT multiplier.
	timeThreshold = 9.0 / 8
	// Maximum reordering in packets before packet threshold loss detection considers a packet lost.
	packetThreshold = 3
)

type sentPacketHandler struct {
	spaces [numSpaces]*packetNumberSpace

	// The number of times the crypto retransmission alarm has fired without progress.
	cryptoCount uint32
	// The number of times a PTO has been sent without receiving an ack.
	ptoCount uint32

	timeOfLastSentAckElicitingPacket monotime.Time
	timeOfLastSentCryptoPacket       monotime.Time

	ackElicitingOutstanding int
	cryptoOutstanding       int

	alarm    utils.Alarm
	rttStats *utils.RTTStats
	observer PacketObserver
	logger   utils.Logger
}

var _ SentPacketHandler = &sentPacketHandler{}

// NewSentPacketHandler creates a loss detector.
// The alarm's timeout callback must be wired to OnLossDetectionAlarm by the owner.
func NewSentPacketHandler(
	rttStats *utils.RTTStats,
	observer PacketObserver,
	alarm utils.Alarm,
	logger utils.Logger,
) SentPacketHandler {
	h := &sentPacketHandler{
		rttStats: rttStats,
		observer: observer,
		alarm:    alarm,
		logger:   logger,
	}
	for i := range h.spaces {
		h.spaces[i] = newPacketNumberSpace()
	}
	return h
}

func (h *sentPacketHandler) AckElicitingOutstanding() int { return h.ackElicitingOutstanding }
func (h *sentPacketHandler) CryptoOutstanding() int       { return h.cryptoOutstanding }

func (h *sentPacketHandler) SentPacket(now monotime.Time, p *Packet) error {
	pnSpace := h.spaces[spaceIndex(p.EncryptionLevel)]
	if err := pnSpace.history.Insert(p); err != nil {
		// a packet number must never be reused within a space
		return err
	}
	pnSpace.largestSent = max(pnSpace.largestSent, p.PacketNumber)

	if p.IsCrypto {
		h.cryptoOutstanding++
		h.timeOfLastSentCryptoPacket = now
	}
	if p.IsAckEliciting {
		h.ackElicitingOutstanding++
		h.timeOfLastSentAckElicitingPacket = now
	}
	h.setLossDetectionAlarm(now)
	return nil
}

func (h *sentPacketHandler) ReceivedAck(ack *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime monotime.Time) error {
	pnSpace := h.spaces[spaceIndex(encLevel)]

	largestAcked := ack.LargestAcked()
	if largestAcked > pnSpace.largestSent {
		return &qerr.TransportError{
			ErrorCode:    qerr.ProtocolViolation,
			ErrorMessage: "received ACK for an unsent packet",
		}
	}
	pnSpace.largestAcked = max(pnSpace.largestAcked, largestAcked)

	// Update the RTT only if the packet for the largest acked is still tracked
	// and was ack-eliciting. A duplicate ACK must not corrupt the estimate.
	if p := pnSpace.history.Get(largestAcked); p != nil && p.IsAckEliciting {
		h.rttStats.UpdateRTT(rcvTime.Sub(p.SendTime), ack.DelayTime)
		if h.logger.Debug() {
			h.logger.Debugf("\tupdated RTT: %s (σ: %s)", h.rttStats.SmoothedRTT(), h.rttStats.MeanDeviation())
		}
	}

	ackedPackets, err := h.detectNewlyAckedPackets(ack, pnSpace)
	if err != nil {
		return err
	}
	var hasAckEliciting bool
	for _, p := range ackedPackets {
		if p.IsAckEliciting {
			hasAckEliciting = true
		}
		if err := h.onPacketAcked(p, pnSpace); err != nil {
			return err
		}
	}

	h.detectLostPackets(rcvTime, encLevel)

	if hasAckEliciting {
		if h.ptoCount > 0 {
			h.observer.OnRetransmissionTimeoutVerified()
		}
		h.ptoCount = 0
		h.cryptoCount = 0
	}
	if ack.HasECNCounts() {
		h.observer.OnECNAck(ack)
	}

	h.setLossDetectionAlarm(rcvTime)
	return nil
}

// Packets are returned in ascending packet number order.
func (h *sentPacketHandler) detectNewlyAckedPackets(ack *wire.AckFrame, pnSpace *packetNumberSpace) ([]*Packet, error) {
	var ackedPackets []*Packet
	ackRangeIndex := 0
	lowestAcked := ack.LowestAcked()
	largestAcked := ack.LargestAcked()
	for _, p := range pnSpace.history.Packets() {
		// ignore packets below the lowest acked
		if p.PacketNumber < lowestAcked {
			continue
		}
		if p.PacketNumber > largestAcked {
			break
		}

		if ack.HasMissingRanges() {
			ackRange := ack.AckRanges[len(ack.AckRanges)-1-ackRangeIndex]

			for p.PacketNumber > ackRange.Largest && ackRangeIndex < len(ack.AckRanges)-1 {
				ackRangeIndex++
				ackRange = ack.AckRanges[len(ack.AckRanges)-1-ackRangeIndex]
			}

			if p.PacketNumber < ackRange.Smallest { // packet not contained in ACK range
				continue
			}
			if p.PacketNumber > ackRange.Largest {
				return nil, &qerr.TransportError{
					ErrorCode:    qerr.InternalError,
					ErrorMessage: "BUG: ackhandler would have acked a wrong packet",
				}
			}
		}
		ackedPackets = append(ackedPackets, p)
	}
	if h.logger.Debug() && len(ackedPackets) > 0 {
		pns := make([]protocol.PacketNumber, len(ackedPackets))
		for i, p := range ackedPackets {
			pns[i] = p.PacketNumber
		}
		h.logger.Debugf("\tnewly acked packets (%d): %d", len(pns), pns)
	}
	return ackedPackets, nil
}

func (h *sentPacketHandler) onPacketAcked(p *Packet, pnSpace *packetNumberSpace) error {
	if p.IsAckEliciting {
		h.observer.OnPacketAcked(p)
		h.ackElicitingOutstanding--
	}
	if p.IsCrypto {
		h.cryptoOutstanding--
	}
	return pnSpace.history.Remove(p.PacketNumber)
}

func (h *sentPacketHandler) detectLostPackets(now monotime.Time, encLevel protocol.EncryptionLevel) {
	pnSpace := h.spaces[spaceIndex(encLevel)]
	pnSpace.lossTime = 0

	maxRTT := float64(max(h.rttStats.LatestRTT(), h.rttStats.SmoothedRTT()))
	lossDelay := time.Duration(timeThreshold * maxRTT)

	// Minimum time of granularity before packets are deemed lost.
	lossDelay = max(lossDelay, protocol.TimerGranularity)

	// Packets sent before this time are deemed lost.
	lostSendTime := now.Add(-lossDelay)

	var lostPackets []*Packet
	for _, p := range pnSpace.history.Packets() {
		if p.PacketNumber > pnSpace.largestAcked {
			break
		}

		if !p.SendTime.After(lostSendTime) {
			lostPackets = append(lostPackets, p)
			if h.logger.Debug() {
				h.logger.Debugf("\tlost packet %d (time threshold)", p.PacketNumber)
			}
		} else if pnSpace.largestAcked > p.PacketNumber+packetThreshold {
			lostPackets = append(lostPackets, p)
			if h.logger.Debug() {
				h.logger.Debugf("\tlost packet %d (reordering threshold)", p.PacketNumber)
			}
		} else if pnSpace.lossTime.IsZero() {
			// Note: This conditional is only entered once per call
			lossTime := p.SendTime.Add(lossDelay)
			if h.logger.Debug() {
				h.logger.Debugf("\tsetting loss timer for packet %d (%s) to %s", p.PacketNumber, encLevel, lossTime)
			}
			pnSpace.lossTime = lossTime
		}
	}

	for _, p := range lostPackets {
		if p.IsAckEliciting {
			h.ackElicitingOutstanding--
		}
		if p.IsCrypto {
			h.cryptoOutstanding--
		}
		// the packet is in the history, the removal cannot fail
		_ = pnSpace.history.Remove(p.PacketNumber)
	}
	if len(lostPackets) > 0 {
		h.observer.OnPacketsLost(lostPackets)
	}
}

// earliestLossTime returns the earliest loss time across all packet number
// spaces, and the space it belongs to. If no space has a loss time set,
// it returns the zero time and the Initial space.
func (h *sentPacketHandler) earliestLossTime() (monotime.Time, protocol.EncryptionLevel) {
	lossTime := h.spaces[spaceInitial].lossTime
	encLevel := protocol.EncryptionInitial
	for _, space := range []int{spaceHandshake, spaceAppData} {
		t := h.spaces[space].lossTime
		if !t.IsZero() && (lossTime.IsZero() || t.Before(lossTime)) {
			lossTime = t
			encLevel = spaceEncryptionLevel(space)
		}
	}
	return lossTime, encLevel
}

func (h *sentPacketHandler) setLossDetectionAlarm(now monotime.Time) {
	// cancel the alarm if no ack-eliciting packets are outstanding
	if h.ackElicitingOutstanding == 0 {
		if h.alarm.IsRunning() {
			h.logger.Debugf("Canceling loss detection alarm. No ack-eliciting packets in flight.")
		}
		h.alarm.Reset()
		return
	}

	var duration time.Duration
	if h.cryptoOutstanding > 0 {
		// handshake retransmission alarm
		duration = max(2*h.rttStats.SmoothedOrInitialRTT()+h.rttStats.MaxAckDelay(), protocol.TimerGranularity) << h.cryptoCount
		duration = h.timeOfLastSentCryptoPacket.Add(duration).Sub(now)
	} else if lossTime, _ := h.earliestLossTime(); !lossTime.IsZero() {
		// time threshold loss detection
		duration = lossTime.Sub(h.timeOfLastSentAckElicitingPacket)
	} else {
		// probe timeout
		duration = max(h.rttStats.SmoothedRTT()+4*h.rttStats.MeanDeviation()+h.rttStats.MaxAckDelay(), protocol.TimerGranularity) << h.ptoCount
	}

	// re-arming replaces the pending timeout, it never stacks a second one
	h.alarm.Reset()
	h.alarm.Start(duration)
}

func (h *sentPacketHandler) OnLossDetectionAlarm(now monotime.Time) {
	defer h.setLossDetectionAlarm(now)

	if h.cryptoOutstanding > 0 {
		h.logger.Debugf("Loss detection alarm fired in crypto retransmission mode.")
		h.retransmitAllCryptoPackets()
		h.cryptoCount++
		return
	}

	if lossTime, encLevel := h.earliestLossTime(); !lossTime.IsZero() {
		h.logger.Debugf("Loss detection alarm fired in loss timer mode. Loss time: %s", lossTime)
		// Early retransmit or time loss detection
		h.detectLostPackets(now, encLevel)
		return
	}

	// PTO
	h.logger.Debugf("Loss detection alarm fired in PTO mode. PTO count: %d", h.ptoCount+1)
	h.sendProbePackets()
	h.ptoCount++
}

// retransmitAllCryptoPackets retransmits all unacked packets carrying crypto
// data, across all packet number spaces.
func (h *sentPacketHandler) retransmitAllCryptoPackets() {
	for _, pnSpace := range h.spaces {
		var cryptoPackets []*Packet
		for _, p := range pnSpace.history.Packets() {
			if p.IsCrypto {
				cryptoPackets = append(cryptoPackets, p)
			}
		}
		for _, p := range cryptoPackets {
			h.retransmitPacket(p, pnSpace)
		}
	}
}

// sendProbePackets queues up to two outstanding ack-eliciting packets for
// retransmission, preferring the earlier packet number spaces.
func (h *sentPacketHandler) sendProbePackets() {
	h.observer.OnPTOProbe()
	var probes []*Packet
	for _, pnSpace := range h.spaces {
		for _, p := range pnSpace.history.Packets() {
			if !p.IsAckEliciting {
				continue
			}
			probes = append(probes, p)
			if len(probes) == protocol.MaxAckElicitingProbes {
				break
			}
		}
		if len(probes) == protocol.MaxAckElicitingProbes {
			break
		}
	}
	for _, p := range probes {
		h.retransmitPacket(p, h.spaces[spaceIndex(p.EncryptionLevel)])
	}
}

// retransmitPacket hands the packet back to the owner for retransmission and
// stops tracking it. The frames will be sent in a new packet with a new
// packet number.
func (h *sentPacketHandler) retransmitPacket(p *Packet, pnSpace *packetNumberSpace) {
	if p.IsAckEliciting {
		h.ackElicitingOutstanding--
	}
	if p.IsCrypto {
		h.cryptoOutstanding--
	}
	_ = pnSpace.history.Remove(p.PacketNumber)
	h.observer.OnPacketRetransmit(p)
}

func (h *sentPacketHandler) PeekPacketNumber(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	return h.spaces[spaceIndex(encLevel)].next
}

func (h *sentPacketHandler) PopPacketNumber(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	pnSpace := h.spaces[spaceIndex(encLevel)]
	pn := pnSpace.next
	pnSpace.next++
	return pn
}

func (h *sentPacketHandler) Reset() {
	h.alarm.Reset()
	for i := range h.spaces {
		h.spaces[i] = newPacketNumberSpace()
	}
	h.cryptoCount = 0
	h.ptoCount = 0
	h.ackElicitingOutstanding = 0
	h.cryptoOutstanding = 0
	h.timeOfLastSentAckElicitingPacket = 0
	h.timeOfLastSentCryptoPacket = 0
}
