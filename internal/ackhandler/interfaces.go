package ackhandler

import (
	"github.com/quivertx/quiver-go/internal/monotime"
	"github.com/quivertx/quiver-go/internal/protocol"
	"github.com/quivertx/quiver-go/internal/wire"
)

// A PacketObserver receives the events emitted by the loss detector.
// For a single ACK, all OnPacketAcked calls happen before OnPacketsLost.
type PacketObserver interface {
	// OnPacketAcked is called for every newly acknowledged ack-eliciting packet.
	OnPacketAcked(*Packet)
	// OnPacketsLost is called with all packets declared lost by one detection pass.
	OnPacketsLost([]*Packet)
	// OnPacketRetransmit is called when a packet's frames have to be sent again.
	// The packet is no longer tracked; the owner re-packages its frames.
	OnPacketRetransmit(*Packet)
	// OnPTOProbe is called when the probe timeout fires.
	OnPTOProbe()
	// OnRetransmissionTimeoutVerified is called when an ACK acknowledging
	// ack-eliciting data arrives after one or more probe timeouts.
	OnRetransmissionTimeoutVerified()
	// OnECNAck is called for ACK frames carrying ECN counts.
	OnECNAck(*wire.AckFrame)
}

// SentPacketHandler handles ACKs received for outgoing packets
type SentPacketHandler interface {
	// SentPacket registers a sent packet with its packet number space.
	// Registering a packet number that is already tracked is a programming error.
	SentPacket(now monotime.Time, p *Packet) error
	// ReceivedAck processes an ACK frame.
	// It does not store a copy of the frame.
	ReceivedAck(f *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime monotime.Time) error
	// OnLossDetectionAlarm is invoked when the loss detection alarm fires.
	OnLossDetectionAlarm(now monotime.Time)

	PeekPacketNumber(protocol.EncryptionLevel) protocol.PacketNumber
	PopPacketNumber(protocol.EncryptionLevel) protocol.PacketNumber

	// AckElicitingOutstanding is the number of tracked ack-eliciting packets, across all spaces.
	AckElicitingOutstanding() int
	// CryptoOutstanding is the number of tracked packets carrying crypto data, across all spaces.
	CryptoOutstanding() int

	// Reset cancels the alarm and drops all tracked packets.
	// It is called on connection teardown.
	Reset()
}
