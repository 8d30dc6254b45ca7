package ackhandler

import (
	"github.com/quivertx/quiver-go/internal/monotime"
	"github.com/quivertx/quiver-go/internal/protocol"
)

// A Packet is a sent packet, tracked until it is acknowledged or declared lost.
type Packet struct {
	PacketNumber    protocol.PacketNumber
	EncryptionLevel protocol.EncryptionLevel
	// Frames are kept opaque. They are handed back to the owner when the
	// packet has to be retransmitted.
	Frames   []any
	Length   protocol.ByteCount
	SendTime monotime.Time

	// IsAckEliciting says whether the packet contains any frame besides ACK, PADDING and CONNECTION_CLOSE.
	IsAckEliciting bool
	// IsCrypto says whether the packet carries CRYPTO frames (handshake data).
	IsCrypto bool
	// InFlight says whether the packet counts towards the congestion window.
	InFlight bool
}
