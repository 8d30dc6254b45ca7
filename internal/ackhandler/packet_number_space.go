package ackhandler

import (
	"github.com/quivertx/quiver-go/internal/monotime"
	"github.com/quivertx/quiver-go/internal/protocol"
)

// The three packet number spaces.
// 0-RTT and 1-RTT packets share the application-data space.
const (
	spaceInitial = iota
	spaceHandshake
	spaceAppData
	numSpaces
)

func spaceIndex(encLevel protocol.EncryptionLevel) int {
	switch encLevel {
	case protocol.EncryptionInitial:
		return spaceInitial
	case protocol.EncryptionHandshake:
		return spaceHandshake
	case protocol.Encryption0RTT, protocol.Encryption1RTT:
		return spaceAppData
	default:
		panic("invalid packet number space")
	}
}

func spaceEncryptionLevel(space int) protocol.EncryptionLevel {
	switch space {
	case spaceInitial:
		return protocol.EncryptionInitial
	case spaceHandshake:
		return protocol.EncryptionHandshake
	case spaceAppData:
		return protocol.Encryption1RTT
	default:
		panic("invalid packet number space")
	}
}

type packetNumberSpace struct {
	history sentPacketHistory

	lossTime monotime.Time

	largestAcked protocol.PacketNumber
	largestSent  protocol.PacketNumber
	next         protocol.PacketNumber // the next packet number to send
}

func newPacketNumberSpace() *packetNumberSpace {
	return &packetNumberSpace{
		largestSent:  protocol.InvalidPacketNumber,
		largestAcked: protocol.InvalidPacketNumber,
	}
}
