package ackhandler

import (
	"github.com/quivertx/quiver-go/internal/protocol"
)

// A ReceivedPacketTracker tracks the highest received packet number for each
// packet number space. It is consulted during packet number reconstruction
// and never decreases.
type ReceivedPacketTracker struct {
	highestReceived [numSpaces]protocol.PacketNumber
}

func NewReceivedPacketTracker() *ReceivedPacketTracker {
	t := &ReceivedPacketTracker{}
	for i := range t.highestReceived {
		t.highestReceived[i] = protocol.InvalidPacketNumber
	}
	return t
}

// ReceivedPacket records an inbound packet number.
// It reports whether this packet is the new highest in its space.
func (t *ReceivedPacketTracker) ReceivedPacket(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber) bool {
	space := spaceIndex(encLevel)
	if t.highestReceived[space] == protocol.InvalidPacketNumber || pn > t.highestReceived[space] {
		t.highestReceived[space] = pn
		return true
	}
	return false
}

// HighestReceived returns the highest packet number received in this space,
// or protocol.InvalidPacketNumber if nothing was received yet.
func (t *ReceivedPacketTracker) HighestReceived(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	return t.highestReceived[spaceIndex(encLevel)]
}
