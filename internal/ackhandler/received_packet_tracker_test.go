package ackhandler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quivertx/quiver-go/internal/protocol"
)

func TestReceivedPacketTracker(t *testing.T) {
	tracker := NewReceivedPacketTracker()
	require.Equal(t, protocol.InvalidPacketNumber, tracker.HighestReceived(protocol.Encryption1RTT))

	require.True(t, tracker.ReceivedPacket(protocol.Encryption1RTT, 5))
	require.Equal(t, protocol.PacketNumber(5), tracker.HighestReceived(protocol.Encryption1RTT))

	// reordered packets don't lower the highest received
	require.False(t, tracker.ReceivedPacket(protocol.Encryption1RTT, 3))
	require.Equal(t, protocol.PacketNumber(5), tracker.HighestReceived(protocol.Encryption1RTT))

	require.True(t, tracker.ReceivedPacket(protocol.Encryption1RTT, 6))
	require.Equal(t, protocol.PacketNumber(6), tracker.HighestReceived(protocol.Encryption1RTT))
}

func TestReceivedPacketTrackerSpaces(t *testing.T) {
	tracker := NewReceivedPacketTracker()
	require.True(t, tracker.ReceivedPacket(protocol.EncryptionInitial, 10))
	require.Equal(t, protocol.InvalidPacketNumber, tracker.HighestReceived(protocol.EncryptionHandshake))
	// 0-RTT and 1-RTT share the application-data space
	require.True(t, tracker.ReceivedPacket(protocol.Encryption0RTT, 2))
	require.Equal(t, protocol.PacketNumber(2), tracker.HighestReceived(protocol.Encryption1RTT))
	// packet number 0 is valid
	require.True(t, tracker.ReceivedPacket(protocol.EncryptionHandshake, 0))
	require.Equal(t, protocol.PacketNumber(0), tracker.HighestReceived(protocol.EncryptionHandshake))
}
