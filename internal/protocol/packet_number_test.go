package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePacketNumber(t *testing.T) {
	require.Equal(t, PacketNumber(255), DecodePacketNumber(PacketNumberLen1, 10, 255))
	require.Equal(t, PacketNumber(0), DecodePacketNumber(PacketNumberLen1, InvalidPacketNumber, 0))
	// example from the RFC's appendix: largest 0xa82f30ea, truncated 0x9b32, 2 bytes
	require.Equal(t, PacketNumber(0xa82f9b32), DecodePacketNumber(PacketNumberLen2, 0xa82f30ea, 0x9b32))
	// wrap into the next epoch
	require.Equal(t, PacketNumber(256), DecodePacketNumber(PacketNumberLen1, 255, 0))
	require.Equal(t, PacketNumber(0x100022), DecodePacketNumber(PacketNumberLen2, 0xfffff, 0x22))
}

func TestDecodePacketNumberTieBreak(t *testing.T) {
	// expected is 0x80, both 0x00 and 0x100 are 0x80 away. The higher candidate wins.
	require.Equal(t, PacketNumber(0x100), DecodePacketNumber(PacketNumberLen1, 0x7f, 0))
}

// Any packet number within half the window of the expected value round-trips.
func TestDecodePacketNumberRoundTrip(t *testing.T) {
	for _, l := range []PacketNumberLen{PacketNumberLen1, PacketNumberLen2, PacketNumberLen3, PacketNumberLen4} {
		win := PacketNumber(1) << (l * 8)
		base := PacketNumber(1) << 40
		for offset := PacketNumber(-win/2 + 1); offset < win/2; offset += win / 8 {
			pn := base + offset
			truncated := pn & (win - 1)
			require.Equal(t, pn, DecodePacketNumber(l, base-1, truncated), "len %d, offset %d", l, offset)
		}
	}
}

func TestPacketNumberLengthForHeader(t *testing.T) {
	require.Equal(t, PacketNumberLen2, PacketNumberLengthForHeader(42, InvalidPacketNumber))
	require.Equal(t, PacketNumberLen2, PacketNumberLengthForHeader(1<<15-2, 0))
	require.Equal(t, PacketNumberLen3, PacketNumberLengthForHeader(1<<15, 0))
	require.Equal(t, PacketNumberLen3, PacketNumberLengthForHeader(1<<23-2, 0))
	require.Equal(t, PacketNumberLen4, PacketNumberLengthForHeader(1<<23, 0))
}
