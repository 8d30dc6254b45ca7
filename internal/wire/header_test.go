package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quivertx/quiver-go/internal/protocol"
)

func composeLongHeader(typeByte byte, version protocol.Version, dcid, scid []byte, extra []byte) []byte {
	data := []byte{typeByte}
	data = append(data, byte(version>>24), byte(version>>16), byte(version>>8), byte(version))
	data = append(data, byte(len(dcid)))
	data = append(data, dcid...)
	data = append(data, byte(len(scid)))
	data = append(data, scid...)
	return append(data, extra...)
}

func TestParseInitialHeader(t *testing.T) {
	dcid := []byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4}
	scid := []byte{0xca, 0xfe, 0xba, 0xbe}
	var extra []byte
	extra = AppendVarint(extra, 3) // token length
	extra = append(extra, 0xaa, 0xbb, 0xcc)
	extra = AppendVarint(extra, 1337) // payload length
	data := composeLongHeader(0xc0, protocol.VersionDraft19, dcid, scid, extra)
	pnOffset := len(data)
	data = append(data, []byte{0xde, 0xad, 0xbe, 0xef}...) // protected PN and payload

	hdr, err := ParseHeader(data, 0)
	require.NoError(t, err)
	require.True(t, hdr.IsLongHeader)
	require.Equal(t, protocol.PacketTypeInitial, hdr.Type)
	require.Equal(t, protocol.VersionDraft19, hdr.Version)
	require.Equal(t, protocol.ConnectionID(dcid), hdr.DestConnectionID)
	require.Equal(t, protocol.ConnectionID(scid), hdr.SrcConnectionID)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, hdr.Token)
	require.Equal(t, protocol.ByteCount(1337), hdr.Length)
	require.Equal(t, protocol.ByteCount(pnOffset), hdr.ParsedLen)
	require.Equal(t, protocol.EncryptionInitial, hdr.PacketNumberSpace())
}

func TestParseHandshakeHeader(t *testing.T) {
	data := composeLongHeader(0xe0, protocol.VersionDraft19, []byte{1, 2, 3, 4}, nil, AppendVarint(nil, 42))
	hdr, err := ParseHeader(data, 0)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeHandshake, hdr.Type)
	require.Empty(t, hdr.Token)
	require.Equal(t, protocol.ByteCount(42), hdr.Length)
	require.Equal(t, protocol.EncryptionHandshake, hdr.PacketNumberSpace())
}

func TestParse0RTTHeader(t *testing.T) {
	data := composeLongHeader(0xd0, protocol.VersionDraft19, []byte{1, 2, 3, 4}, nil, AppendVarint(nil, 100))
	hdr, err := ParseHeader(data, 0)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketType0RTT, hdr.Type)
	require.Equal(t, protocol.Encryption0RTT, hdr.PacketNumberSpace())
}

func TestParseShortHeader(t *testing.T) {
	data := []byte{0x60, 0xde, 0xad, 0xbe, 0xef, 0x42, 0x42} // spin bit set
	hdr, err := ParseHeader(data, 4)
	require.NoError(t, err)
	require.False(t, hdr.IsLongHeader)
	require.True(t, hdr.SpinBit)
	require.False(t, hdr.KeyPhase)
	require.Equal(t, protocol.ConnectionID{0xde, 0xad, 0xbe, 0xef}, hdr.DestConnectionID)
	require.Equal(t, protocol.ByteCount(5), hdr.ParsedLen)
	require.Equal(t, protocol.Encryption1RTT, hdr.PacketNumberSpace())
}

func TestParseShortHeaderKeyPhase(t *testing.T) {
	hdr, err := ParseHeader([]byte{0x44, 0x01, 0x00, 0x00}, 1)
	require.NoError(t, err)
	require.False(t, hdr.SpinBit)
	require.True(t, hdr.KeyPhase)
}

func TestParseVersionNegotiationPacket(t *testing.T) {
	versions := []byte{
		0xff, 0x00, 0x00, 0x13,
		0x00, 0x00, 0x00, 0x01,
	}
	data := composeLongHeader(0x80, 0, []byte{1, 2, 3, 4}, []byte{5, 6, 7, 8}, versions)
	hdr, err := ParseHeader(data, 0)
	require.NoError(t, err)
	require.True(t, hdr.IsVersionNegotiation())
	require.Equal(t, []protocol.Version{protocol.VersionDraft19, 1}, hdr.SupportedVersions)
}

func TestParseVersionNegotiationInvalidVersionList(t *testing.T) {
	data := composeLongHeader(0x80, 0, []byte{1, 2, 3, 4}, nil, []byte{0xff, 0x00})
	_, err := ParseHeader(data, 0)
	require.Error(t, err)
}

func TestParseRetryHeader(t *testing.T) {
	extra := []byte{4, 9, 8, 7, 6} // ODCID
	extra = append(extra, []byte("token")...)
	data := composeLongHeader(0xf0, protocol.VersionDraft19, []byte{1, 2, 3, 4}, nil, extra)
	hdr, err := ParseHeader(data, 0)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeRetry, hdr.Type)
	require.Equal(t, protocol.ConnectionID{9, 8, 7, 6}, hdr.OrigDestConnectionID)
	require.Equal(t, []byte("token"), hdr.Token)
	require.Panics(t, func() { hdr.PacketNumberSpace() })
}

func TestParseHeaderErrors(t *testing.T) {
	_, err := ParseHeader(nil, 0)
	require.Error(t, err)
	// missing fixed bit
	_, err = ParseHeader([]byte{0x00, 1, 2, 3}, 2)
	require.ErrorIs(t, err, ErrInvalidPacket)
	// truncated connection ID
	_, err = ParseHeader([]byte{0x40, 1, 2}, 8)
	require.Error(t, err)
	// long header with an oversized connection ID length
	data := []byte{0xc0, 0xff, 0x00, 0x00, 0x13, 21}
	data = append(data, make([]byte, 30)...)
	_, err = ParseHeader(data, 0)
	require.Error(t, err)
}
