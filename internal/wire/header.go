package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/quivertx/quiver-go/internal/protocol"
)

// ErrInvalidPacket is returned when a datagram cannot be parsed as a QUIC packet.
var ErrInvalidPacket = errors.New("not a QUIC packet")

// The Header is the version independent part of the header, plus the
// fields that become known once header protection is removed.
// ParseHeader parses everything up to (but not including) the packet number;
// the packet number fields are filled in by the header processing pipeline.
type Header struct {
	IsLongHeader bool
	Type         protocol.PacketType

	Version          protocol.Version
	SrcConnectionID  protocol.ConnectionID
	DestConnectionID protocol.ConnectionID

	// Initial packets only
	Token []byte
	// Retry packets only
	OrigDestConnectionID protocol.ConnectionID

	// Length is the remaining payload length declared in a long header.
	// It includes the packet number bytes until those are decoded.
	Length protocol.ByteCount

	// short header packets only
	SpinBit  bool
	KeyPhase bool

	// Version Negotiation packets only
	SupportedVersions []protocol.Version

	PacketNumber    protocol.PacketNumber
	PacketNumberLen protocol.PacketNumberLen

	// ParsedLen is the number of bytes parsed so far.
	// For regular packets this is the offset of the (protected) packet number.
	ParsedLen protocol.ByteCount
}

// IsVersionNegotiation says whether this is a Version Negotiation packet.
func (h *Header) IsVersionNegotiation() bool {
	return h.IsLongHeader && h.Version == 0
}

// PacketNumberSpace returns the packet number space this packet belongs to.
// Retry and Version Negotiation packets carry no packet number and must not be classified.
func (h *Header) PacketNumberSpace() protocol.EncryptionLevel {
	if !h.IsLongHeader {
		return protocol.Encryption1RTT
	}
	switch h.Type {
	case protocol.PacketTypeInitial:
		return protocol.EncryptionInitial
	case protocol.PacketTypeHandshake:
		return protocol.EncryptionHandshake
	case protocol.PacketType0RTT:
		return protocol.Encryption0RTT
	default:
		panic(fmt.Sprintf("%s packets don't have a packet number space", h.Type))
	}
}

// ParseHeader parses the header up to the packet number.
// For short header packets, the length of the destination connection ID must be known in advance.
func ParseHeader(data []byte, shortHeaderConnIDLen int) (*Header, error) {
	if len(data) == 0 {
		return nil, io.EOF
	}
	b := bytes.NewReader(data)
	typeByte, err := b.ReadByte()
	if err != nil {
		return nil, err
	}

	h := &Header{IsLongHeader: typeByte&0x80 > 0}
	if !h.IsLongHeader {
		if typeByte&0x40 == 0 {
			return nil, ErrInvalidPacket
		}
		h.SpinBit = typeByte&0x20 > 0
		h.KeyPhase = typeByte&0x04 > 0
		h.DestConnectionID, err = protocol.ReadConnectionID(b, shortHeaderConnIDLen)
		if err != nil {
			return nil, err
		}
		h.ParsedLen = protocol.ByteCount(len(data) - b.Len())
		return h, nil
	}
	if err := h.parseLongHeader(b, typeByte); err != nil {
		return nil, err
	}
	h.ParsedLen = protocol.ByteCount(len(data) - b.Len())
	return h, nil
}

func (h *Header) parseLongHeader(b *bytes.Reader, typeByte byte) error {
	var version uint32
	if err := binary.Read(b, binary.BigEndian, &version); err != nil {
		return err
	}
	h.Version = protocol.Version(version)
	if h.Version != 0 && typeByte&0x40 == 0 {
		return ErrInvalidPacket
	}

	destConnIDLen, err := b.ReadByte()
	if err != nil {
		return err
	}
	if destConnIDLen > protocol.MaxConnectionIDLen {
		return fmt.Errorf("invalid connection ID length: %d bytes", destConnIDLen)
	}
	h.DestConnectionID, err = protocol.ReadConnectionID(b, int(destConnIDLen))
	if err != nil {
		return err
	}
	srcConnIDLen, err := b.ReadByte()
	if err != nil {
		return err
	}
	if srcConnIDLen > protocol.MaxConnectionIDLen {
		return fmt.Errorf("invalid connection ID length: %d bytes", srcConnIDLen)
	}
	h.SrcConnectionID, err = protocol.ReadConnectionID(b, int(srcConnIDLen))
	if err != nil {
		return err
	}

	if h.IsVersionNegotiation() {
		if b.Len()%4 != 0 {
			return errors.New("Version Negotiation packet has a version list with an invalid length")
		}
		h.SupportedVersions = make([]protocol.Version, 0, b.Len()/4)
		for b.Len() > 0 {
			var v uint32
			if err := binary.Read(b, binary.BigEndian, &v); err != nil {
				return err
			}
			h.SupportedVersions = append(h.SupportedVersions, protocol.Version(v))
		}
		return nil
	}

	switch (typeByte & 0x30) >> 4 {
	case 0x0:
		h.Type = protocol.PacketTypeInitial
	case 0x1:
		h.Type = protocol.PacketType0RTT
	case 0x2:
		h.Type = protocol.PacketTypeHandshake
	case 0x3:
		h.Type = protocol.PacketTypeRetry
	}

	if h.Type == protocol.PacketTypeRetry {
		origDestConnIDLen, err := b.ReadByte()
		if err != nil {
			return err
		}
		h.OrigDestConnectionID, err = protocol.ReadConnectionID(b, int(origDestConnIDLen))
		if err != nil {
			return err
		}
		h.Token = make([]byte, b.Len())
		_, err = io.ReadFull(b, h.Token)
		return err
	}

	if h.Type == protocol.PacketTypeInitial {
		tokenLen, err := ReadVarint(b)
		if err != nil {
			return err
		}
		if tokenLen > uint64(b.Len()) {
			return io.EOF
		}
		h.Token = make([]byte, tokenLen)
		if _, err := io.ReadFull(b, h.Token); err != nil {
			return err
		}
	}

	pl, err := ReadVarint(b)
	if err != nil {
		return err
	}
	h.Length = protocol.ByteCount(pl)
	return nil
}
