package quic

import (
	"github.com/quivertx/quiver-go/internal/ackhandler"
	"github.com/quivertx/quiver-go/internal/handshake"
	"github.com/quivertx/quiver-go/internal/protocol"
	"github.com/quivertx/quiver-go/internal/qerr"
	"github.com/quivertx/quiver-go/internal/utils"
	"github.com/quivertx/quiver-go/internal/wire"
)

// An AEADProvider supplies the header protection contexts, keyed by encryption
// level. The keys are owned by the TLS stack and only borrowed for the
// duration of a call.
type AEADProvider interface {
	InitialHeaderProtector(dcid protocol.ConnectionID) (handshake.HeaderProtector, error)
	HandshakeHeaderProtector() (handshake.HeaderProtector, error)
	ZeroRTTHeaderProtector() (handshake.HeaderProtector, error)
	OneRTTHeaderProtector() (handshake.HeaderProtector, error)
}

// The HeaderHandler completes a parsed header: it removes header protection
// from the packet number, reconstructs the full packet number from its
// truncated representation, records it with its packet number space, and
// performs the header-type specific tail work (version gating, spin bit).
type HeaderHandler struct {
	perspective protocol.Perspective
	versions    []protocol.Version

	aead     AEADProvider
	received *ackhandler.ReceivedPacketTracker

	// tlsAcceptingAny says whether the server's TLS state machine is still in
	// its initial state, accepting packets of any version.
	tlsAcceptingAny func() bool

	spinBit bool

	logger utils.Logger
}

func NewHeaderHandler(
	perspective protocol.Perspective,
	versions []protocol.Version,
	aead AEADProvider,
	received *ackhandler.ReceivedPacketTracker,
	tlsAcceptingAny func() bool,
	logger utils.Logger,
) *HeaderHandler {
	return &HeaderHandler{
		perspective:     perspective,
		versions:        versions,
		aead:            aead,
		received:        received,
		tlsAcceptingAny: tlsAcceptingAny,
		logger:          logger,
	}
}

// SpinBit returns the connection's observed spin bit.
func (h *HeaderHandler) SpinBit() bool {
	return h.spinBit
}

// HandleHeader takes a parsed header and the datagram it was parsed from,
// decodes the protected packet number and returns the offset of the payload.
// Version Negotiation and Retry packets carry no packet number; they are
// passed through untouched.
// Decryption failures of the payload itself are reported by a later stage.
func (h *HeaderHandler) HandleHeader(hdr *wire.Header, data []byte) (protocol.ByteCount, error) {
	// Version Negotiation packets bypass header protection entirely.
	if hdr.IsVersionNegotiation() {
		return hdr.ParsedLen, nil
	}

	if hdr.IsLongHeader && h.perspective == protocol.PerspectiveServer &&
		!protocol.IsSupportedVersion(h.versions, hdr.Version) {
		switch {
		case hdr.Type == protocol.PacketTypeInitial:
			// the caller answers with a Version Negotiation packet
			return 0, &qerr.TransportError{
				ErrorCode:    qerr.VersionNegotiationError,
				ErrorMessage: "unsupported version " + hdr.Version.String(),
			}
		case hdr.Type == protocol.PacketType0RTT || (h.tlsAcceptingAny != nil && h.tlsAcceptingAny()):
			return 0, qerr.ErrIgnorePacket
		default:
			return 0, &qerr.TransportError{
				ErrorCode:    qerr.ProtocolViolation,
				ErrorMessage: "packet with unsupported version " + hdr.Version.String(),
			}
		}
	}

	// Retry packets carry no packet number.
	if hdr.IsLongHeader && hdr.Type == protocol.PacketTypeRetry {
		return hdr.ParsedLen, nil
	}

	hp, err := h.headerProtector(hdr)
	if err != nil {
		return 0, err
	}

	// The sample is taken 4 bytes past the packet number offset: the packet
	// number field is treated as maximum-width for sampling.
	pnOffset := int(hdr.ParsedLen)
	if len(data) < pnOffset+4+handshake.SampleSize {
		h.logger.Debugf("Dropping packet that is too small to contain a header protection sample (%d bytes).", len(data))
		return 0, qerr.ErrIgnorePacket
	}
	sample := data[pnOffset+4 : pnOffset+4+handshake.SampleSize]

	// Unmasking is done on a copy: the bytes beyond the actual packet number
	// length belong to the encrypted payload and must stay untouched.
	firstByte := data[0]
	var pnBytes [4]byte
	copy(pnBytes[:], data[pnOffset:pnOffset+4])
	hp.DecryptHeader(sample, &firstByte, pnBytes[:])

	pnLen := protocol.PacketNumberLen(firstByte&0x03) + 1
	var wirePN protocol.PacketNumber
	for i := 0; i < int(pnLen); i++ {
		wirePN = wirePN<<8 | protocol.PacketNumber(pnBytes[i])
	}

	encLevel := hdr.PacketNumberSpace()
	pn := protocol.DecodePacketNumber(pnLen, h.received.HighestReceived(encLevel), wirePN)
	isNewHighest := h.received.ReceivedPacket(encLevel, pn)

	hdr.PacketNumber = pn
	hdr.PacketNumberLen = pnLen

	if hdr.IsLongHeader {
		// the declared payload length includes the packet number bytes
		if hdr.Length < protocol.ByteCount(pnLen) {
			return 0, &qerr.TransportError{
				ErrorCode:    qerr.ProtocolViolation,
				ErrorMessage: "packet length smaller than the packet number",
			}
		}
		hdr.Length -= protocol.ByteCount(pnLen)
	} else if isNewHighest {
		// the client inverts the received spin bit, the server mirrors it
		if h.perspective == protocol.PerspectiveClient {
			h.spinBit = !hdr.SpinBit
		} else {
			h.spinBit = hdr.SpinBit
		}
	}

	hdr.ParsedLen += protocol.ByteCount(pnLen)
	return hdr.ParsedLen, nil
}

func (h *HeaderHandler) headerProtector(hdr *wire.Header) (handshake.HeaderProtector, error) {
	if !hdr.IsLongHeader {
		return h.aead.OneRTTHeaderProtector()
	}
	switch hdr.Type {
	case protocol.PacketTypeInitial, protocol.PacketTypeRetry:
		return h.aead.InitialHeaderProtector(hdr.DestConnectionID)
	case protocol.PacketTypeHandshake:
		return h.aead.HandshakeHeaderProtector()
	case protocol.PacketType0RTT:
		return h.aead.ZeroRTTHeaderProtector()
	default:
		panic("unknown header form")
	}
}
