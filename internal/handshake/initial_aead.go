package handshake

import (
	"crypto"

	"golang.org/x/crypto/hkdf"

	"github.com/quivertx/quiver-go/internal/protocol"
)

// initial salt of the draft the supported wire version belongs to
var quicSalt = []byte{0xef, 0x4f, 0xb0, 0xab, 0xb4, 0x74, 0x70, 0xc4, 0x1b, 0xef, 0xcf, 0x80, 0x31, 0x33, 0x4f, 0xae, 0x48, 0x5e, 0x09, 0xa0}

func computeSecrets(connID protocol.ConnectionID) (clientSecret, serverSecret []byte) {
	initialSecret := hkdf.Extract(crypto.SHA256.New, connID, quicSalt)
	clientSecret = hkdfExpandLabel(crypto.SHA256, initialSecret, []byte{}, "client in", crypto.SHA256.Size())
	serverSecret = hkdfExpandLabel(crypto.SHA256, initialSecret, []byte{}, "server in", crypto.SHA256.Size())
	return
}

// NewInitialHeaderProtector creates the header protector for Initial packets
// sent by the given perspective. Both endpoints can derive it from the
// destination connection ID of the client's first Initial.
func NewInitialHeaderProtector(connID protocol.ConnectionID, sender protocol.Perspective) (HeaderProtector, error) {
	clientSecret, serverSecret := computeSecrets(connID)
	secret := clientSecret
	if sender == protocol.PerspectiveServer {
		secret = serverSecret
	}
	hpKey := hkdfExpandLabel(crypto.SHA256, secret, []byte{}, "quic hp", 16)
	return NewAESHeaderProtector(hpKey)
}
