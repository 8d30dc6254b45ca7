package handshake

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// SampleSize is the number of payload bytes sampled for header protection.
const SampleSize = 16

// A HeaderProtector applies and removes header protection.
// The mask is derived from a sample of the encrypted payload. It covers the
// packet number bytes and the low two bits of the first header byte (the bits
// that encode the packet number length on long headers).
type HeaderProtector interface {
	EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
	DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
}

type aesHeaderProtector struct {
	block cipher.Block
	mask  [SampleSize]byte
}

var _ HeaderProtector = &aesHeaderProtector{}

// NewAESHeaderProtector creates a header protector that derives the mask by
// encrypting the sample with AES-ECB.
func NewAESHeaderProtector(key []byte) (HeaderProtector, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("error creating new AES cipher: %w", err)
	}
	return &aesHeaderProtector{block: block}, nil
}

func (p *aesHeaderProtector) DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	p.apply(sample, firstByte, pnBytes)
}

func (p *aesHeaderProtector) EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	p.apply(sample, firstByte, pnBytes)
}

func (p *aesHeaderProtector) apply(sample []byte, firstByte *byte, pnBytes []byte) {
	if len(sample) != len(p.mask) {
		panic("invalid sample size")
	}
	if len(pnBytes) > len(p.mask)-1 {
		panic("too many packet number bytes")
	}
	p.block.Encrypt(p.mask[:], sample)
	*firstByte ^= p.mask[0] & 0x3
	for i := range pnBytes {
		pnBytes[i] ^= p.mask[i+1]
	}
}

type chaChaHeaderProtector struct {
	key [32]byte
}

var _ HeaderProtector = &chaChaHeaderProtector{}

// NewChaChaHeaderProtector creates a header protector that derives the mask
// from the ChaCha20 key stream, using the sample as counter and nonce.
func NewChaChaHeaderProtector(key []byte) (HeaderProtector, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("expected a 32 byte ChaCha20 key, got %d bytes", len(key))
	}
	p := &chaChaHeaderProtector{}
	copy(p.key[:], key)
	return p, nil
}

func (p *chaChaHeaderProtector) DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	p.apply(sample, firstByte, pnBytes)
}

func (p *chaChaHeaderProtector) EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte) {
	p.apply(sample, firstByte, pnBytes)
}

func (p *chaChaHeaderProtector) apply(sample []byte, firstByte *byte, pnBytes []byte) {
	if len(sample) != SampleSize {
		panic("invalid sample size")
	}
	if len(pnBytes) > 4 {
		panic("too many packet number bytes")
	}
	nonce := sample[4:16]
	c, err := chacha20.NewUnauthenticatedCipher(p.key[:], nonce)
	if err != nil {
		panic(err)
	}
	c.SetCounter(binary.LittleEndian.Uint32(sample[:4]))
	var mask [5]byte
	c.XORKeyStream(mask[:], mask[:])
	*firstByte ^= mask[0] & 0x3
	for i := range pnBytes {
		pnBytes[i] ^= mask[i+1]
	}
}
