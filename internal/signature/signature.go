package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/myriad-social/myriad_api/internal/wallet"
)

var (
	// ErrMismatch means the signature is well formed but was not produced by the claimed address.
	ErrMismatch = errors.New("signature does not match address")
	// ErrMalformed means the signature or address cannot be decoded.
	ErrMalformed = errors.New("malformed signature")
)

// NonceMessage is the payload a wallet signs to prove it holds the current nonce.
func NonceMessage(nonce int64) string {
	return "0x" + strconv.FormatInt(nonce, 16)
}

// Verify checks that signature over message was produced by address on platform.
func Verify(platform, address, message, signature string) error {
	switch platform {
	case wallet.PlatformEthereum:
		signer, err := RecoverEthereum(message, signature)
		if err != nil {
			return err
		}
		if !strings.EqualFold(signer, strings.TrimSpace(address)) {
			return ErrMismatch
		}
		return nil
	case wallet.PlatformNear:
		return verifyEd25519(address, message, signature)
	default:
		return fmt.Errorf("unsupported platform %q", platform)
	}
}

// RecoverEthereum returns the 0x-prefixed address that produced a
// personal_sign signature (r || s || v) over message.
func RecoverEthereum(message, signature string) (string, error) {
	sig, err := decodeHex(signature)
	if err != nil || len(sig) != 65 {
		return "", ErrMalformed
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", ErrMalformed
	}

	// Compact form expected by ecdsa.RecoverCompact: recovery code first,
	// 27 + v for an uncompressed key.
	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, PersonalHash([]byte(message)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return EthereumAddress(pub), nil
}

// EthereumAddress derives the lowercase 0x address of a public key.
func EthereumAddress(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

// PersonalHash is the keccak256 digest signed by eth personal_sign.
func PersonalHash(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prefix))
	h.Write(msg)
	return h.Sum(nil)
}

func verifyEd25519(address, message, signature string) error {
	pub, err := decodeHex(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ErrMalformed
	}
	sig, err := decodeHex(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrMalformed
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig) {
		return ErrMismatch
	}
	return nil
}

func decodeHex(input string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return hex.DecodeString(clean)
}
