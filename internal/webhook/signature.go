package webhook

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // GitHub signs X-Hub-Signature with HMAC-SHA1
	"encoding/hex"
	"errors"
	"hash"
)

const signaturePrefix = "sha1="

// ErrInvalidSignature is returned when X-Hub-Signature does not match the body.
var ErrInvalidSignature = errors.New("invalid X-Hub-Signature header")

// NewMAC returns the HMAC used to sign webhook bodies with secret.
func NewMAC(secret []byte) hash.Hash {
	return hmac.New(sha1.New, secret)
}

// Sign returns the X-Hub-Signature header value for body.
func Sign(secret, body []byte) string {
	mac := NewMAC(secret)
	_, _ = mac.Write(body)
	return signatureOf(mac)
}

// Verify checks header against the HMAC of body.
func Verify(secret, body []byte, header string) error {
	mac := NewMAC(secret)
	_, _ = mac.Write(body)
	return VerifyMAC(mac, header)
}

// VerifyMAC checks header against a MAC that has already consumed the body.
// The comparison is constant time.
func VerifyMAC(mac hash.Hash, header string) error {
	if !hmac.Equal([]byte(signatureOf(mac)), []byte(header)) {
		return ErrInvalidSignature
	}
	return nil
}

func signatureOf(mac hash.Hash) string {
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
