package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// signaturePrefix is the scheme tag Meta prepends to the hex digest in the
// X-Hub-Signature-256 header.
const signaturePrefix = "sha256="

var (
	// ErrSignatureMissing indicates the request carried no signature header
	// while a secret is configured.
	ErrSignatureMissing = errors.New("missing X-Hub-Signature-256 header")
	// ErrSignatureMismatch indicates the computed digest did not match the
	// header value.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// computeSignature returns the full expected header value for a raw body,
// including the scheme prefix.
func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// checkSignature verifies a raw request body against the signature header
// using constant-time comparison. The body must be the undecoded bytes as
// received; re-serialized JSON can differ byte-for-byte and break the digest.
func checkSignature(secret string, body []byte, header string) error {
	if header == "" {
		return ErrSignatureMissing
	}

	expected := computeSignature(secret, body)
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrSignatureMismatch
	}
	return nil
}
