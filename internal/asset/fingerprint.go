package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainContent = "assetsync/content/v1"
	DomainPayload = "assetsync/payload/v1"
	DomainSchema  = "assetsync/schema/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON form of v under domain.
// Two values with equal fingerprints are treated as equal content.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(domain string, v any) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}

// ContentFingerprint fingerprints everything about e except its
// instance-local id.
func ContentFingerprint(e *Entity) (string, error) {
	c := *e
	c.ID = ""
	return Fingerprint(DomainContent, &c)
}

// PayloadFingerprint fingerprints a structured payload.
func PayloadFingerprint(p *Payload) (string, error) {
	if p == nil {
		p = &Payload{}
	}
	return Fingerprint(DomainPayload, p)
}

// SamePayload reports whether a and b carry identical node trees.
func SamePayload(a, b *Payload) bool {
	fa, err := PayloadFingerprint(a)
	if err != nil {
		return false
	}
	fb, err := PayloadFingerprint(b)
	if err != nil {
		return false
	}
	return fa == fb
}
