package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored digests.
const (
	DomainRecord  = "sqlab/record/v1"
	DomainRecords = "sqlab/records/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash returns the structural hash of one record's content. Aliases
// and exits hash as the task they resolve to, so every token that reaches
// the same task yields the same hash.
func RecordHash(r *Records, token string) (string, error) {
	v, err := r.ValueOf(token)
	if err != nil {
		return "", err
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("RecordHash %s: %w", token, err)
	}
	return hashWithDomain(DomainRecord, data), nil
}

// Digest fingerprints a whole dictionary, keys included.
func Digest(r *Records) (string, error) {
	obj := make(Object, r.Len())
	for _, token := range r.Keys() {
		v, err := r.entryValue(token)
		if err != nil {
			return "", err
		}
		obj[token] = v
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Digest: %w", err)
	}
	return hashWithDomain(DomainRecords, data), nil
}
