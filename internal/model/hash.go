package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainAssignmentValues separates value hashes from any other hash ccdb computes.
const DomainAssignmentValues = "ccdb/assignment-values/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ValuesHash computes the content hash of assignment rows.
// Equal rows always hash equally, independent of how the source text was laid out.
func ValuesHash(rows [][]string) (string, error) {
	canonical, err := MarshalCanonical(rows)
	if err != nil {
		return "", fmt.Errorf("values hash: %w", err)
	}
	return hashWithDomain(DomainAssignmentValues, canonical), nil
}
