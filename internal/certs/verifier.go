package certs

import (
	"strings"

	"github.com/charging-platform/charge-point-simulator/internal/station"
	"github.com/charging-platform/charge-point-simulator/internal/station/auth"
)

// StationVerifier adapts one station's slice of the certificate store to
// auth.CertificateVerifier, bridging C7's pipeline-level CertificateHashData
// to C15's on-disk CertHashData so the Certificate strategy can check
// RequestStartTransaction/Authorize identifiers against installed
// certificates without the two packages sharing a hash-data type.
type StationVerifier struct {
	mgr       *Manager
	stationID string
}

// Verifier returns a CertificateVerifier scoped to one station.
func (m *Manager) Verifier(stationID string) *StationVerifier {
	return &StationVerifier{mgr: m, stationID: stationID}
}

// VerifyHash reports Accepted if a certificate matching hash is installed
// under any use bucket for this station, Invalid otherwise.
func (v *StationVerifier) VerifyHash(hash auth.CertificateHashData) (auth.Status, error) {
	chains, err := v.mgr.List(v.stationID, nil)
	if err != nil {
		return auth.StatusInvalid, err
	}

	want := station.CertHashData{
		HashAlgorithm:  station.CertHashAlgorithm(hash.HashAlgorithm),
		IssuerNameHash: hash.IssuerNameHash,
		IssuerKeyHash:  hash.IssuerKeyHash,
		SerialNumber:   hash.SerialNumber,
	}

	for _, chain := range chains {
		if hashDataEqual(chain.HashData, want) {
			return auth.StatusAccepted, nil
		}
	}
	return auth.StatusInvalid, nil
}

func hashDataEqual(a, b station.CertHashData) bool {
	return strings.EqualFold(string(a.HashAlgorithm), string(b.HashAlgorithm)) &&
		a.SerialNumber == b.SerialNumber &&
		a.IssuerNameHash == b.IssuerNameHash &&
		a.IssuerKeyHash == b.IssuerKeyHash
}
