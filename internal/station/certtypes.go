package station

import (
	"context"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
)

// EVCertificateCarrier forwards an ISO 15118 Get15118EVCertificate exiRequest
// to whatever external EV/PKI carrier a deployment has behind it, and
// returns the carrier's exiResponse verbatim. Stations with no carrier
// configured leave this nil and fall back to the spec-sanctioned
// OCSP-unavailable stub.
type EVCertificateCarrier interface {
	Forward(ctx context.Context, req *ocpp201.Get15118EVCertificateRequest) (*ocpp201.Get15118EVCertificateResponse, error)
}

// CertUse enumerates the certificate-use buckets C15 stores certificates
// under, per spec §4.15.
type CertUse string

const (
	CertUseCSMSRoot         CertUse = "CSMSRootCertificate"
	CertUseV2GRoot          CertUse = "V2GRootCertificate"
	CertUseManufacturerRoot CertUse = "ManufacturerRootCertificate"
	CertUseMORoot           CertUse = "MORootCertificate"
)

// CertHashAlgorithm is the digest family used to compute hash-chain fields.
type CertHashAlgorithm string

const (
	CertHashSHA256 CertHashAlgorithm = "SHA256"
	CertHashSHA384 CertHashAlgorithm = "SHA384"
	CertHashSHA512 CertHashAlgorithm = "SHA512"
)

// CertHashData identifies one certificate for delete/verify operations.
type CertHashData struct {
	HashAlgorithm  CertHashAlgorithm
	IssuerNameHash string
	IssuerKeyHash  string
	SerialNumber   string
}

// CertStoreStatus is the unified result vocabulary across Store/Delete/List.
type CertStoreStatus string

const (
	CertAccepted CertStoreStatus = "Accepted"
	CertRejected CertStoreStatus = "Rejected"
	CertFailed   CertStoreStatus = "Failed"
	CertNotFound CertStoreStatus = "NotFound"
	CertInvalid  CertStoreStatus = "Invalid"
)

// CertChain is one installed certificate plus its computed hash chain, as
// GetInstalledCertificateIds reports it.
type CertChain struct {
	Use           CertUse
	HashData      CertHashData
	ChildHashData []CertHashData
}

// CertManager is C15's surface as C8's handlers need it; internal/certs.Manager
// implements it against a per-station directory tree on disk.
type CertManager interface {
	Store(stationID string, use CertUse, pem string) (CertStoreStatus, error)
	Delete(stationID string, hash CertHashData) (CertStoreStatus, error)
	List(stationID string, uses []CertUse) ([]CertChain, error)
}
