package auth

import (
	"context"
	"time"
)

// IdentifierType enumerates the unified identifier type vocabulary from
// spec §4.7, spanning both OCPP 1.6's bare IdTag and 2.0.1's richer
// IdTokenType plus certificate-based identification.
type IdentifierType string

const (
	IdentifierIdTag           IdentifierType = "IdTag"
	IdentifierCentral         IdentifierType = "Central"
	IdentifierLocal           IdentifierType = "Local"
	IdentifierEMAID           IdentifierType = "eMAID"
	IdentifierISO14443        IdentifierType = "ISO14443"
	IdentifierISO15693        IdentifierType = "ISO15693"
	IdentifierKeyCode         IdentifierType = "KeyCode"
	IdentifierMacAddress      IdentifierType = "MacAddress"
	IdentifierCertificate     IdentifierType = "Certificate"
	IdentifierNoAuthorization IdentifierType = "NoAuthorization"
	IdentifierMobileApp       IdentifierType = "MobileApp"
	IdentifierBiometric       IdentifierType = "Biometric"
)

// Context distinguishes why authentication is being evaluated, since the
// OfflineFallback rule only applies to TransactionStop.
type Context string

const (
	ContextTransactionStart Context = "TransactionStart"
	ContextTransactionStop  Context = "TransactionStop"
)

// Identifier is the unified identifier carried through the pipeline.
type Identifier struct {
	Type                IdentifierType
	Value               string
	OCPPVersion         string
	AdditionalInfo      map[string]string
	CertificateHashData *CertificateHashData
}

// CertificateHashData is the subset of OCPP 2.0.1's CertificateHashDataType
// the Certificate strategy needs to verify against installed certificates.
type CertificateHashData struct {
	HashAlgorithm  string
	IssuerNameHash string
	IssuerKeyHash  string
	SerialNumber   string
}

// Verdict is the pipeline's outcome.
type Verdict struct {
	Status Status
	Method Method
}

// RemoteAuthorizer performs the Authorize round-trip to the CSMS; the
// station's session/correlator implements this.
type RemoteAuthorizer interface {
	Authorize(ctx context.Context, id Identifier) (Status, error)
}

// CertificateVerifier checks certificate hash data against installed
// certificates; C15's cert store implements this.
type CertificateVerifier interface {
	VerifyHash(hash CertificateHashData) (Status, error)
}

// Config drives evaluation-policy knobs from spec §4.7.
type Config struct {
	AuthorizationTimeout        time.Duration
	AuthorizationCacheLifetime  time.Duration
	CacheEnabled                bool
	LocalPreAuthorize           bool
	OfflineAuthorizationEnabled bool
}

// Pipeline implements C7: iterate strategies by priority (Local, Remote,
// Certificate), stop at the first non-undefined verdict, fall back to
// OfflineFallback on TransactionStop when nothing else resolved.
type Pipeline struct {
	cfg       Config
	localList *LocalList
	cache     *Cache
	remote    RemoteAuthorizer
	cert      CertificateVerifier
}

func NewPipeline(cfg Config, localList *LocalList, cache *Cache, remote RemoteAuthorizer, cert CertificateVerifier) *Pipeline {
	return &Pipeline{cfg: cfg, localList: localList, cache: cache, remote: remote, cert: cert}
}

// Evaluate runs the full pipeline for one identifier in the given context.
func (p *Pipeline) Evaluate(ctx context.Context, id Identifier, authCtx Context) Verdict {
	var localVerdict *Verdict

	if status, ok := p.localList.Lookup(id.Value); ok {
		v := Verdict{Status: status, Method: MethodLocal}
		localVerdict = &v
		// LocalPreAuthorize=true short-circuits here; otherwise Remote still
		// runs for the start context per spec §4.7.
		if p.cfg.LocalPreAuthorize || authCtx != ContextTransactionStart {
			return v
		}
	}

	if p.cfg.CacheEnabled {
		if status, ok := p.cache.Lookup(id.Value); ok {
			return Verdict{Status: status, Method: MethodRemote}
		}
	}

	if p.remote != nil {
		rctx := ctx
		var cancel context.CancelFunc
		if p.cfg.AuthorizationTimeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, p.cfg.AuthorizationTimeout)
			defer cancel()
		}
		if status, err := p.remote.Authorize(rctx, id); err == nil {
			if status == StatusAccepted && p.cfg.CacheEnabled {
				p.cache.Put(Entry{
					Identifier: id.Value,
					Status:     status,
					Method:     MethodRemote,
					ExpiresAt:  time.Now().Add(p.cfg.AuthorizationCacheLifetime),
				})
			}
			return Verdict{Status: status, Method: MethodRemote}
		}
	}

	if p.cert != nil && id.CertificateHashData != nil {
		if status, err := p.cert.VerifyHash(*id.CertificateHashData); err == nil {
			return Verdict{Status: status, Method: MethodCertificate}
		}
	}

	if localVerdict != nil {
		return *localVerdict
	}

	if p.cfg.OfflineAuthorizationEnabled && authCtx == ContextTransactionStop {
		return Verdict{Status: StatusAccepted, Method: MethodOfflineFallback}
	}

	return Verdict{Status: StatusInvalid, Method: ""}
}
