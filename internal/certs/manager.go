// Package certs implements C15: per-station X.509 certificate storage for
// the four certificate-use buckets OCPP 2.0.1 security defines. It satisfies
// station.CertManager.
package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charging-platform/charge-point-simulator/internal/station"
)

// Manager stores certificates under <baseDir>/<stationID>/<use>/<serial>.pem,
// one scoped mutex per station directory — the same per-key-scoped-lock
// discipline the configuration store uses for its write-temp-then-rename path.
type Manager struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Manager rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("certs: create base dir: %w", err)
	}
	return &Manager{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (m *Manager) lockFor(stationID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[stationID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[stationID] = l
	}
	return l
}

func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func (m *Manager) stationDir(stationID string) string {
	return filepath.Join(m.baseDir, sanitize(stationID))
}

// Store validates pem, parses it as X.509, and writes it under the
// use-scoped directory keyed by its computed serial number. Invalid PEM
// (no PEM block, or a block that isn't a certificate) yields Invalid per
// spec §4.15; a structurally valid but unparsable body is still accepted
// using the fallback hash-chain formula below.
func (m *Manager) Store(stationID string, use station.CertUse, pemText string) (station.CertStoreStatus, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil || block.Type != "CERTIFICATE" {
		return station.CertInvalid, nil
	}

	chain := hashChain(block.Bytes, []byte(pemText))

	lock := m.lockFor(stationID)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(m.stationDir(stationID), string(use))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return station.CertFailed, fmt.Errorf("certs: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, chain.SerialNumber+".pem")
	tmp, err := os.CreateTemp(dir, ".cert-*.tmp")
	if err != nil {
		return station.CertFailed, fmt.Errorf("certs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(pemText); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return station.CertFailed, fmt.Errorf("certs: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return station.CertFailed, fmt.Errorf("certs: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return station.CertFailed, fmt.Errorf("certs: rename into place: %w", err)
	}

	return station.CertAccepted, nil
}

// Delete removes the certificate matching hash across every use bucket,
// per spec §4.15's match on the full hash tuple.
func (m *Manager) Delete(stationID string, hash station.CertHashData) (station.CertStoreStatus, error) {
	lock := m.lockFor(stationID)
	lock.Lock()
	defer lock.Unlock()

	dir := m.stationDir(stationID)
	uses, err := listUseDirs(dir)
	if err != nil {
		return station.CertNotFound, nil
	}

	for _, use := range uses {
		useDir := filepath.Join(dir, use)
		entries, err := os.ReadDir(useDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".pem") {
				continue
			}
			path := filepath.Join(useDir, e.Name())
			raw, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			block, _ := pem.Decode(raw)
			if block == nil {
				continue
			}
			chain := hashChain(block.Bytes, raw)
			if chain == hash {
				if err := os.Remove(path); err != nil {
					return station.CertFailed, fmt.Errorf("certs: remove %s: %w", path, err)
				}
				return station.CertAccepted, nil
			}
		}
	}
	return station.CertNotFound, nil
}

// List reports every installed certificate, optionally filtered to the
// given use buckets, with its computed hash chain.
func (m *Manager) List(stationID string, uses []station.CertUse) ([]station.CertChain, error) {
	lock := m.lockFor(stationID)
	lock.Lock()
	defer lock.Unlock()

	dir := m.stationDir(stationID)
	allUses, err := listUseDirs(dir)
	if err != nil {
		return nil, nil
	}

	wanted := make(map[string]bool, len(uses))
	for _, u := range uses {
		wanted[string(u)] = true
	}

	var out []station.CertChain
	for _, use := range allUses {
		if len(uses) > 0 && !wanted[use] {
			continue
		}
		useDir := filepath.Join(dir, use)
		entries, err := os.ReadDir(useDir)
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".pem") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(useDir, e.Name()))
			if err != nil {
				continue
			}
			block, _ := pem.Decode(raw)
			if block == nil {
				continue
			}
			out = append(out, station.CertChain{
				Use:      station.CertUse(use),
				HashData: hashChain(block.Bytes, raw),
			})
		}
	}
	return out, nil
}

func listUseDirs(stationDir string) ([]string, error) {
	entries, err := os.ReadDir(stationDir)
	if err != nil {
		return nil, err
	}
	var uses []string
	for _, e := range entries {
		if e.IsDir() {
			uses = append(uses, e.Name())
		}
	}
	return uses, nil
}

// hashChain computes the spec §4.15 hash-chain fields for one certificate.
// When the DER body parses as X.509, issuerNameHash/issuerKeyHash are taken
// from the issuer DN and the SPKI DER; otherwise a deterministic fallback
// hashes the raw decoded body so Store never has to reject a structurally
// valid PEM block it merely can't fully parse.
func hashChain(der []byte, pemText []byte) station.CertHashData {
	algo := station.CertHashSHA256
	h := func() hash.Hash { return sha256.New() }

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		body := der
		limit := len(body)
		if limit > 64 {
			limit = 64
		}
		return station.CertHashData{
			HashAlgorithm:  algo,
			IssuerKeyHash:  digestHex(h(), body),
			IssuerNameHash: digestHex(h(), body[:limit]),
			SerialNumber:   strings.ToUpper(hex.EncodeToString(sha256Sum(pemText))[:16]),
		}
	}

	return station.CertHashData{
		HashAlgorithm:  algo,
		IssuerNameHash: digestHex(h(), []byte(cert.RawIssuer)),
		IssuerKeyHash:  digestHex(h(), cert.RawSubjectPublicKeyInfo),
		SerialNumber:   cert.SerialNumber.String(),
	}
}

func digestHex(h hash.Hash, data []byte) string {
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
