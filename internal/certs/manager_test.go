package certs_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-simulator/internal/certs"
	"github.com/charging-platform/charge-point-simulator/internal/station"
)

func selfSignedPEM(t *testing.T, commonName string) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestManager_StoreListDelete(t *testing.T) {
	m, err := certs.New(t.TempDir())
	require.NoError(t, err)

	pemText := selfSignedPEM(t, "CSMS Root")
	status, err := m.Store("CP001", station.CertUseCSMSRoot, pemText)
	require.NoError(t, err)
	assert.Equal(t, station.CertAccepted, status)

	chains, err := m.List("CP001", nil)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, station.CertUseCSMSRoot, chains[0].Use)
	assert.Equal(t, station.CertHashSHA256, chains[0].HashData.HashAlgorithm)
	assert.NotEmpty(t, chains[0].HashData.SerialNumber)

	filtered, err := m.List("CP001", []station.CertUse{station.CertUseV2GRoot})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	status, err = m.Delete("CP001", chains[0].HashData)
	require.NoError(t, err)
	assert.Equal(t, station.CertAccepted, status)

	chains, err = m.List("CP001", nil)
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestManager_StoreInvalidPEM(t *testing.T) {
	m, err := certs.New(t.TempDir())
	require.NoError(t, err)

	status, err := m.Store("CP001", station.CertUseV2GRoot, "not a pem")
	require.NoError(t, err)
	assert.Equal(t, station.CertInvalid, status)
}

func TestManager_DeleteNotFound(t *testing.T) {
	m, err := certs.New(t.TempDir())
	require.NoError(t, err)

	status, err := m.Delete("CP001", station.CertHashData{
		HashAlgorithm:  station.CertHashSHA256,
		SerialNumber:   "DEADBEEF",
		IssuerNameHash: "x",
		IssuerKeyHash:  "y",
	})
	require.NoError(t, err)
	assert.Equal(t, station.CertNotFound, status)
}
