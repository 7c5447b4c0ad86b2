package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRemote struct {
	status Status
	err    error
	called bool
}

func (f *fakeRemote) Authorize(ctx context.Context, id Identifier) (Status, error) {
	f.called = true
	return f.status, f.err
}

type fakeCertVerifier struct {
	status Status
	err    error
}

func (f *fakeCertVerifier) VerifyHash(hash CertificateHashData) (Status, error) {
	return f.status, f.err
}

func TestPipeline_LocalPreAuthorizeShortCircuitsRemote(t *testing.T) {
	local := NewLocalList()
	_ = local.Apply(UpdateFull, 1, []ListEntry{{Identifier: "TAG1", Status: StatusAccepted}}, nil)
	remote := &fakeRemote{status: StatusBlocked}

	p := NewPipeline(Config{LocalPreAuthorize: true}, local, NewCache(10), remote, nil)
	v := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)

	assert.Equal(t, StatusAccepted, v.Status)
	assert.Equal(t, MethodLocal, v.Method)
	assert.False(t, remote.called, "LocalPreAuthorize must short-circuit Remote")
}

func TestPipeline_LocalMatchStillConsultsRemoteOnStartWhenNotPreAuthorize(t *testing.T) {
	local := NewLocalList()
	_ = local.Apply(UpdateFull, 1, []ListEntry{{Identifier: "TAG1", Status: StatusAccepted}}, nil)
	remote := &fakeRemote{status: StatusAccepted}

	p := NewPipeline(Config{LocalPreAuthorize: false}, local, NewCache(10), remote, nil)
	v := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)

	assert.True(t, remote.called)
	assert.Equal(t, MethodRemote, v.Method)
	assert.Equal(t, StatusAccepted, v.Status)
}

func TestPipeline_LocalMatchIsFinalOnStopContext(t *testing.T) {
	local := NewLocalList()
	_ = local.Apply(UpdateFull, 1, []ListEntry{{Identifier: "TAG1", Status: StatusBlocked}}, nil)
	remote := &fakeRemote{status: StatusAccepted}

	p := NewPipeline(Config{}, local, NewCache(10), remote, nil)
	v := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStop)

	assert.Equal(t, StatusBlocked, v.Status)
	assert.Equal(t, MethodLocal, v.Method)
	assert.False(t, remote.called, "a non-start context resolves from Local without consulting Remote")
}

func TestPipeline_CacheHitShortCircuitsRemote(t *testing.T) {
	local := NewLocalList()
	cache := NewCache(10)
	cache.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, ExpiresAt: time.Now().Add(time.Hour)})
	remote := &fakeRemote{status: StatusBlocked}

	p := NewPipeline(Config{CacheEnabled: true}, local, cache, remote, nil)
	v := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)

	assert.Equal(t, StatusAccepted, v.Status)
	assert.False(t, remote.called)
}

func TestPipeline_RemoteAcceptedIsCachedWhenEnabled(t *testing.T) {
	local := NewLocalList()
	cache := NewCache(10)
	remote := &fakeRemote{status: StatusAccepted}

	p := NewPipeline(Config{CacheEnabled: true, AuthorizationCacheLifetime: time.Hour}, local, cache, remote, nil)
	p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)

	status, found := cache.Lookup("TAG1")
	assert.True(t, found)
	assert.Equal(t, StatusAccepted, status)
}

func TestPipeline_RemoteRejectedIsNotCached(t *testing.T) {
	local := NewLocalList()
	cache := NewCache(10)
	remote := &fakeRemote{status: StatusBlocked}

	p := NewPipeline(Config{CacheEnabled: true}, local, cache, remote, nil)
	p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)

	_, found := cache.Lookup("TAG1")
	assert.False(t, found)
}

func TestPipeline_CertificateStrategyUsedWhenRemoteErrors(t *testing.T) {
	local := NewLocalList()
	remote := &fakeRemote{err: errors.New("timeout")}
	cert := &fakeCertVerifier{status: StatusAccepted}

	p := NewPipeline(Config{}, local, NewCache(10), remote, cert)
	id := Identifier{Value: "TAG1", CertificateHashData: &CertificateHashData{SerialNumber: "abc"}}
	v := p.Evaluate(context.Background(), id, ContextTransactionStart)

	assert.Equal(t, StatusAccepted, v.Status)
	assert.Equal(t, MethodCertificate, v.Method)
}

func TestPipeline_OfflineFallbackOnlyAppliesToStop(t *testing.T) {
	local := NewLocalList()
	remote := &fakeRemote{err: errors.New("offline")}

	p := NewPipeline(Config{OfflineAuthorizationEnabled: true}, local, NewCache(10), remote, nil)

	stopVerdict := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStop)
	assert.Equal(t, StatusAccepted, stopVerdict.Status)
	assert.Equal(t, MethodOfflineFallback, stopVerdict.Method)

	startVerdict := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)
	assert.Equal(t, StatusInvalid, startVerdict.Status)
}

func TestPipeline_NoStrategyResolvesToInvalid(t *testing.T) {
	p := NewPipeline(Config{}, NewLocalList(), NewCache(10), nil, nil)
	v := p.Evaluate(context.Background(), Identifier{Value: "TAG1"}, ContextTransactionStart)
	assert.Equal(t, StatusInvalid, v.Status)
}
