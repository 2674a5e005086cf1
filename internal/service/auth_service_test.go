package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"proofchest/internal/backend"
	"proofchest/internal/backend/backendtest"
	"proofchest/internal/models"
	"proofchest/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type authFixture struct {
	svc    *AuthService
	remote *backendtest.Memory
	local  *backend.Local
	kv     *backendtest.KV
}

func newAuthFixture(t *testing.T, fallback config.FallbackConfig) *authFixture {
	t.Helper()
	remote := backendtest.NewMemory()
	store := backendtest.NewKV()
	jwtManager := backendtest.JWTManager()
	local := backend.NewLocal(store, jwtManager, zap.NewNop())
	sel := backend.Selector{Remote: remote, Local: local, FallbackEnabled: fallback.Enabled}
	return &authFixture{
		svc:    NewAuthService(sel, jwtManager, fallback, zap.NewNop()),
		remote: remote,
		local:  local,
		kv:     store,
	}
}

func TestSignUpThenLogin(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{})
	ctx := context.Background()

	signed, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "maria", signed.Identity.Username)
	assert.False(t, signed.Identity.IsAdmin)
	assert.NotEmpty(t, signed.Token)

	logged, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "maria", logged.Identity.Username)
	assert.Equal(t, signed.Identity.ID, logged.Identity.ID)
	assert.False(t, logged.Identity.IsAdmin)
	assert.Equal(t, models.OriginRemote, logged.Identity.Origin)

	resolved, err := f.svc.ResolveCurrentIdentity(ctx, logged.Token)
	require.NoError(t, err)
	assert.Equal(t, logged.Identity, resolved)
}

func TestLoginWrongPasswordFailsWithoutSession(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "maria", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, res)
}

func TestLoginUnknownUser(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	_, err := f.svc.Login(context.Background(), "ghost", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthValidation(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "  ", "x")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.SignUp(ctx, "maria", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignUpDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "maria", "a")
	require.NoError(t, err)
	_, err = f.svc.SignUp(ctx, "maria", "b")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrValidation)
}

type sessionlessBackend struct {
	*backendtest.Memory
}

func (sessionlessBackend) EstablishSession(context.Context, models.User) (string, error) {
	return "", errors.New("session service down")
}

func TestSignUpSessionFailureIsNonFatal(t *testing.T) {
	remote := sessionlessBackend{backendtest.NewMemory()}
	svc := NewAuthService(backend.Selector{Remote: remote}, backendtest.JWTManager(), config.FallbackConfig{}, zap.NewNop())

	res, err := svc.SignUp(context.Background(), "maria", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "maria", res.Identity.Username)
	assert.Empty(t, res.Token)
	assert.False(t, res.Identity.IsFallback())
}

func TestLoginFallsBackWhenBackendUnavailable(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	f.remote.Err = errors.New("dial tcp: connection refused")
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	assert.True(t, first.Identity.IsFallback())
	assert.True(t, strings.HasPrefix(first.Identity.ID, "dev-maria-"))
	assert.False(t, first.Identity.IsAdmin)

	resolved, err := f.svc.ResolveCurrentIdentity(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.Identity.ID, resolved.ID)
	assert.Equal(t, models.OriginFallback, resolved.Origin)

	again, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	assert.Equal(t, first.Identity.ID, again.Identity.ID)

	_, err = f.svc.Login(ctx, "maria", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestSignUpFallsBackWhenBackendUnavailable(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	f.remote.Err = backend.ErrUnavailable

	res, err := f.svc.SignUp(context.Background(), "joao", "123")
	require.NoError(t, err)
	assert.True(t, res.Identity.IsFallback())
	assert.False(t, res.Identity.IsAdmin)
	assert.True(t, f.kv.Has("fallback_user:"+res.Identity.ID))
}

func TestNoFallbackPropagatesBackendFailure(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: false})
	f.remote.Err = errors.New("connection refused")

	_, err := f.svc.Login(context.Background(), "maria", "senha123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, f.kv.Has("fallback_username:maria"))
}

func TestFallbackAdminShortcut(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true, AdminUsername: "admin", AdminPassword: "admin"})
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, FallbackAdminID, res.Identity.ID)
	assert.True(t, res.Identity.IsAdmin)

	resolved, err := f.svc.ResolveCurrentIdentity(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, resolved.IsAdmin)

	// wrong password takes the normal path
	_, err = f.svc.Login(ctx, "admin", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackAdminShortcutNeedsFallback(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: false, AdminUsername: "admin", AdminPassword: "admin"})
	_, err := f.svc.Login(context.Background(), "admin", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogoutEndsRemoteSession(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{})
	ctx := context.Background()

	res, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Identity, res.Token))
	_, err = f.svc.ResolveCurrentIdentity(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRemoteLogoutClearsPersistedFallbackIdentity(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)

	f.remote.Err = backend.ErrUnavailable
	offline, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	require.True(t, offline.Identity.IsFallback())

	f.remote.Err = nil
	online, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	require.False(t, online.Identity.IsFallback())

	require.NoError(t, f.svc.Logout(ctx, online.Identity, online.Token))
	assert.False(t, f.kv.Has("fallback_user:"+offline.Identity.ID))
	assert.True(t, f.kv.Has("fallback_username:maria"))

	_, err = f.svc.ResolveCurrentIdentity(ctx, online.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.ResolveCurrentIdentity(ctx, offline.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutClearsFallbackIdentityButKeepsAccount(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	f.remote.Err = backend.ErrUnavailable
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Identity, res.Token))
	assert.False(t, f.kv.Has("fallback_user:"+res.Identity.ID))
	assert.True(t, f.kv.Has("fallback_username:maria"))

	_, err = f.svc.ResolveCurrentIdentity(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutSwallowsBackendErrors(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{})
	f.remote.Err = backend.ErrUnavailable
	identity := models.Identity{ID: "u-1", Username: "maria", Origin: models.OriginRemote}
	assert.NoError(t, f.svc.Logout(context.Background(), identity, "tok"))
}

func TestResolveRejectsBadTokens(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	ctx := context.Background()

	_, err := f.svc.ResolveCurrentIdentity(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.ResolveCurrentIdentity(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveFallbackTokenWithFallbackDisabled(t *testing.T) {
	on := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	on.remote.Err = backend.ErrUnavailable
	res, err := on.svc.Login(context.Background(), "maria", "x")
	require.NoError(t, err)

	off := NewAuthService(backend.Selector{Remote: on.remote, Local: on.local}, backendtest.JWTManager(), config.FallbackConfig{}, zap.NewNop())
	_, err = off.ResolveCurrentIdentity(context.Background(), res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveRestoresFallbackIdentityWhenRemoteFails(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{Enabled: true})
	ctx := context.Background()

	remote, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)

	f.remote.Err = backend.ErrUnavailable
	_, err = f.svc.ResolveCurrentIdentity(ctx, remote.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated, "nothing persisted locally yet")

	local, err := f.svc.Login(ctx, "maria", "senha123")
	require.NoError(t, err)
	require.True(t, local.Identity.IsFallback())

	restored, err := f.svc.ResolveCurrentIdentity(ctx, remote.Token)
	require.NoError(t, err)
	assert.Equal(t, local.Identity.ID, restored.ID)
	assert.Equal(t, models.OriginFallback, restored.Origin)
	assert.False(t, restored.IsAdmin)
}

func TestResolveDoesNotRestoreWithFallbackDisabled(t *testing.T) {
	f := newAuthFixture(t, config.FallbackConfig{})
	ctx := context.Background()

	res, err := f.svc.SignUp(ctx, "maria", "senha123")
	require.NoError(t, err)

	f.remote.Err = backend.ErrUnavailable
	_, err = f.svc.ResolveCurrentIdentity(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
