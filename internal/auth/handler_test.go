package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handlerFixture(t *testing.T) (*Handler, *TokenService) {
	t.Helper()
	store := newFakeStore()
	service := newTestService(t, store)
	return NewHandler(service), service.tokens
}

func postJSON(handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler(rec, req)
	return rec
}

func TestHandler_RegisterMissingFields(t *testing.T) {
	t.Parallel()

	handler, _ := handlerFixture(t)

	for _, body := range []string{
		`{}`,
		`{"username":"alice"}`,
		`{"password":"secret1"}`,
		`{"username":"","password":"secret1"}`,
		`not json`,
	} {
		rec := postJSON(handler.Register, "/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestHandler_RegisterThenConflict(t *testing.T) {
	t.Parallel()

	handler, tokens := handlerFixture(t)

	rec := postJSON(handler.Register, "/auth/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	identity, ok := tokens.Verify(resp.Token)
	require.True(t, ok, "registration must issue a usable token")
	assert.Equal(t, "alice", identity.Username)

	rec = postJSON(handler.Register, "/auth/register", `{"username":"alice","password":"secret2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()

	handler, tokens := handlerFixture(t)

	rec := postJSON(handler.Register, "/auth/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(handler.Login, "/auth/login", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	identity, ok := tokens.Verify(resp.Token)
	require.True(t, ok)
	assert.Equal(t, "alice", identity.Username)
}

func TestHandler_LoginBadCredentials(t *testing.T) {
	t.Parallel()

	handler, _ := handlerFixture(t)

	rec := postJSON(handler.Register, "/auth/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	wrongPassword := postJSON(handler.Login, "/auth/login", `{"username":"alice","password":"wrong"}`)
	unknownUser := postJSON(handler.Login, "/auth/login", `{"username":"mallory","password":"secret1"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)

	// The response must not leak which of username/password was wrong.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestHandler_Me(t *testing.T) {
	t.Parallel()

	handler, _ := handlerFixture(t)

	rec := postJSON(handler.Register, "/auth/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Username: "alice"}))
	rec = httptest.NewRecorder()
	handler.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "alice", profile.ID)
	assert.Equal(t, "alice", profile.Username)
}

func TestHandler_MeUnknownUser(t *testing.T) {
	t.Parallel()

	handler, _ := handlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Username: "ghost"}))
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_LoginMissingFields(t *testing.T) {
	t.Parallel()

	handler, _ := handlerFixture(t)

	rec := postJSON(handler.Login, "/auth/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
