package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
	found bool
	err   error
	calls int
}

func (s *staticTokens) Retrieve(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.token, s.found, s.err
}

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func validRegister() RegisterRequest {
	return RegisterRequest{
		Username:        "a@b.",
		Email:           "a@b.com",
		Password:        "a@b.secret",
		ConfirmPassword: "a@b.secret",
		Profile:         "https://avatars.example.com/u/1",
	}
}

func TestClient_Register(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusCreated, `{"uuid":"u-1","username":"a@b.","email":"a@b.com"}`)
	c, err := New(srv.URL + "/api/v1/")
	require.NoError(t, err)

	account, err := c.Register(context.Background(), validRegister())
	require.NoError(t, err)
	assert.Equal(t, "u-1", account.UUID)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/users/user-signup", got.Path)
	assert.Equal(t, "emailVerified=false", got.Query)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, "a@b.", body["username"])
	assert.Equal(t, "a@b.secret", body["confirmPassword"])
	assert.Equal(t, map[string]any{"addressLine1": "", "addressLine2": "", "road": "", "linkAddress": ""}, body["address"])
}

func TestClient_RegisterConflictReturnsAPIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"status":"BAD_REQUEST","message":"email already exists"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Register(context.Background(), validRegister())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "email already exists", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestClient_EmptySuccessBodyIsZeroValue(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _ := newTestServer(t, status, ``)
			c, err := New(srv.URL)
			require.NoError(t, err)

			account, err := c.Register(context.Background(), validRegister())
			require.NoError(t, err)
			assert.Equal(t, &Account{}, account)

			resp, err := c.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
			require.NoError(t, err)
			assert.Empty(t, resp.AccessToken)
		})
	}
}

func TestClient_MalformedSuccessBodyCarriesStatus(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `<html>ok</html>`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Register(context.Background(), validRegister())
	assert.Equal(t, http.StatusOK, StatusOf(err))
}

func TestClient_RegisterValidation(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	bad := validRegister()
	bad.Email = "not-an-email"
	bad.ConfirmPassword = "different"

	_, err = c.Register(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "Email")
	assert.Contains(t, err.Error(), "ConfirmPassword")
	assert.Empty(t, *reqs, "invalid input must not reach the backend")
}

func TestClient_Login(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"accessToken":"tok123","tokenType":"Bearer"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok123", resp.AccessToken)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/auth/login", (*reqs)[0].Path)
	assert.JSONEq(t, `{"email":"a@b.com","password":"pw"}`, string((*reqs)[0].Body))
}

func TestClient_VerifyEmail(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"message":"verified"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	msg, err := c.VerifyEmail(context.Background(), "abc def")
	require.NoError(t, err)
	assert.Equal(t, "verified", msg.Message)
	assert.Equal(t, "token=abc+def", (*reqs)[0].Query)

	_, err = c.VerifyEmail(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClient_VerifyEmailFailureMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"message":"token expired"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.VerifyEmail(context.Background(), "stale")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token expired", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("not a url")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthorizer_SetsRawTokenHeader(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"content":[]}`)
	tokens := &staticTokens{token: "tok123", found: true}
	c, err := New(srv.URL, WithAuthorizer(tokens, ""))
	require.NoError(t, err)

	_, err = c.ListProducts(context.Background())
	require.NoError(t, err)
	_, err = c.ListProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "tok123", (*reqs)[0].Header.Get("Authorization"))
	assert.Equal(t, 2, tokens.calls, "token is read on every request")
}

func TestAuthorizer_WithScheme(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"content":[]}`)
	c, err := New(srv.URL, WithAuthorizer(&staticTokens{token: "tok123", found: true}, "Bearer"))
	require.NoError(t, err)

	_, err = c.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", (*reqs)[0].Header.Get("Authorization"))
}

func TestAuthorizer_NoHeaderWithoutSession(t *testing.T) {
	cases := map[string]*staticTokens{
		"absent":        {found: false},
		"undecryptable": {err: fmt.Errorf("vault decryption error: message authentication failed")},
	}
	for name, tokens := range cases {
		t.Run(name, func(t *testing.T) {
			srv, reqs := newTestServer(t, http.StatusOK, `{"content":[]}`)
			c, err := New(srv.URL, WithAuthorizer(tokens, ""))
			require.NoError(t, err)

			_, err = c.ListProducts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, (*reqs)[0].Header.Get("Authorization"))
		})
	}
}

func TestAuthorizer_DoesNotMutateCallerRequest(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	rt := NewAuthorizer(nil, &staticTokens{token: "tok123", found: true}, "", nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}
