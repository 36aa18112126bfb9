package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.pilab.hu/storefront/log"
	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"
)

var (
	GitHubUserInfoEndpoint   = "https://api.github.com/user"
	GitHubUserEmailsEndpoint = "https://api.github.com/user/emails"
)

const (
	DefaultLoginTimeout = 30 * time.Second
	callbackPath        = "/callback"
)

// Opener presents the authorization URL to the user, typically by opening a
// browser or printing it.
type Opener func(ctx context.Context, authURL string) error

// GitHubConfig configures the GitHub OAuth application.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// CallbackAddr is the loopback host:port the consent redirect lands on.
	// Port 0 picks a free port.
	CallbackAddr string
	Timeout      time.Duration
	// Endpoint overrides the GitHub authorize and token URLs.
	Endpoint oauth2.Endpoint
}

// GitHubProvider implements Provider with the GitHub OAuth web flow and a
// loopback callback server.
type GitHubProvider struct {
	cfg    GitHubConfig
	open   Opener
	feed   *Feed
	logger log.Logger

	// loginMu allows a single consent flow at a time; the callback address
	// is fixed.
	loginMu sync.Mutex
}

// NewGitHubProvider validates cfg and fills in the scopes needed to read the
// profile and the primary email.
func NewGitHubProvider(cfg GitHubConfig, open Opener, logger log.Logger) (*GitHubProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrProviderMisconfigured)
	}
	if open == nil {
		return nil, fmt.Errorf("%w: no opener", ErrProviderMisconfigured)
	}
	if cfg.CallbackAddr == "" {
		cfg.CallbackAddr = "127.0.0.1:0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLoginTimeout
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = githubOAuth2.Endpoint
	}
	for _, scope := range []string{"read:user", "user:email"} {
		if !slices.Contains(cfg.Scopes, scope) {
			cfg.Scopes = append(cfg.Scopes, scope)
		}
	}
	if logger == nil {
		logger = log.Nop()
	}

	return &GitHubProvider{
		cfg:    cfg,
		open:   open,
		feed:   NewFeed(),
		logger: logger.With(log.Fields{"component": "identity", "provider": "github"}),
	}, nil
}

type callbackResult struct {
	code string
	err  error
}

// Login implements Provider.
func (g *GitHubProvider) Login(ctx context.Context) (*Identity, error) {
	g.loginMu.Lock()
	defer g.loginMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	ln, err := net.Listen("tcp", g.cfg.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: callback listener: %v", ErrLoginFailed, err)
	}

	results := make(chan callbackResult, 1)
	srv := g.callbackServer(ln, state, results)
	go func() {
		if err := srv.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Warn(ctx, "Callback server stopped", log.Fields{"error": err.Error()})
		}
	}()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	conf := g.oauthConfig("http://" + ln.Addr().String() + callbackPath)
	if err := g.open(ctx, conf.AuthCodeURL(state)); err != nil {
		return nil, fmt.Errorf("%w: open consent page: %v", ErrLoginFailed, err)
	}
	g.logger.Debug(ctx, "Waiting for provider consent", log.Fields{"callback": ln.Addr().String()})

	var code string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		code = res.code
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: code exchange: %v", ErrLoginFailed, err)
	}

	id, err := g.fetchIdentity(ctx, conf.Client(ctx, token))
	if err != nil {
		return nil, err
	}

	g.logger.Info(ctx, "Provider login completed", log.Fields{"provider_user_id": id.ProviderUserID})
	g.feed.Publish(Event{Kind: Present, Identity: id})
	return id, nil
}

// SignOut implements Provider. GitHub has no session endpoint for OAuth apps,
// so signing out forgets the local provider session.
func (g *GitHubProvider) SignOut(ctx context.Context) error {
	if g.feed.Current().Kind == Present {
		g.logger.Info(ctx, "Provider session ended")
	}
	g.feed.Publish(Event{Kind: Absent})
	return nil
}

// Subscribe implements Provider.
func (g *GitHubProvider) Subscribe(fn func(Event)) func() {
	return g.feed.Subscribe(fn)
}

func (g *GitHubProvider) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       g.cfg.Scopes,
		Endpoint:     g.cfg.Endpoint,
	}
}

func (g *GitHubProvider) callbackServer(ln net.Listener, state string, results chan<- callbackResult) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = ln

	send := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	e.GET(callbackPath, func(c echo.Context) error {
		if reason := c.QueryParam("error"); reason != "" {
			if reason == "access_denied" {
				send(callbackResult{err: ErrCancelled})
			} else {
				send(callbackResult{err: fmt.Errorf("%w: %s: %s", ErrLoginFailed, reason, c.QueryParam("error_description"))})
			}
			return c.String(http.StatusOK, "Login was not completed. You can close this window.")
		}
		if c.QueryParam("state") != state {
			// Not ours; keep waiting for the real redirect.
			return c.String(http.StatusBadRequest, ErrInvalidAuthState.Error())
		}
		code := c.QueryParam("code")
		if code == "" {
			send(callbackResult{err: fmt.Errorf("%w: callback without code", ErrLoginFailed)})
			return c.String(http.StatusBadRequest, "missing code")
		}
		send(callbackResult{code: code})
		return c.String(http.StatusOK, "Login complete. You can close this window.")
	})
	return e
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// fetchIdentity reads the profile and resolves the email: primary verified,
// then any verified, then the public profile email.
func (g *GitHubProvider) fetchIdentity(ctx context.Context, client *http.Client) (*Identity, error) {
	var user githubUser
	if err := getJSON(ctx, client, GitHubUserInfoEndpoint, &user); err != nil {
		return nil, fmt.Errorf("%w: user info: %v", ErrLoginFailed, err)
	}

	email := ""
	var emails []githubEmail
	if err := getJSON(ctx, client, GitHubUserEmailsEndpoint, &emails); err != nil {
		g.logger.Warn(ctx, "Failed to fetch user emails", log.Fields{"error": err.Error()})
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		for _, e := range emails {
			if e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		email = user.Email
	}
	if email == "" {
		return nil, ErrNoVerifiedEmail
	}

	return &Identity{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		Username:       user.Login,
		Name:           user.Name,
		PhotoURL:       user.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

var _ Provider = (*GitHubProvider)(nil)
