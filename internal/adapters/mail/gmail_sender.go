package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender sends mail through the Gmail API as the authorized user.
//
// Credentials come from an authorized-user token file (client id/secret and
// refresh token). The API client is built on first use, so a missing or bad
// token file surfaces as a Send error rather than a startup failure.
type GmailSender struct {
	tokenPath string
	userID    string

	mu  sync.Mutex
	svc *gmail.Service
}

func NewGmailSender(tokenPath string) *GmailSender {
	return &GmailSender{tokenPath: tokenPath, userID: "me"}
}

func (g *GmailSender) Send(ctx context.Context, to string, subject string, body string) error {
	svc, err := g.service(ctx)
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}

	raw, err := buildMessage(to, subject, body)
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := svc.Users.Messages.Send(g.userID, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: users.messages.send: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("message_id", sent.Id).Msg("mail sent")
	return nil
}

func (g *GmailSender) service(ctx context.Context) (*gmail.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		return g.svc, nil
	}

	ts, err := tokenSourceFromFile(g.tokenPath)
	if err != nil {
		return nil, err
	}

	// The token source outlives the request, so it must not inherit ctx.
	svc, err := gmail.NewService(context.WithoutCancel(ctx), option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	g.svc = svc
	return svc, nil
}

// authorizedUser is the token file written by the Google OAuth installed-app flow.
type authorizedUser struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Expiry       string `json:"expiry"`
}

func tokenSourceFromFile(path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file %q: %w", path, err)
	}

	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("parse token file %q: %w", path, err)
	}
	if au.ClientID == "" || au.RefreshToken == "" {
		return nil, errors.New("token file is missing client_id or refresh_token")
	}

	endpoint := google.Endpoint
	if au.TokenURI != "" {
		endpoint.TokenURL = au.TokenURI
	}

	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	// Without a known expiry the cached access token cannot be trusted, so
	// only the refresh token is kept and the first call refreshes.
	tok := &oauth2.Token{RefreshToken: au.RefreshToken}
	if expiry, ok := parseExpiry(au.Expiry); ok {
		tok.AccessToken = au.Token
		tok.Expiry = expiry
	}

	return cfg.TokenSource(context.Background(), tok), nil
}

// parseExpiry accepts RFC 3339 and the zone-less UTC form some writers emit.
func parseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ensureSingleLine rejects header values that could inject extra headers.
func ensureSingleLine(name, v string) error {
	if strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("%s must not contain line breaks", name)
	}
	return nil
}
