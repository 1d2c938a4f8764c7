// Package session tracks who is signed in on this device. Anonymous users get
// a stable id that survives an upgrade to email/password credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jgoulah/plantlog/internal/localstore"
)

var (
	ErrNoSession              = errors.New("not signed in")
	ErrNotAnonymous           = errors.New("session already has credentials")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrCredentialsUnavailable = errors.New("credential store not configured")
)

// Session identifies the signed-in user
type Session struct {
	UserID    uuid.UUID
	Anonymous bool
	Email     string
}

// Claims is the JWT payload persisted on the device
type Claims struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CredentialStore keeps email/password hashes for upgraded users
type CredentialStore interface {
	SetCredentials(ctx context.Context, userID uuid.UUID, email, passwordHash string) error
	LookupCredentials(ctx context.Context, email string) (uuid.UUID, string, error)
}

// Provider issues, persists and verifies sessions
type Provider struct {
	kv         localstore.KV
	creds      CredentialStore
	signingKey []byte
	logger     *zap.Logger

	mu        sync.Mutex
	listeners []func(*Session)
}

// NewProvider creates a Provider. creds may be nil when no remote store is
// configured; only anonymous sessions are possible then.
func NewProvider(kv localstore.KV, creds CredentialStore, signingKey string, logger *zap.Logger) *Provider {
	return &Provider{
		kv:         kv,
		creds:      creds,
		signingKey: []byte(signingKey),
		logger:     logger.Named("session"),
	}
}

// OnChange registers fn to be called after every sign-in, upgrade or sign-out.
// fn receives nil on sign-out.
func (p *Provider) OnChange(fn func(*Session)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Provider) notify(s *Session) {
	p.mu.Lock()
	listeners := append([]func(*Session){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Current returns the signed-in session, or nil when nobody is signed in.
// An unreadable or tampered token counts as signed out.
func (p *Provider) Current(ctx context.Context) (*Session, error) {
	token, ok, err := p.kv.Get(ctx, localstore.SessionKey)
	if err != nil {
		p.logger.Warn("reading session failed, treating as signed out", zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	s, err := p.parse(token)
	if err != nil {
		p.logger.Warn("discarding invalid session token", zap.Error(err))
		return nil, nil
	}
	return s, nil
}

// SignInAnonymously starts a guest session with a new user id
func (p *Provider) SignInAnonymously(ctx context.Context) (*Session, error) {
	s := &Session{UserID: uuid.New(), Anonymous: true}
	if err := p.store(ctx, s); err != nil {
		return nil, err
	}
	p.logger.Info("signed in anonymously", zap.String("user_id", s.UserID.String()))
	p.notify(s)
	return s, nil
}

// Upgrade attaches credentials to the current anonymous session. The user id
// is kept, so every record already stored under it stays reachable.
func (p *Provider) Upgrade(ctx context.Context, email, password string) (*Session, error) {
	if p.creds == nil {
		return nil, ErrCredentialsUnavailable
	}
	cur, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNoSession
	}
	if !cur.Anonymous {
		return nil, ErrNotAnonymous
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := p.creds.SetCredentials(ctx, cur.UserID, email, string(hash)); err != nil {
		return nil, fmt.Errorf("saving credentials: %w", err)
	}

	s := &Session{UserID: cur.UserID, Email: email}
	if err := p.store(ctx, s); err != nil {
		return nil, err
	}
	p.logger.Info("upgraded anonymous session", zap.String("user_id", s.UserID.String()))
	p.notify(s)
	return s, nil
}

// SignIn starts a session for an existing credentialed user
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if p.creds == nil {
		return nil, ErrCredentialsUnavailable
	}

	email = normalizeEmail(email)
	userID, hash, err := p.creds.LookupCredentials(ctx, email)
	if err != nil {
		p.logger.Debug("credential lookup failed", zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s := &Session{UserID: userID, Email: email}
	if err := p.store(ctx, s); err != nil {
		return nil, err
	}
	p.notify(s)
	return s, nil
}

// SignOut forgets the current session
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.kv.Remove(ctx, localstore.SessionKey); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	p.notify(nil)
	return nil
}

func (p *Provider) store(ctx context.Context, s *Session) error {
	claims := Claims{
		UserID:    s.UserID.String(),
		Anonymous: s.Anonymous,
		Email:     s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  s.UserID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return fmt.Errorf("signing session: %w", err)
	}
	if err := p.kv.Set(ctx, localstore.SessionKey, token); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (p *Provider) parse(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}
	return &Session{UserID: userID, Anonymous: claims.Anonymous, Email: claims.Email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
