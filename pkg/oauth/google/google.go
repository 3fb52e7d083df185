// Package google implements the Google sign-in flow: authorization URL with
// state and PKCE, code exchange, and id_token verification.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	ProviderName = "google"
	issuerURL    = "https://accounts.google.com"
)

var ErrMissingClaims = errors.New("google id_token missing required claims")

// Identity is what the provider asserts about the user. No account decisions are made here.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// idTokenVerifier turns a raw id_token into an Identity.
type idTokenVerifier interface {
	verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v oidcVerifier) verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}

	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

type Provider struct {
	oauthConfig *oauth2.Config
	verifier    idTokenVerifier
	log         *slog.Logger
}

// New discovers Google's OIDC endpoints. It performs a network call.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	return newProvider(cfg, oidcProvider.Endpoint(), oidcVerifier{verifier: verifier}, log), nil
}

func newProvider(cfg Config, endpoint oauth2.Endpoint, verifier idTokenVerifier, log *slog.Logger) *Provider {
	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
		log:      log,
	}
}

// AuthCodeURL builds the authorization URL for state and the PKCE verifier's S256 challenge.
func (p *Provider) AuthCodeURL(state, codeVerifier string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// Exchange trades the authorization code for tokens and verifies the id_token.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google did not return id_token")
	}

	identity, err := p.verifier.verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, ErrMissingClaims
	}

	p.log.Info("google oidc verified",
		"email_verified", identity.EmailVerified,
		"name_present", identity.Name != "",
	)
	return identity, nil
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}
