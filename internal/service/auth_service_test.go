package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, ttl time.Duration) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return service.NewAuthService("admin", string(hash), "test-secret", ttl, zap.NewNop())
}

func TestIssueToken_RoundTrip(t *testing.T) {
	svc := newAuthService(t, time.Minute)

	resp, err := svc.IssueToken(context.Background(), &domain.TokenRequest{Username: "admin", Password: "s3cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 60 {
		t.Errorf("unexpected response %+v", resp)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Role != "admin" || claims.Subject != "admin" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestIssueToken_BadCredentials(t *testing.T) {
	svc := newAuthService(t, time.Minute)

	for _, req := range []*domain.TokenRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "root", Password: "s3cret"},
	} {
		_, err := svc.IssueToken(context.Background(), req)
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Errorf("user=%s: expected ErrUnauthorized, got %v", req.Username, err)
		}
	}
}

func TestIssueToken_DisabledWithoutHash(t *testing.T) {
	svc := service.NewAuthService("admin", "", "secret", time.Minute, zap.NewNop())

	_, err := svc.IssueToken(context.Background(), &domain.TokenRequest{Username: "admin", Password: ""})
	var unavailable *domain.ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	svc := newAuthService(t, -time.Minute)
	resp, err := svc.IssueToken(context.Background(), &domain.TokenRequest{Username: "admin", Password: "s3cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, token := range map[string]string{
		"expired": resp.AccessToken,
		"garbage": "not.a.token",
		"empty":   "",
	} {
		_, err := svc.ValidateAccessToken(token)
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}
