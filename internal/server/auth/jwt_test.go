package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

func testAccount() *models.Account {
	return &models.Account{ID: "acc-123", Email: "user@example.com"}
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("super-secret"), time.Hour, 24*time.Hour)

	tok, err := iss.Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"}, Email: "a@b.c", Kind: KindAccess}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.AccountID() != "acc-1" || claims.Email != "a@b.c" || claims.Kind != KindAccess {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("jti must be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("exp-iat = %v, want 1h", got)
	}
}

func TestIssuePair(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	iss := NewIssuer([]byte("k"), time.Hour, 7*24*time.Hour)
	iss.now = func() time.Time { return now }

	pair, err := iss.IssuePair(testAccount())
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("access and refresh tokens must differ")
	}
	if !pair.RefreshTokenExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("refresh expiry = %v", pair.RefreshTokenExpiresAt)
	}

	ac, err := iss.VerifyKind(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("access VerifyKind: %v", err)
	}
	rc, err := iss.VerifyKind(pair.RefreshToken, KindRefresh)
	if err != nil {
		t.Fatalf("refresh VerifyKind: %v", err)
	}
	if ac.AccountID() != "acc-123" || rc.AccountID() != "acc-123" || rc.Email != "user@example.com" {
		t.Fatalf("claims do not decode to the account: %+v %+v", ac, rc)
	}
}

func TestIssuePair_SameSecondDiffers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	iss := NewIssuer([]byte("k"), time.Hour, time.Hour)
	iss.now = func() time.Time { return now }

	p1, err := iss.IssuePair(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	p2, err := iss.IssuePair(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	if p1.RefreshToken == p2.RefreshToken {
		t.Fatalf("refresh tokens minted in the same second must differ")
	}
}

func TestVerifyKind_WrongKind(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("k"), time.Hour, time.Hour)
	pair, err := iss.IssuePair(testAccount())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := iss.VerifyKind(pair.AccessToken, KindRefresh); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), time.Hour, time.Hour)

	tok, err := iss.Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}, -1*time.Second)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = iss.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer([]byte("right-secret"), time.Hour, time.Hour).
		Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour, time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("k"), time.Hour, time.Hour)
	tok, err := iss.Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u3"}}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := iss.Verify(tampered); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_OtherAlgorithmRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u4", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewIssuer(secret, time.Hour, time.Hour).Verify(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer([]byte("k"), time.Hour, time.Hour).Verify("not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
