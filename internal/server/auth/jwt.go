// Package auth issues and verifies the JWTs handed out by the session endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind separates access tokens from refresh tokens signed with the same key.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the registered JWT claims plus the account email and token kind.
// Subject carries the account id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  Kind   `json:"kind"`
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// Issuer signs and verifies HS256 tokens with one process-wide secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs claims with iat = now, exp = now + ttl and a fresh jti.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := i.now()

	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// IssuePair mints an access and a refresh token for account.
func (i *Issuer) IssuePair(account *models.Account) (*models.TokenPair, error) {
	base := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: account.ID},
		Email:            account.Email,
	}

	access := base
	access.Kind = KindAccess
	accessToken, err := i.Issue(access, i.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh := base
	refresh.Kind = KindRefresh
	expiresAt := i.now().Add(i.refreshTTL)
	refreshToken, err := i.Issue(refresh, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature and expiry. Expired tokens yield
// common.ErrTokenExpired, everything else common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// VerifyKind is Verify that also rejects tokens of another kind.
func (i *Issuer) VerifyKind(tokenString string, kind Kind) (*Claims, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
