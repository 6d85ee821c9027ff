package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	SigningMethodHS256 = "HS256"
	SigningMethodRS256 = "RS256"

	defaultAccessTokenLifetime  = 15 * time.Minute
	defaultRefreshTokenLifetime = 7 * 24 * time.Hour
	defaultRefreshTokenBytes    = 64
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	method          jwt.SigningMethod
	signingKey      any
	verificationKey any
	issuer          string
	audience        jwt.ClaimStrings
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	refreshBytes    int
	clock           Clock
	logger          Logger
}

// TokenServiceOption customizes the token service.
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenServiceClock injects the clock used for iat/exp.
func WithTokenServiceClock(clock Clock) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.clock = clock
		}
	}
}

// WithTokenServiceLogger overrides the logger.
func WithTokenServiceLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. For RS256 the signing
// key is a PEM encoded RSA private key, for HS256 it is the shared secret.
func NewTokenService(cfg Config, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	ts := &TokenServiceImpl{
		issuer:          cfg.GetIssuer(),
		audience:        jwt.ClaimStrings(cfg.GetAudience()),
		accessLifetime:  cfg.GetAccessTokenLifetime(),
		refreshLifetime: cfg.GetRefreshTokenLifetime(),
		refreshBytes:    cfg.GetRefreshTokenBytes(),
		clock:           SystemClock{},
		logger:          defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	if ts.accessLifetime <= 0 {
		ts.accessLifetime = defaultAccessTokenLifetime
	}
	if ts.refreshLifetime <= 0 {
		ts.refreshLifetime = defaultRefreshTokenLifetime
	}
	if ts.refreshBytes <= 0 {
		ts.refreshBytes = defaultRefreshTokenBytes
	}

	switch method := strings.ToUpper(strings.TrimSpace(cfg.GetSigningMethod())); method {
	case SigningMethodRS256:
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.GetSigningKey()))
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryValidation, "invalid RSA signing key")
		}
		ts.method = jwt.SigningMethodRS256
		ts.signingKey = key
		ts.verificationKey = &key.PublicKey
	case SigningMethodHS256, "":
		if cfg.GetSigningKey() == "" {
			return nil, errors.New("signing key must not be empty", errors.CategoryValidation)
		}
		ts.method = jwt.SigningMethodHS256
		ts.signingKey = []byte(cfg.GetSigningKey())
		ts.verificationKey = ts.signingKey
	default:
		return nil, errors.New(fmt.Sprintf("unsupported signing method %q", method), errors.CategoryValidation)
	}

	return ts, nil
}

// GenerateAccessToken creates a JWT for the account carrying its claims
func (ts *TokenServiceImpl) GenerateAccessToken(id UserAccountID, claims []Claim) (string, error) {
	now := ts.clock.Now()
	access := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   id.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessLifetime)),
		},
		UID:          id.String(),
		AccountClaim: append([]Claim(nil), claims...),
	}

	return ts.SignClaims(access)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *AccessClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	signed, err := jwt.NewWithClaims(ts.method, claims).SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// GenerateRefreshToken returns a random URL safe token value.
func (ts *TokenServiceImpl) GenerateRefreshToken() (string, error) {
	buf := make([]byte, ts.refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RefreshTokenLifetime is how long a new refresh token stays valid.
func (ts *TokenServiceImpl) RefreshTokenLifetime() time.Duration {
	return ts.refreshLifetime
}

// SigningMethod returns the JWT alg in use.
func (ts *TokenServiceImpl) SigningMethod() string {
	return ts.method.Alg()
}

// VerificationKey returns the key that verifies issued tokens.
func (ts *TokenServiceImpl) VerificationKey() any {
	return ts.verificationKey
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*AccessClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithTimeFunc(ts.clock.Now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		return ts.verificationKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("token service rejected token: %v", err)
		return nil, withMetadata(ErrTokenMalformed, map[string]any{"reason": err.Error()})
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
