package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"tgdrive/internal/domain"
)

// asymmetricMethods are accepted for JWKS keys. Anything else is rejected
// before a key is looked up, which rules out algorithm confusion.
var asymmetricMethods = []string{"RS256", "ES256"}

type tokenVerifier struct {
	keyfunc jwt.Keyfunc
	methods []string
	logger  *slog.Logger
	closeFn func()
}

// NewJWTVerifier creates a verifier that fetches public keys from a JWKS endpoint.
// The JWKS keys are cached and automatically refreshed based on HTTP cache headers.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	v := newTokenVerifier(jwks.Keyfunc, asymmetricMethods, logger)
	v.closeFn = cancel
	return v, nil
}

// NewHMACVerifier creates a verifier for HS256 tokens signed with a shared secret.
// Used in development and by deployments whose identity provider signs with a secret.
func NewHMACVerifier(secret []byte, logger *slog.Logger) (JWTVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 bytes")
	}

	logger.Info("JWT verifier initialized", "method", "HS256")

	return newTokenVerifier(func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, []string{"HS256"}, logger), nil
}

func newTokenVerifier(kf jwt.Keyfunc, methods []string, logger *slog.Logger) *tokenVerifier {
	return &tokenVerifier{keyfunc: kf, methods: methods, logger: logger}
}

// VerifyToken validates a JWT token and extracts its claims.
// Returns domain.ErrUnauthorized if the token is invalid, expired, or has no subject.
func (v *tokenVerifier) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		v.logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close stops the JWKS background refresh, if any.
func (v *tokenVerifier) Close() error {
	if v.closeFn != nil {
		v.closeFn()
	}
	v.logger.Info("JWT verifier closed")
	return nil
}
