package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net/http"
	"slices"
	"strings"

	"connectrpc.com/authn"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Claims are the identity-provider claims orgkeeper relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type jwtVerifier struct {
	publicKey *ecdsa.PublicKey
	parser    *jwt.Parser
}

func newJWTVerifierFromPEM(publicKeyPEM string) (*jwtVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	return &jwtVerifier{
		publicKey: publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *jwtVerifier) verify(tokenStr string) (*Actor, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token invalid")
	}

	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.New("subject is not a valid actor id")
	}

	return &Actor{
		ActorID:       actorID,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
	}, nil
}

// NewJWTAuthFunc returns an authn.AuthFunc that validates Bearer JWTs.
// Requests for /health and any of publicPaths pass through without a token.
// On success the *Actor can be retrieved via ActorFromContext(ctx).
func NewJWTAuthFunc(publicKeyPEM string, publicPaths ...string) (authn.AuthFunc, error) {
	v, err := newJWTVerifierFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req *http.Request) (any, error) {
		if req.URL.Path == "/health" || slices.Contains(publicPaths, req.URL.Path) {
			return nil, nil
		}

		tokenStr, ok := authn.BearerToken(req)
		if !ok {
			return nil, authn.Errorf("missing bearer token")
		}

		actor, err := v.verify(tokenStr)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("JWT verification failed")
			return nil, authn.Errorf("invalid token")
		}

		return actor, nil
	}, nil
}
