// Package session answers which dealer is signed in.
package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

// Session is the session collaborator.
type Session interface {
	CurrentDealerID() (string, bool)
}

// Static is a fixed dealer id; empty means signed out.
type Static string

func (s Static) CurrentDealerID() (string, bool) {
	id := strings.TrimSpace(string(s))
	return id, id != ""
}

// Token is a session derived from a Supabase access token. The dealer is
// the token's subject.
type Token struct {
	dealerID string
	err      error
}

// FromToken verifies an HS256 token against secret. An invalid token yields
// a signed-out session whose Err explains why.
func FromToken(tokenString, secret string) *Token {
	id, err := parseSubject(tokenString, secret)
	return &Token{dealerID: id, err: err}
}

func (t *Token) CurrentDealerID() (string, bool) {
	return t.dealerID, t.err == nil && t.dealerID != ""
}

func (t *Token) Err() error { return t.err }

func parseSubject(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", errors.Wrap(err, "invalid session token")
	}
	if !token.Valid {
		return "", errors.New("invalid session token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("session token has no subject")
	}
	return sub, nil
}

// FromEnv prefers SESSION_TOKEN over DEALER_ID.
func FromEnv(env *config.Env) Session {
	if env.SessionToken != "" {
		return FromToken(env.SessionToken, env.SessionJWTSecret)
	}
	return Static(env.DealerID)
}
