// Package authn validates the two cookies a WebSocket connection must
// carry before it is routed to a game: an "access_token" JWT identifying
// the logged-in user, and a "player_token" identifying the profile they
// selected to play as. Issuing tokens, hashing passwords, and storing
// accounts are all external collaborators (spec §1) — this package only
// verifies what arrives on the wire.
package authn

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// CloseCode is one of the WebSocket close codes the auth-guarded endpoint
// uses to reject a connection, per spec §6.
type CloseCode int

const (
	CloseMissingProfile      CloseCode = 4400
	CloseInvalidToken        CloseCode = 4401
	CloseProfileUserMismatch CloseCode = 4403
	CloseProfileNotFound     CloseCode = 4404
)

// Profile is the minimal shape of a player profile the core needs to know
// about: which user owns it. Full profile management (creation, listing,
// deletion) lives in the external account-management REST surface.
type Profile struct {
	PlayerToken string
	UserID      string
}

// ProfileLookup resolves a player_token to the profile it names. It is the
// seam to the external persistence backend (§1); the core only consumes
// it.
type ProfileLookup interface {
	FindByToken(playerToken string) (Profile, bool)
}

// Claims is the JWT payload the access_token cookie carries.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// AuthError pairs a rejection with the WebSocket close code it maps to.
type AuthError struct {
	Code    CloseCode
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Checker validates the two auth cookies against a JWT signing key and a
// profile lookup.
type Checker struct {
	signingKey []byte
	profiles   ProfileLookup
}

// NewChecker builds a Checker. signingKey verifies the access_token's
// HMAC signature; profiles resolves player_token to its owning user.
func NewChecker(signingKey []byte, profiles ProfileLookup) *Checker {
	return &Checker{signingKey: signingKey, profiles: profiles}
}

// Authenticate reads both cookies from r, validates the JWT, resolves the
// profile, and confirms the profile's user_id matches the JWT's sub. On
// any failure it returns an *AuthError carrying the close code the caller
// should use when refusing the WebSocket upgrade.
func (c *Checker) Authenticate(r *http.Request) (Profile, error) {
	accessCookie, err := r.Cookie("access_token")
	if err != nil || accessCookie.Value == "" {
		return Profile{}, &AuthError{Code: CloseInvalidToken, Message: "missing access_token"}
	}
	playerCookie, err := r.Cookie("player_token")
	if err != nil || playerCookie.Value == "" {
		return Profile{}, &AuthError{Code: CloseMissingProfile, Message: "missing player_token"}
	}

	userID, err := c.verifyAccessToken(accessCookie.Value)
	if err != nil {
		return Profile{}, &AuthError{Code: CloseInvalidToken, Message: err.Error()}
	}

	profile, ok := c.profiles.FindByToken(playerCookie.Value)
	if !ok {
		return Profile{}, &AuthError{Code: CloseProfileNotFound, Message: "profile not found"}
	}
	if profile.UserID != userID {
		return Profile{}, &AuthError{Code: CloseProfileUserMismatch, Message: "profile does not belong to user"}
	}
	return profile, nil
}

func (c *Checker) verifyAccessToken(raw string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid access token")
	}
	if claims.Subject == "" {
		return "", errors.New("access token missing sub claim")
	}
	return claims.Subject, nil
}
