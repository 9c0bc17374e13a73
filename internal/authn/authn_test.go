package authn

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, sub string, key []byte) string {
	t.Helper()
	claims := Claims{
		Subject: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type fakeProfiles map[string]Profile

func (f fakeProfiles) FindByToken(playerToken string) (Profile, bool) {
	p, ok := f[playerToken]
	return p, ok
}

func request(accessToken, playerToken string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if accessToken != "" {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: accessToken})
	}
	if playerToken != "" {
		r.AddCookie(&http.Cookie{Name: "player_token", Value: playerToken})
	}
	return r
}

func TestAuthenticateSucceeds(t *testing.T) {
	profiles := fakeProfiles{"tok-1": {PlayerToken: "tok-1", UserID: "user-1"}}
	checker := NewChecker(testKey, profiles)

	access := signToken(t, "user-1", testKey)
	profile, err := checker.Authenticate(request(access, "tok-1"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if profile.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", profile.UserID)
	}
}

func TestAuthenticateMissingAccessToken(t *testing.T) {
	checker := NewChecker(testKey, fakeProfiles{})
	_, err := checker.Authenticate(request("", "tok-1"))
	assertCloseCode(t, err, CloseInvalidToken)
}

func TestAuthenticateMissingPlayerToken(t *testing.T) {
	checker := NewChecker(testKey, fakeProfiles{})
	access := signToken(t, "user-1", testKey)
	_, err := checker.Authenticate(request(access, ""))
	assertCloseCode(t, err, CloseMissingProfile)
}

func TestAuthenticateBadSignature(t *testing.T) {
	checker := NewChecker(testKey, fakeProfiles{})
	access := signToken(t, "user-1", []byte("wrong-key"))
	_, err := checker.Authenticate(request(access, "tok-1"))
	assertCloseCode(t, err, CloseInvalidToken)
}

func TestAuthenticateProfileNotFound(t *testing.T) {
	checker := NewChecker(testKey, fakeProfiles{})
	access := signToken(t, "user-1", testKey)
	_, err := checker.Authenticate(request(access, "unknown-tok"))
	assertCloseCode(t, err, CloseProfileNotFound)
}

func TestAuthenticateProfileUserMismatch(t *testing.T) {
	profiles := fakeProfiles{"tok-1": {PlayerToken: "tok-1", UserID: "someone-else"}}
	checker := NewChecker(testKey, profiles)
	access := signToken(t, "user-1", testKey)
	_, err := checker.Authenticate(request(access, "tok-1"))
	assertCloseCode(t, err, CloseProfileUserMismatch)
}

func assertCloseCode(t *testing.T, err error, want CloseCode) {
	t.Helper()
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if ae.Code != want {
		t.Errorf("close code = %d, want %d", ae.Code, want)
	}
}
