package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat  = errors.New("invalid token format")
	ErrTokenSig     = errors.New("invalid token signature")
	ErrTokenExp     = errors.New("token expired")
	ErrTokenSubject = errors.New("token subject mismatch")
)

// GenerateMonitorToken signs a token that lets a dashboard subscribe to the
// kiosk event feed until expUnix.
// Format: base64url(subject + "." + exp_unix + "." + hex(hmac_sha256(secret, subject+"."+exp)))
func GenerateMonitorToken(secret, subject string, expUnix int64) string {
	msg := subject + "." + strconv.FormatInt(expUnix, 10)
	raw := msg + "." + sign(secret, msg)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ValidateMonitorToken checks signature, subject and expiry. The token stays
// valid until skewSeconds past its expiry. Returns the embedded subject and exp.
func ValidateMonitorToken(secret, token, expectSubject string, now time.Time, skewSeconds int) (string, int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	// subject may itself contain dots; exp and sig never do
	raw := string(b)
	i := strings.LastIndex(raw, ".")
	if i <= 0 {
		return "", 0, ErrTokenFormat
	}
	msg, sigHex := raw[:i], raw[i+1:]
	j := strings.LastIndex(msg, ".")
	if j < 0 {
		return "", 0, ErrTokenFormat
	}
	subject, expStr := msg[:j], msg[j+1:]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	want, _ := hex.DecodeString(sign(secret, msg))
	if !hmac.Equal(want, got) {
		return "", 0, ErrTokenSig
	}
	if expectSubject != "" && subject != expectSubject {
		return "", 0, ErrTokenSubject
	}
	if now.Unix() > exp+int64(skewSeconds) {
		return "", 0, ErrTokenExp
	}
	return subject, exp, nil
}

func sign(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// FromRequest returns the bearer token, falling back to the token query
// parameter for browser websocket clients that cannot set headers.
func FromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
