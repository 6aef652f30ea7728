package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadToken is the set of signed fields embedded in a report download link.
type DownloadToken struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// DownloadTokenSigner mints and verifies HMAC-signed report download tokens.
// Tokens are self-contained so the download endpoint needs no auth session.
type DownloadTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadTokenSigner constructs a signer with the provided secret and TTL.
func NewDownloadTokenSigner(secret string, ttl time.Duration) *DownloadTokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadTokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign returns a token bound to the report job and its stored file path.
func (s *DownloadTokenSigner) Sign(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("jobID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, "\n")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.mac(encoded), expiresAt, nil
}

// Verify checks the signature and expiry and returns the embedded fields.
func (s *DownloadTokenSigner) Verify(token string) (DownloadToken, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok {
		return DownloadToken{}, fmt.Errorf("invalid token format")
	}
	if !hmac.Equal([]byte(s.mac(encoded)), []byte(signature)) {
		return DownloadToken{}, fmt.Errorf("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return DownloadToken{}, fmt.Errorf("decode token: %w", err)
	}
	fields := strings.SplitN(string(raw), "\n", 3)
	if len(fields) != 3 {
		return DownloadToken{}, fmt.Errorf("invalid token payload")
	}
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return DownloadToken{}, fmt.Errorf("invalid token expiry")
	}

	tok := DownloadToken{
		JobID:     fields[0],
		Path:      fields[2],
		ExpiresAt: time.Unix(expUnix, 0),
	}
	if time.Now().After(tok.ExpiresAt) {
		return DownloadToken{}, fmt.Errorf("token expired")
	}
	return tok, nil
}

func (s *DownloadTokenSigner) mac(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
