package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Query parameters owned by the signer.
const (
	ParamExpires   = "exp"
	ParamKeys      = "keys"
	ParamSignature = "sig"
)

var (
	// ErrMissingSignature is returned when a redirect carries no signature.
	ErrMissingSignature = errors.New("redirect signature missing")
	// ErrInvalidSignature is returned when the parameters were altered after signing.
	ErrInvalidSignature = errors.New("invalid redirect signature")
	// ErrExpired is returned when the redirect is older than the signer TTL.
	ErrExpired = errors.New("redirect expired")
)

// SignedURLSigner signs and verifies the query string of payment redirect URLs so that the
// booking details echoed back by the checkout provider cannot be edited by the browser.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign stamps an expiry on values, records the signed key names and adds the signature. The input
// is not modified.
func (s *SignedURLSigner) Sign(values url.Values) (url.Values, time.Time, error) {
	if len(s.secret) == 0 {
		return nil, time.Time{}, fmt.Errorf("signing secret missing")
	}
	signed := cloneValues(values)
	signed.Del(ParamSignature)
	signed.Del(ParamKeys)
	expiresAt := s.now().Add(s.ttl)
	signed.Set(ParamExpires, strconv.FormatInt(expiresAt.Unix(), 10))

	keys := make([]string, 0, len(signed))
	for key := range signed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	signed.Set(ParamKeys, strings.Join(keys, ","))
	signed.Set(ParamSignature, s.signature(signed, keys))
	return signed, expiresAt, nil
}

// Verify checks the signature of values. Only the keys recorded at signing time are covered, so
// parameters appended later by the checkout provider are ignored.
// When allowExpired is true, the timestamp check is skipped.
func (s *SignedURLSigner) Verify(values url.Values, allowExpired bool) (time.Time, error) {
	signature := values.Get(ParamSignature)
	if signature == "" {
		return time.Time{}, ErrMissingSignature
	}
	expUnix, err := strconv.ParseInt(values.Get(ParamExpires), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0)

	listed := values.Get(ParamKeys)
	if listed == "" {
		return time.Time{}, ErrInvalidSignature
	}
	expected := s.signature(values, strings.Split(listed, ","))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return time.Time{}, ErrInvalidSignature
	}
	if !allowExpired && s.now().After(expiresAt) {
		return expiresAt, ErrExpired
	}
	return expiresAt, nil
}

// signature covers the listed keys and the key list itself. url.Values.Encode sorts by key, so
// parameter order in the browser does not matter.
func (s *SignedURLSigner) signature(values url.Values, keys []string) string {
	payload := make(url.Values, len(keys)+1)
	for _, key := range keys {
		if vals, ok := values[key]; ok {
			payload[key] = append([]string(nil), vals...)
		}
	}
	payload[ParamKeys] = append([]string(nil), values[ParamKeys]...)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}
	return out
}
