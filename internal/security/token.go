package security

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTokenExpiry = 24 * time.Hour
	tokenSeparator     = "."
	nonceKeyPrefix     = "token_nonce_"
)

type tokenPayload struct {
	Data      json.RawMessage `json:"data"`
	IssuedAt  int64           `json:"issued_at"`
	ExpiresAt int64           `json:"expires_at"`
	Nonce     string          `json:"nonce"`
}

// GenerateToken signs data into an opaque token valid for expiry.
func (s *Service) GenerateToken(data any, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode token data: %w", err)
	}

	issued := s.now().UTC()
	payload, err := json.Marshal(tokenPayload{
		Data:      raw,
		IssuedAt:  issued.Unix(),
		ExpiresAt: issued.Add(expiry).Unix(),
		Nonce:     uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	return encoded + tokenSeparator + s.sign(encoded), nil
}

// InspectToken checks the signature, expiry, nonce and optional expected data
// without consuming the nonce. It returns the embedded data.
func (s *Service) InspectToken(ctx context.Context, token string, expected any) (json.RawMessage, bool) {
	payload, ok := s.verify(token, expected)
	if !ok {
		return nil, false
	}

	var consumed int
	found, err := s.store.Get(ctx, nonceKeyPrefix+payload.Nonce, &consumed)
	if err != nil {
		s.logger.Warn("token nonce lookup failed", zap.Error(err))
		return nil, false
	}
	if found {
		return nil, false
	}
	return payload.Data, true
}

// ValidateToken checks the token like InspectToken and then consumes its
// nonce, so each token validates at most once. Any failure reports false and
// no data.
func (s *Service) ValidateToken(ctx context.Context, token string, expected any) (json.RawMessage, bool) {
	payload, ok := s.verify(token, expected)
	if !ok {
		return nil, false
	}

	ttl := time.Unix(payload.ExpiresAt, 0).Sub(s.now()) + time.Minute
	first, err := s.store.SetNX(ctx, nonceKeyPrefix+payload.Nonce, ttl)
	if err != nil {
		s.logger.Warn("token nonce check failed", zap.Error(err))
		return nil, false
	}
	if !first {
		return nil, false
	}
	return payload.Data, true
}

func (s *Service) verify(token string, expected any) (*tokenPayload, bool) {
	encoded, signature, found := strings.Cut(strings.TrimSpace(token), tokenSeparator)
	if !found || encoded == "" || strings.Contains(signature, tokenSeparator) {
		return nil, false
	}

	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}

	if s.now().Unix() > payload.ExpiresAt {
		return nil, false
	}
	if payload.Nonce == "" {
		return nil, false
	}
	if expected != nil && !sameData(payload.Data, expected) {
		return nil, false
	}
	return &payload, true
}

func (s *Service) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.tokenKey)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}

// sameData compares decoded JSON values so field order and number formatting
// do not matter.
func sameData(raw json.RawMessage, expected any) bool {
	want, err := json.Marshal(expected)
	if err != nil {
		return false
	}
	if bytes.Equal(raw, want) {
		return true
	}

	var got, exp any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	if err := json.Unmarshal(want, &exp); err != nil {
		return false
	}
	return reflect.DeepEqual(got, exp)
}
