package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCSRFAction = "fitting_request_nonce"
	csrfTick          = 12 * time.Hour
	csrfTokenLength   = 20
)

// GenerateCSRF returns an anti-forgery token bound to action. A token stays
// valid for the current and the previous twelve hour tick.
func (s *Service) GenerateCSRF(action string) string {
	return s.csrfToken(action, s.csrfTickAt(s.now()))
}

func (s *Service) ValidateCSRF(token, action string) bool {
	token = strings.TrimSpace(token)
	if len(token) != csrfTokenLength {
		return false
	}
	tick := s.csrfTickAt(s.now())
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(s.csrfToken(action, t)), []byte(token)) {
			return true
		}
	}
	return false
}

func (s *Service) csrfTickAt(t time.Time) int64 {
	return t.Unix() / int64(csrfTick/time.Second)
}

func (s *Service) csrfToken(action string, tick int64) string {
	if action == "" {
		action = DefaultCSRFAction
	}
	mac := hmac.New(sha256.New, s.csrfKey)
	mac.Write([]byte(action))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:csrfTokenLength]
}
