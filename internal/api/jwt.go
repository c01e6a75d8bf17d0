package api

import (
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type sessionClaims struct {
	Sub  string `json:"sub"`  // discord user id
	Name string `json:"name"` // discord username
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

var (
	errTokenFormat    = errors.New("invalid token format")
	errTokenSignature = errors.New("invalid signature")
	errTokenExpired   = errors.New("token expired")
)

// Sessions mints and validates HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions uses secret when set; otherwise a random per-process secret,
// which logs everyone out on restart.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, 32)
		if _, err := crand.Read(key); err != nil {
			return nil, errors.New("failed to generate dev session secret")
		}
	}
	return &Sessions{secret: key, ttl: ttl, now: time.Now}, nil
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func b64url(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func (s *Sessions) sign(data string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(data))
	return b64url(mac.Sum(nil))
}

// Mint returns a signed token for userID.
func (s *Sessions) Mint(userID, name string) (string, error) {
	hdr, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	now := s.now().Unix()
	cl, err := json.Marshal(sessionClaims{Sub: userID, Name: name, Iat: now, Exp: now + int64(s.ttl.Seconds())})
	if err != nil {
		return "", err
	}
	unsigned := fmt.Sprintf("%s.%s", b64url(hdr), b64url(cl))
	return unsigned + "." + s.sign(unsigned), nil
}

// Parse validates token and returns its claims.
func (s *Sessions) Parse(token string) (*sessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errTokenFormat
	}
	if !hmac.Equal([]byte(s.sign(parts[0]+"."+parts[1])), []byte(parts[2])) {
		return nil, errTokenSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errTokenFormat
	}
	var claims sessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errTokenFormat
	}
	if s.now().Unix() > claims.Exp {
		return nil, errTokenExpired
	}
	return &claims, nil
}
