package slots

import (
	"strings"
	"sync"
)

const captchaAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CaptchaLocks tracks players with a pending captcha. A locked player may
// neither spin nor leave a seat.
type CaptchaLocks struct {
	mu     sync.Mutex
	active map[string]string
}

func NewCaptchaLocks() *CaptchaLocks {
	return &CaptchaLocks{active: make(map[string]string)}
}

// Lock registers code for userID. It returns false if a captcha is
// already pending.
func (l *CaptchaLocks) Lock(userID, code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[userID]; ok {
		return false
	}
	l.active[userID] = code
	return true
}

func (l *CaptchaLocks) Unlock(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, userID)
}

func (l *CaptchaLocks) Locked(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[userID]
	return ok
}

// Check compares an answer case-insensitively against the pending code.
func (l *CaptchaLocks) Check(userID, answer string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	code, ok := l.active[userID]
	return ok && strings.EqualFold(strings.TrimSpace(answer), code)
}

func newCode(rng Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(captchaAlphabet[rng.Intn(len(captchaAlphabet))])
	}
	return b.String()
}
