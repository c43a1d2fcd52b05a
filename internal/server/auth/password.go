package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// MaxPasswordLength is the longest input bcrypt accepts.
const MaxPasswordLength = 72

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int

	decoyOnce sync.Once
	decoy     []byte
}

// NewHasher returns a Hasher with the given cost. Costs outside the bcrypt
// range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt digest of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. A malformed digest is a mismatch.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// Decoy spends roughly the time of a Verify call and always fails.
// Login calls it for unknown e-mails so response time does not reveal
// whether an account exists.
func (h *Hasher) Decoy(plain string) {
	h.decoyOnce.Do(func() {
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(plain))
}
