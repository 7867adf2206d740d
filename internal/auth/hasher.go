package auth

import "golang.org/x/crypto/bcrypt"

// Hasher hashes and verifies passwords with bcrypt. Each call to Hash
// embeds a fresh random salt in the digest, so hashing the same password
// twice yields different digests. The cost is fixed at construction.
type Hasher struct{ cost int }

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plain. It must only be called with a
// plaintext password, never with an existing digest.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt digest and a plain password. Malformed
// digests simply fail the check; Verify never panics or errors.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
