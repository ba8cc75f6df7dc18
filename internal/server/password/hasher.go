// Package password hashes and verifies account credentials and holds the
// password policy applied by the request validation stage.
package password

import (
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = bcrypt.DefaultCost

// Hasher is a bcrypt credential hasher. The zero value is not usable; build
// one with NewHasher.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost. Out-of-range costs
// fall back to DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	seed, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy seed: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(seed), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash returns a salted bcrypt hash of plain. Fails for inputs longer
// than 72 bytes.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches hashed. Any malformed input yields false.
func (h *Hasher) Verify(plain, hashed string) bool {
	if plain == "" || hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// VerifyDummy spends the same work as a real Verify and always returns
// false. Used when there is no stored hash to compare against.
func (h *Hasher) VerifyDummy(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
	return false
}
