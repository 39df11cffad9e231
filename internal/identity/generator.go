package identity

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"

	// PasswordAlphabet is every character a generated password may contain.
	PasswordAlphabet = lowerChars + upperChars + digitChars + specialChars

	usernameLetters   = 5
	usernameSuffixMin = 1000
	usernameSuffixMax = 9999
	passwordLength    = 10
)

// Generator produces random identity data. It makes no uniqueness or
// character-class guarantees.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator seeded from the clock.
func New() *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates a generator drawing from src.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate draws a full identity from the two pools.
func (g *Generator) Generate(first, last Pool) (Identity, error) {
	firstName, err := g.PickName(first)
	if err != nil {
		return Identity{}, err
	}
	lastName, err := g.PickName(last)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		FirstName: firstName,
		LastName:  lastName,
		Username:  g.Username(),
		Password:  g.Password(),
	}, nil
}

// PickName returns a uniformly random element of pool.
func (g *Generator) PickName(pool Pool) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	return pool[g.intn(len(pool))], nil
}

// Username returns five lowercase letters followed by a number in [1000, 9999].
func (g *Generator) Username() string {
	buf := make([]byte, 0, usernameLetters+4)
	for range usernameLetters {
		buf = append(buf, lowerChars[g.intn(len(lowerChars))])
	}
	suffix := usernameSuffixMin + g.intn(usernameSuffixMax-usernameSuffixMin+1)
	return string(strconv.AppendInt(buf, int64(suffix), 10))
}

// Password returns ten characters sampled uniformly from PasswordAlphabet.
func (g *Generator) Password() string {
	buf := make([]byte, passwordLength)
	for i := range buf {
		buf[i] = PasswordAlphabet[g.intn(len(PasswordAlphabet))]
	}
	return string(buf)
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}
