package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// OrderNumberGenerator produces human-readable order numbers such as
// ORD-241016-K3Q9ZP. Uniqueness is enforced by the database.
type OrderNumberGenerator struct {
	prefix    string
	suffixLen int
	now       func() time.Time
	random    io.Reader
}

// NewOrderNumberGenerator creates a generator with the given prefix and
// random suffix length
func NewOrderNumberGenerator(prefix string, suffixLen int) *OrderNumberGenerator {
	if suffixLen < 1 {
		suffixLen = 6
	}
	return &OrderNumberGenerator{
		prefix:    prefix,
		suffixLen: suffixLen,
		now:       time.Now,
		random:    rand.Reader,
	}
}

// Next returns a new candidate order number
func (g *OrderNumberGenerator) Next() (string, error) {
	var b strings.Builder
	b.Grow(len(g.prefix) + 8 + g.suffixLen)

	if g.prefix != "" {
		b.WriteString(g.prefix)
		b.WriteByte('-')
	}
	b.WriteString(g.now().UTC().Format("060102"))
	b.WriteByte('-')

	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := 0; i < g.suffixLen; i++ {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		b.WriteByte(orderNumberAlphabet[n.Int64()])
	}

	return b.String(), nil
}
