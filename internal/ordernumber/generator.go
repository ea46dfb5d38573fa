// Package ordernumber allocates the human-readable ORD-... identifiers.
package ordernumber

import (
	"context"
	"regexp"
	"time"

	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/ids"
)

const (
	Prefix = "ORD"

	// MaxAttempts bounds both candidate generation and insert retries.
	MaxAttempts = 5

	randomLen = 6
)

var pattern = regexp.MustCompile(`^ORD-[A-Z0-9]+-[A-Z0-9]+$`)

// ErrGenerationExhausted is returned once MaxAttempts candidates collided.
var ErrGenerationExhausted = pkgerrors.New(pkgerrors.CodeOrderNumberExhausted, "order number generation exhausted")

// ExistenceChecker looks a candidate up in the order store.
type ExistenceChecker interface {
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
}

// Generator produces candidates of the form ORD-<base36 ms>-<6 base36>. The
// store's unique index is the real guard; the lookup only avoids wasting an
// insert on a known collision.
type Generator struct {
	checker     ExistenceChecker
	now         func() time.Time
	random      ids.Source
	maxAttempts int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithRandom(src ids.Source) Option {
	return func(g *Generator) { g.random = src }
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func NewGenerator(checker ExistenceChecker, opts ...Option) *Generator {
	g := &Generator{
		checker:     checker,
		now:         time.Now,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attempts reports the configured attempt budget.
func (g *Generator) Attempts() int {
	return g.maxAttempts
}

// Generate returns a candidate the store does not know yet.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := g.Candidate()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		if g.checker == nil {
			return candidate, nil
		}
		exists, err := g.checker.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrGenerationExhausted
}

// Candidate builds one unchecked order number.
func (g *Generator) Candidate() (string, error) {
	suffix, err := ids.RandomSegment(g.random, randomLen)
	if err != nil {
		return "", err
	}
	return Prefix + "-" + ids.TimeSegment(g.now()) + "-" + suffix, nil
}

// Valid reports whether s has the order number shape accepted by the API.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
