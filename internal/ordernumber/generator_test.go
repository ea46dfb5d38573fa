package ordernumber

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type checkerFunc func(ctx context.Context, orderNumber string) (bool, error)

func (f checkerFunc) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	return f(ctx, orderNumber)
}

func TestGenerateFormat(t *testing.T) {
	g := NewGenerator(nil,
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithRandom(bytes.NewReader([]byte{10, 11, 12, 13, 14, 15})),
	)
	got, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "ORD-LOYW3V28-ABCDEF" {
		t.Fatalf("unexpected order number %q", got)
	}
	if !Valid(got) {
		t.Fatalf("generated number %q fails validation", got)
	}
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"ORD-LOYW3V28-ABCDEF": true,
		"ORD-123456-7890":     true,
		"ord-abc-def":         false,
		"ORD-ABC":             false,
		"ORD--ABC":            false,
		"ORD-ABC-DEF-GHI":     false,
		"XORD-ABC-DEF":        false,
	}
	for input, want := range cases {
		if got := Valid(input); got != want {
			t.Errorf("Valid(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	calls := 0
	g := NewGenerator(checkerFunc(func(ctx context.Context, n string) (bool, error) {
		calls++
		return calls < 3, nil
	}))
	if _, err := g.Generate(context.Background()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 lookups, got %d", calls)
	}
}

func TestGenerateGivesUpAfterFiveAttempts(t *testing.T) {
	calls := 0
	g := NewGenerator(checkerFunc(func(ctx context.Context, n string) (bool, error) {
		calls++
		return true, nil
	}))
	_, err := g.Generate(context.Background())
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeOrderNumberExhausted) {
		t.Fatalf("expected ORDER_NUMBER_EXHAUSTED code, got %v", err)
	}
	if calls != MaxAttempts {
		t.Fatalf("expected %d lookups, got %d", MaxAttempts, calls)
	}
}

func TestGenerateSurfacesLookupFailure(t *testing.T) {
	g := NewGenerator(checkerFunc(func(ctx context.Context, n string) (bool, error) {
		return false, errors.New("db down")
	}))
	_, err := g.Generate(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGenerateConcurrentlyYieldsDistinctValues(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]struct{}{}
	)
	// The checker doubles as the store: the insert is the lookup.
	g := NewGenerator(checkerFunc(func(ctx context.Context, n string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := seen[n]; ok {
			return true, nil
		}
		seen[n] = struct{}{}
		return false, nil
	}))

	const n = 200
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.Generate(context.Background())
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	distinct := map[string]struct{}{}
	for v := range results {
		if _, dup := distinct[v]; dup {
			t.Fatalf("duplicate order number %s", v)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) != n {
		t.Fatalf("expected %d distinct numbers, got %d", n, len(distinct))
	}
}
