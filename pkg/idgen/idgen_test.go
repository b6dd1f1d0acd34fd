package idgen

import (
	"context"
	"regexp"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
}

func TestNextFormats(t *testing.T) {
	gen := NewWithClock(fixedClock)

	cases := []struct {
		kind    Kind
		pattern string
	}{
		{KindPharmacy, `^PHA-2025-\d{5}$`},
		{KindWholesaler, `^WHO-2025-\d{5}$`},
		{KindProduct, `^PROD-2025-\d{5}$`},
		{KindRequest, `^REQ-2025-[0-9A-F]{4}$`},
		{KindOrder, `^ORD-2025-[0-9A-F]{4}$`},
		{KindAdmin, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`},
	}
	for _, tc := range cases {
		id, err := gen.Next(tc.kind)
		if err != nil {
			t.Fatalf("Next(%s) error: %v", tc.kind, err)
		}
		if !regexp.MustCompile(tc.pattern).MatchString(id) {
			t.Fatalf("Next(%s) = %q does not match %s", tc.kind, id, tc.pattern)
		}
	}
}

func TestNextUnknownKind(t *testing.T) {
	if _, err := New().Next(Kind("NOPE")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestUniqueRetriesOnCollision(t *testing.T) {
	gen := NewWithClock(fixedClock)
	calls := 0
	id, err := gen.Unique(context.Background(), KindRequest, func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("Unique error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 existence checks, got %d", calls)
	}
	if id == "" {
		t.Fatal("expected identifier")
	}
}

func TestUniqueExhaustedIsConflict(t *testing.T) {
	gen := NewWithClock(fixedClock)
	_, err := gen.Unique(context.Background(), KindOrder, func(context.Context, string) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("expected error when every candidate collides")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
