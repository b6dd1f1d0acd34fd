// Package idgen issues the human-readable identifiers used for accounts,
// products, requests and orders.
package idgen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

// Kind selects the identifier family.
type Kind string

const (
	KindPharmacy   Kind = "PHA"
	KindWholesaler Kind = "WHO"
	KindProduct    Kind = "PROD"
	KindRequest    Kind = "REQ"
	KindOrder      Kind = "ORD"
	KindAdmin      Kind = "ADMIN"
)

const defaultMaxAttempts = 8

var digitSpace = big.NewInt(100000)

// ExistsFunc reports whether a candidate identifier is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator mints identifiers stamped with the current year.
type Generator struct {
	now         func() time.Time
	maxAttempts int
}

// New returns a generator using the wall clock.
func New() *Generator {
	return &Generator{now: time.Now, maxAttempts: defaultMaxAttempts}
}

// NewWithClock pins the clock, mainly for tests.
func NewWithClock(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now, maxAttempts: defaultMaxAttempts}
}

// Next returns one candidate identifier without checking for collisions.
//
// PHA, WHO and PROD carry five zero padded digits, REQ and ORD four uppercase
// hex characters. Admin identifiers are random UUIDs.
func (g *Generator) Next(kind Kind) (string, error) {
	year := g.now().UTC().Year()
	switch kind {
	case KindPharmacy, KindWholesaler, KindProduct:
		n, err := rand.Int(rand.Reader, digitSpace)
		if err != nil {
			return "", fmt.Errorf("generate %s id: %w", kind, err)
		}
		return fmt.Sprintf("%s-%d-%05d", kind, year, n.Int64()), nil
	case KindRequest, KindOrder:
		buf := make([]byte, 2)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate %s id: %w", kind, err)
		}
		return fmt.Sprintf("%s-%d-%s", kind, year, strings.ToUpper(hex.EncodeToString(buf))), nil
	case KindAdmin:
		return uuid.NewString(), nil
	default:
		return "", fmt.Errorf("unknown id kind %q", kind)
	}
}

// Unique draws candidates until exists reports a free one. Running out of
// attempts is reported as a conflict.
func (g *Generator) Unique(ctx context.Context, kind Kind, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.Next(kind)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate identifier")
		}
		if exists == nil {
			return candidate, nil
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check identifier")
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("could not allocate a unique %s identifier", kind))
}
