// Package numerator issues gap-free reference numbers such as SO-2026-00042
// for operations that arrive without a caller-supplied reference.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Period controls when a counter starts again from 1.
type Period string

const (
	PeriodNever Period = ""
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
)

const defaultWidth = 5

// Scheme describes how one prefix is counted and printed.
type Scheme struct {
	Prefix string
	Reset  Period
	Width  int
}

// Yearly is the scheme used for all ledger documents: PREFIX-YYYY-NNNNN.
func Yearly(prefix string) Scheme {
	return Scheme{Prefix: prefix, Reset: PeriodYear, Width: defaultWidth}
}

// Key returns the sys_sequences row that backs s at time at.
func (s Scheme) Key(at time.Time) string {
	switch s.Reset {
	case PeriodYear:
		return s.Prefix + "_" + at.Format("2006")
	case PeriodMonth:
		return s.Prefix + "_" + at.Format("2006_01")
	default:
		return s.Prefix
	}
}

// Format prints counter n. The year is shown whenever the counter resets.
func (s Scheme) Format(at time.Time, n int64) string {
	width := s.Width
	if width <= 0 {
		width = defaultWidth
	}
	if s.Reset == PeriodNever {
		return fmt.Sprintf("%s-%0*d", s.Prefix, width, n)
	}
	return fmt.Sprintf("%s-%s-%0*d", s.Prefix, at.Format("2006"), width, n)
}

// Parse returns the counter part of a formatted number, or -1.
func Parse(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	n, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Querier is satisfied by pgx pools and transactions.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierResolver returns the querier bound to ctx: the open transaction or the pool.
type QuerierResolver func(ctx context.Context) Querier

const nextSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

// Service allocates numbers from sys_sequences. Allocation runs in the
// caller's transaction, so a rolled-back posting releases its number.
type Service struct {
	resolve QuerierResolver
	now     func() time.Time
}

// New binds the service to a single querier.
func New(q Querier) *Service {
	return NewWithResolver(func(context.Context) Querier { return q })
}

// NewWithResolver picks the querier per call.
func NewWithResolver(resolve QuerierResolver) *Service {
	return &Service{resolve: resolve, now: time.Now}
}

// WithClock overrides the clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Next allocates the next yearly number for prefix.
func (s *Service) Next(ctx context.Context, prefix string) (string, error) {
	return s.NextFor(ctx, Yearly(prefix), s.now().UTC())
}

// NextFor allocates the next number of scheme at time at.
func (s *Service) NextFor(ctx context.Context, scheme Scheme, at time.Time) (string, error) {
	var n int64
	if err := s.resolve(ctx).QueryRow(ctx, nextSQL, scheme.Key(at)).Scan(&n); err != nil {
		return "", fmt.Errorf("next %s number: %w", scheme.Prefix, err)
	}
	return scheme.Format(at, n), nil
}
