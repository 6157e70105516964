package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.val
	return nil
}

// fakeSequences mimics the sys_sequences upsert, one counter per key.
type fakeSequences struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

func (f *fakeSequences) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	if f.vals == nil {
		f.vals = map[string]int64{}
	}
	key := args[0].(string)
	f.vals[key]++
	return fakeRow{val: f.vals[key]}
}

var march = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestNext_SequentialPerPrefix(t *testing.T) {
	svc := New(&fakeSequences{}).WithClock(func() time.Time { return march })
	ctx := context.Background()

	for _, want := range []string{"SO-2026-00001", "SO-2026-00002"} {
		got, err := svc.Next(ctx, "SO")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := svc.Next(ctx, "RCV")
	require.NoError(t, err)
	assert.Equal(t, "RCV-2026-00001", got)
}

func TestNext_YearRollover(t *testing.T) {
	seq := &fakeSequences{}
	svc := New(seq)
	ctx := context.Background()

	_, err := svc.NextFor(ctx, Yearly("ADJ"), march)
	require.NoError(t, err)

	got, err := svc.NextFor(ctx, Yearly("ADJ"), march.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "ADJ-2027-00001", got)
	assert.Len(t, seq.vals, 2)
}

func TestNext_Error(t *testing.T) {
	svc := New(&fakeSequences{err: errors.New("connection refused")})

	_, err := svc.Next(context.Background(), "RET")
	assert.ErrorContains(t, err, "next RET number")
}

func TestScheme(t *testing.T) {
	never := Scheme{Prefix: "JV", Width: 3}
	assert.Equal(t, "JV-007", never.Format(march, 7))
	assert.Equal(t, "JV", never.Key(march))

	monthly := Scheme{Prefix: "JV", Reset: PeriodMonth}
	assert.Equal(t, "JV_2026_03", monthly.Key(march))
	assert.Equal(t, "JV-2026-00012", monthly.Format(march, 12))
}

func TestParse(t *testing.T) {
	assert.EqualValues(t, 42, Parse("SO-2026-00042"))
	assert.EqualValues(t, 7, Parse("JV-007"))
	assert.EqualValues(t, -1, Parse("garbage"))
	assert.EqualValues(t, -1, Parse("SO-"))
}
