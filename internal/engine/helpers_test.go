package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"round_dao/internal/domain"
	"round_dao/internal/ledger"
)

const admin = "admin-identity"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeLedger answers every transfer with index/err; during runs while the
// engine is suspended in the transfer.
type fakeLedger struct {
	index  uint64
	err    error
	during func()
	calls  []ledger.TransferArgs
	// ctx state observed at call time
	ctxErrs   []error
	deadlines []bool
}

func (l *fakeLedger) Transfer(ctx context.Context, args ledger.TransferArgs) (uint64, error) {
	l.calls = append(l.calls, args)
	_, hasDeadline := ctx.Deadline()
	l.ctxErrs = append(l.ctxErrs, ctx.Err())
	l.deadlines = append(l.deadlines, hasDeadline)
	if l.during != nil {
		l.during()
	}
	return l.index, l.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *fakeLedger) {
	t.Helper()
	clock := newFakeClock()
	l := &fakeLedger{}
	e := New(Options{
		AdminIdentity: admin,
		Ledger:        l,
		Now:           clock.Now,
		Logger:        quietLogger(),
	})
	return e, clock, l
}

func mustCreateUser(t *testing.T, e *Engine, identity string) uint32 {
	t.Helper()
	id, err := e.CreateUser(admin, identity)
	require.NoError(t, err)
	return id
}

func mustPropose(t *testing.T, e *Engine, identity, text string) uint32 {
	t.Helper()
	id, err := e.CreateProposal(identity, domain.Content{Text: text})
	require.NoError(t, err)
	return id
}

func mustUser(t *testing.T, e *Engine, identity string) domain.User {
	t.Helper()
	u, err := e.User(identity)
	require.NoError(t, err)
	return u
}

func points(e *Engine, id uint32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Proposals[id].Points
}

func setPoints(e *Engine, id uint32, p int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Proposals[id].Points = p
}

func depositAddress(owner string) string {
	return ledger.NewAccountIdentifier([]byte(owner), nil).String()
}
