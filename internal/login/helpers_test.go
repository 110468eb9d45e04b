package login

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cardinal/internal/account"
	"github.com/roach88/cardinal/internal/flow"
	"github.com/roach88/cardinal/internal/store"
	"github.com/roach88/cardinal/internal/testutil"
)

const (
	testEmail    = "test@mail.com"
	testPassword = "secret1"
)

// fakeRepo is an in-memory Repository. When gate is set, Login signals
// entered and then waits for gate or its context.
type fakeRepo struct {
	mu         sync.Mutex
	passwords  map[string]string
	remembered *account.Account
	getErr     error
	calls      int

	gate    chan struct{}
	entered chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		passwords: map[string]string{testEmail: testPassword},
		entered:   make(chan struct{}, 8),
	}
}

func (r *fakeRepo) GetAccount(context.Context) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return account.Account{}, r.getErr
	}
	if r.remembered == nil {
		return account.Account{}, account.ErrNotFound
	}
	return *r.remembered, nil
}

func (r *fakeRepo) Login(ctx context.Context, email, password string) (account.Account, error) {
	r.mu.Lock()
	r.calls++
	gate := r.gate
	want, ok := r.passwords[email]
	r.mu.Unlock()

	r.entered <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return account.Account{}, ctx.Err()
		}
	}

	if !ok || want != password {
		return account.Account{}, account.ErrInvalidCredentials
	}
	return account.Account{ID: 1, Email: email}, nil
}

func (r *fakeRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// screen is a started login store with its observers.
type screen struct {
	st      *Store
	rec     *testutil.Recorder
	states  *collector[State]
	effects *collector[Effect]
	handles []*flow.Handle
}

func newScreen(t *testing.T, deps Deps) *screen {
	t.Helper()
	ctx := testContext(t)

	rec := testutil.NewRecorder()
	deps.StoreOptions = append(deps.StoreOptions, store.WithRecorder(rec))

	st, err := New(ctx, deps)
	require.NoError(t, err)
	t.Cleanup(st.Dispose)

	s := &screen{st: st, rec: rec, states: &collector[State]{}, effects: &collector[Effect]{}}
	s.handles = append(s.handles,
		st.SubscribeState(ctx, s.states.add),
		st.SubscribeEffects(ctx, s.effects.add),
	)
	return s
}

func (s *screen) dispatch(t *testing.T, actions ...Action) {
	t.Helper()
	for _, a := range actions {
		require.NoError(t, s.st.Dispatch(a))
	}
}

// settle drains the pipelines and waits for the observers to finish.
func (s *screen) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, s.st.Shutdown(testContext(t)))
	for _, h := range s.handles {
		select {
		case <-h.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("observer did not stop")
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func requireEventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}

type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}
