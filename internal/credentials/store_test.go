package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pribylovaa/research-gateway/internal/storage"
	"github.com/stretchr/testify/require"
)

// memPersister — in-memory storage.Persister с журналом операций.
type memPersister struct {
	mu      sync.Mutex
	data    []byte
	ops     []string
	saveErr error
}

func (p *memPersister) Load(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), p.data...), nil
}

func (p *memPersister) Save(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "save")
	if p.saveErr != nil {
		return p.saveErr
	}
	p.data = append([]byte(nil), data...)
	return nil
}

func (p *memPersister) Delete(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "delete")
	p.data = nil
	return nil
}

func (p *memPersister) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *memPersister) stored() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.data...)
}

// gatedPersister — memPersister, у которого Save ждёт release.
type gatedPersister struct {
	memPersister
	started chan struct{}
	release chan struct{}
}

func newGatedPersister() *gatedPersister {
	return &gatedPersister{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (p *gatedPersister) Save(ctx context.Context, data []byte) error {
	p.started <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.memPersister.Save(ctx, data)
}

func pair(i int) Credential {
	return Credential{
		AccessToken:  fmt.Sprintf("access-%d", i),
		RefreshToken: fmt.Sprintf("refresh-%d", i),
	}
}

func TestMemoryStore_GetSetClear(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()

	_, ok := s.Get()
	require.False(t, ok)

	s.Set(pair(1))
	got, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, pair(1), got)

	s.Set(pair(2))
	got, _ = s.Get()
	require.Equal(t, pair(2), got)

	require.True(t, s.Clear())
	_, ok = s.Get()
	require.False(t, ok)
	require.False(t, s.Clear(), "повторный Clear ничего не удаляет")
}

func TestMemoryStore_IncompleteSetClears(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.Set(pair(1))

	s.Set(Credential{AccessToken: "only-access"})
	_, ok := s.Get()
	require.False(t, ok, "полупара не должна попасть в хранилище")
}

func TestMemoryStore_IsExpiringSoon(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return now }))

	require.False(t, s.IsExpiringSoon(time.Minute), "пустое хранилище")

	s.Set(pair(1))
	require.False(t, s.IsExpiringSoon(time.Hour), "нулевой expiry — без подсказки")

	c := pair(2)
	c.Expiry = now.Add(45 * time.Second)
	s.Set(c)

	require.True(t, s.IsExpiringSoon(time.Minute))
	require.False(t, s.IsExpiringSoon(30*time.Second))

	c.Expiry = now.Add(-time.Second)
	s.Set(c)
	require.True(t, s.IsExpiringSoon(0), "уже истёкший токен")
}

// Конкурентные Set никогда не дают читателю пару из разных поколений.
func TestMemoryStore_ConcurrentSet_NoTornReads(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.Set(pair(0))

	const writers, rounds = 8, 200
	var torn atomic.Int64
	stop := make(chan struct{})

	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c, ok := s.Get()
				if !ok {
					continue
				}
				if strings.TrimPrefix(c.AccessToken, "access-") != strings.TrimPrefix(c.RefreshToken, "refresh-") {
					torn.Add(1)
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s.Set(pair(w*rounds + i))
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	require.Zero(t, torn.Load())
}

// Конкурентный Clear удаляет credential ровно один раз.
func TestMemoryStore_ConcurrentClear_ExactlyOnce(t *testing.T) {
	t.Parallel()

	p := &memPersister{}
	s := NewMemoryStore(WithPersister(p, time.Second))
	t.Cleanup(s.Close)

	s.Set(pair(1))
	s.Flush()

	const n = 16
	var cleared atomic.Int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Clear() {
				cleared.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	s.Flush()

	require.EqualValues(t, 1, cleared.Load())
	require.Equal(t, []string{"save", "delete"}, p.snapshot())
}

func TestMemoryStore_PersistAndRestore(t *testing.T) {
	t.Parallel()

	p := &memPersister{}
	s := NewMemoryStore(WithPersister(p, time.Second))
	t.Cleanup(s.Close)

	c := pair(7)
	c.Expiry = time.Unix(1_900_000_000, 0).UTC()
	s.Set(c)
	s.Flush()

	restored := NewMemoryStore(WithPersister(p, time.Second))
	t.Cleanup(restored.Close)
	ok, err := restored.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	got, ok := restored.Get()
	require.True(t, ok)
	require.Equal(t, c, got)
}

func TestMemoryStore_Restore_EmptyOrMalformed(t *testing.T) {
	t.Parallel()

	p := &memPersister{}
	s := NewMemoryStore(WithPersister(p, time.Second))
	t.Cleanup(s.Close)

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	p.data = []byte("%%%not-base64%%%")
	ok, err = s.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	_, present := s.Get()
	require.False(t, present)
}

func TestMemoryStore_PersistFailure_DoesNotSurface(t *testing.T) {
	t.Parallel()

	p := &memPersister{saveErr: errors.New("disk full")}
	s := NewMemoryStore(WithPersister(p, time.Second))
	t.Cleanup(s.Close)

	s.Set(pair(3))
	s.Flush()

	got, ok := s.Get()
	require.True(t, ok, "сбой персистентности не влияет на in-memory состояние")
	require.Equal(t, pair(3), got)
}

func TestMemoryStore_SetDoesNotWaitForPersister(t *testing.T) {
	t.Parallel()

	p := newGatedPersister()
	s := NewMemoryStore(WithPersister(p, 5*time.Second))
	t.Cleanup(s.Close)

	done := make(chan struct{})
	go func() {
		s.Set(pair(1))
		s.Set(pair(2))
		s.Clear()
		s.Set(pair(3))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Set/Clear ждут persister")
	}

	got, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, pair(3), got)

	close(p.release)
	s.Flush()

	restored, err := Decode(p.stored())
	require.NoError(t, err)
	require.Equal(t, pair(3), restored)
}

// Пока persister занят, промежуточные значения схлопываются: применяется
// последнее, и состояние «at rest» совпадает с памятью.
func TestMemoryStore_Persist_LastValueWins(t *testing.T) {
	t.Parallel()

	p := newGatedPersister()
	s := NewMemoryStore(WithPersister(p, 5*time.Second))
	t.Cleanup(s.Close)

	s.Set(pair(1))
	<-p.started // писатель занят первой записью

	for i := 2; i <= 10; i++ {
		s.Set(pair(i))
	}
	require.True(t, s.Clear())

	close(p.release)
	s.Flush()

	require.Equal(t, []string{"save", "delete"}, p.snapshot())
	require.Nil(t, p.stored())
}

func TestMemoryStore_Close_AppliesPending(t *testing.T) {
	t.Parallel()

	p := &memPersister{}
	s := NewMemoryStore(WithPersister(p, time.Second))

	s.Set(pair(5))
	s.Close()
	s.Close()

	restored, err := Decode(p.stored())
	require.NoError(t, err)
	require.Equal(t, pair(5), restored)
}

func TestCredential_ExpiringSoon(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c := pair(1)
	require.False(t, c.ExpiringSoon(now, time.Hour), "нулевой expiry")

	c.Expiry = now.Add(45 * time.Second)
	require.True(t, c.ExpiringSoon(now, time.Minute))
	require.False(t, c.ExpiringSoon(now, 30*time.Second))
}
