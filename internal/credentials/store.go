package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/research-gateway/internal/storage"
)

// Store — контракт хранилища credential.
type Store interface {
	// Get возвращает текущий credential и признак его наличия.
	Get() (Credential, bool)
	// Set атомарно заменяет credential; виден всем Get после возврата.
	// Неполный credential равносилен Clear.
	Set(c Credential)
	// Clear атомарно удаляет credential и сообщает, было ли что удалять.
	Clear() bool
	// IsExpiringSoon — истекает ли access-токен в пределах threshold.
	IsExpiringSoon(threshold time.Duration) bool
}

// persistOp — отложенная запись в persister. data == nil означает удаление.
type persistOp struct {
	data []byte
}

// MemoryStore — потокобезопасная in-memory реализация Store.
// Чтение без блокировок: значение хранится как неизменяемый *Credential
// в atomic.Pointer, поэтому читатель никогда не увидит «полупару».
//
// Set и Clear ввода-вывода не делают. Персистентность выполняет фоновый
// писатель: он берёт последнюю поставленную операцию (промежуточные
// значения схлопываются), поэтому persister догоняет память в том же
// порядке, в каком менялось in-memory значение.
type MemoryStore struct {
	cur atomic.Pointer[Credential]

	now func() time.Time
	log *slog.Logger

	persister      storage.Persister
	persistTimeout time.Duration

	// pmu упорядочивает смену значения и постановку операции писателю.
	pmu     sync.Mutex
	idle    *sync.Cond
	pending *persistOp
	busy    bool

	wake      chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Option настраивает MemoryStore.
type Option func(*MemoryStore)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger задаёт логгер для ошибок персистентности.
func WithLogger(l *slog.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPersister включает сохранение credential «at rest».
// timeout ограничивает каждую операцию persister; <=0 — 5s.
func WithPersister(p storage.Persister, timeout time.Duration) Option {
	return func(s *MemoryStore) {
		s.persister = p
		if timeout > 0 {
			s.persistTimeout = timeout
		}
	}
}

// NewMemoryStore создаёт пустое хранилище. С persister запускается фоновый
// писатель; его останавливает Close.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:            time.Now,
		log:            slog.Default(),
		persistTimeout: 5 * time.Second,
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.pmu)

	for _, opt := range opts {
		opt(s)
	}

	if s.persister != nil {
		go s.writer()
	} else {
		close(s.stopped)
	}

	return s
}

func (s *MemoryStore) Get() (Credential, bool) {
	c := s.cur.Load()
	if c == nil {
		return Credential{}, false
	}

	return *c, true
}

func (s *MemoryStore) Set(c Credential) {
	const op = "credentials.MemoryStore.Set"

	if !c.Complete() {
		s.Clear()
		return
	}

	var data []byte
	if s.persister != nil {
		var err error
		if data, err = Encode(c); err != nil {
			s.log.Error("credential_encode_failed", slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	cp := c

	s.pmu.Lock()
	s.cur.Store(&cp)
	if data != nil {
		s.enqueue(&persistOp{data: data})
	}
	s.pmu.Unlock()
}

func (s *MemoryStore) Clear() bool {
	s.pmu.Lock()
	defer s.pmu.Unlock()

	if s.cur.Swap(nil) == nil {
		return false
	}

	if s.persister != nil {
		s.enqueue(&persistOp{})
	}

	return true
}

func (s *MemoryStore) IsExpiringSoon(threshold time.Duration) bool {
	c := s.cur.Load()
	if c == nil {
		return false
	}

	return c.ExpiringSoon(s.now(), threshold)
}

// Restore поднимает credential из persister при старте.
// Возвращает false, если сохранённого значения нет или оно битое.
func (s *MemoryStore) Restore(ctx context.Context) (bool, error) {
	const op = "credentials.MemoryStore.Restore"

	if s.persister == nil {
		return false, nil
	}

	data, err := s.persister.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	c, err := Decode(data)
	if err != nil {
		s.log.Warn("credential_restore_malformed", slog.String("op", op))
		return false, nil
	}

	cp := c
	s.cur.Store(&cp)
	return true, nil
}

// Flush ждёт, пока писатель применит все поставленные операции.
func (s *MemoryStore) Flush() {
	if s.persister == nil {
		return
	}

	s.pmu.Lock()
	defer s.pmu.Unlock()

	for (s.pending != nil || s.busy) && !s.isStopped() {
		s.idle.Wait()
	}
}

// Close дописывает последнюю операцию и останавливает писателя.
// Set/Clear после Close меняют только память. Повторный вызов безопасен.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		if s.persister != nil {
			close(s.stop)
		}
	})
	<-s.stopped
}

// enqueue вызывается под pmu: последняя операция вытесняет непримёненную.
func (s *MemoryStore) enqueue(op *persistOp) {
	s.pending = op

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *MemoryStore) writer() {
	defer func() {
		s.pmu.Lock()
		close(s.stopped)
		s.idle.Broadcast()
		s.pmu.Unlock()
	}()

	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *MemoryStore) drain() {
	for {
		s.pmu.Lock()
		op := s.pending
		s.pending = nil
		s.busy = op != nil
		if op == nil {
			s.idle.Broadcast()
			s.pmu.Unlock()
			return
		}
		s.pmu.Unlock()

		s.apply(op)
	}
}

func (s *MemoryStore) apply(p *persistOp) {
	const op = "credentials.MemoryStore.apply"

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if p.data == nil {
		if err := s.persister.Delete(ctx); err != nil {
			s.log.Error("credential_persist_delete_failed", slog.String("op", op), slog.String("err", err.Error()))
		}
		return
	}

	if err := s.persister.Save(ctx, p.data); err != nil {
		s.log.Error("credential_persist_failed", slog.String("op", op), slog.String("err", err.Error()))
	}
}

func (s *MemoryStore) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Проверка на соответствие интерфейсу Store.
var _ Store = (*MemoryStore)(nil)
