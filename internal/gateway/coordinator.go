// gateway — аутентифицированный шлюз исходящих вызовов.
//
// Coordinator оборачивает Executor: прикладывает текущий access-токен,
// на «токен отвергнут» запускает обмен refresh-токена у identity-сервиса
// и повторяет исходный вызов ровно один раз.
//
// Ключевой инвариант: в каждый момент в полёте не более одного обмена.
// Проверка «идёт ли обмен» и захват роли обновляющего выполняются под одним
// мьютексом; остальные вызывающие ждут общий результат (успех — каждый
// повторяет свой вызов; провал — все получают ErrLoggedOut, повторов нет).
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/research-gateway/internal/credentials"
	"github.com/pribylovaa/research-gateway/internal/pkg/log"
	"github.com/pribylovaa/research-gateway/internal/pkg/redact"
)

//go:generate mockgen -source=coordinator.go -destination=../mocks/gateway.go -package=mocks

// ErrSessionClosed — причина выхода, инициированного пользователем.
var ErrSessionClosed = errors.New("session closed")

// Identity — контракт identity-сервиса, нужный шлюзу.
type Identity interface {
	// Refresh обменивает текущую пару на новую. Любая ошибка — провал обновления.
	Refresh(ctx context.Context, c credentials.Credential) (credentials.Credential, error)
	// Revoke отзывает refresh-токен (best effort при выходе).
	Revoke(ctx context.Context, refreshToken string) error
}

// Observer получает события координатора (метрики).
type Observer interface {
	RefreshFinished(err error, d time.Duration)
	Retried(k Kind)
	LoggedOut()
}

type noopObserver struct{}

func (noopObserver) RefreshFinished(error, time.Duration) {}
func (noopObserver) Retried(Kind)                         {}
func (noopObserver) LoggedOut()                           {}

// State — состояние цикла обновления.
type State int

const (
	StateIdle State = iota
	StateRefreshInFlight
)

func (s State) String() string {
	if s == StateRefreshInFlight {
		return "refresh_in_flight"
	}

	return "idle"
}

// flight — «обмен в полёте». Живёт от старта обмена до закрытия done;
// err записывается под mu до close(done) и после этого не меняется.
type flight struct {
	done chan struct{}
	err  error
	gen  uint64
}

// Coordinator — единственный писатель в credentials.Store.
type Coordinator struct {
	store    credentials.Store
	identity Identity
	exec     Executor
	observer Observer
	log      *slog.Logger

	refreshTimeout  time.Duration
	expiryThreshold time.Duration
	now             func() time.Time

	mu        sync.Mutex
	flight    *flight
	gen       uint64 // растёт на каждом Establish/refresh/выходе
	listeners []func(reason error)
	// shortLived — access-токен, выданный обменом уже в пределах порога;
	// для него проактивное обновление не запускается.
	shortLived string
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

// WithExecutor задаёт исполнитель по умолчанию для Call.
func WithExecutor(e Executor) Option {
	return func(c *Coordinator) { c.exec = e }
}

// WithObserver подключает наблюдателя событий.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger задаёт базовый логгер (для обмена, который живёт вне запроса).
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRefreshTimeout ограничивает обмен refresh-токена; по истечении — провал.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithExpiryThreshold включает проактивное обновление: если access-токен
// истекает в пределах d, обновление идёт через тот же single-flight до вызова.
func WithExpiryThreshold(d time.Duration) Option {
	return func(c *Coordinator) { c.expiryThreshold = d }
}

// WithClock подменяет источник времени для проверки истечения (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New создаёт координатор.
func New(store credentials.Store, identity Identity, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		identity:       identity,
		observer:       noopObserver{},
		log:            slog.Default(),
		refreshTimeout: 10 * time.Second,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Call выполняет вызов endpoint исполнителем по умолчанию.
func (c *Coordinator) Call(ctx context.Context, endpoint, method string, body []byte) (*Response, error) {
	return c.Do(ctx, Attempt{Endpoint: endpoint, Method: method, Body: body}, nil)
}

// Do выполняет попытку через exec (nil — исполнитель по умолчанию).
//
// Результаты:
//   - успех — (*Response, nil);
//   - прочая ошибка — (nil, err), обычно *UpstreamError, без повторов;
//   - провал обновления или отсутствие сессии — errors.Is(err, ErrLoggedOut);
//   - повтор снова получил 401 — *UpstreamError{Status: 401}, ErrUnauthorizedAfterRefresh;
//   - отмена ctx во время ожидания обмена — ctx.Err().
func (c *Coordinator) Do(ctx context.Context, a Attempt, exec Executor) (*Response, error) {
	const op = "gateway.Coordinator.Do"

	if exec == nil {
		exec = c.exec
	}
	if exec == nil {
		return nil, fmt.Errorf("%s: executor is not configured", op)
	}

	a.Retried = false

	// Решение о проактивном обновлении и staleToken берутся из одного снимка:
	// если обмен уже состоялся, refresh увидит новый токен и не начнёт второй.
	if cur, ok := c.store.Get(); ok && c.proactiveDue(cur) {
		if err := c.refresh(ctx, cur.AccessToken); err != nil {
			return nil, err
		}
	}

	res, sent := c.execute(ctx, a, exec)
	if res.Kind != KindAuthExpired {
		return unwrap(res)
	}

	if err := c.refresh(ctx, sent.Token); err != nil {
		return nil, err
	}

	sent.Retried = true
	res, _ = c.execute(ctx, sent, exec)
	c.observer.Retried(res.Kind)

	if res.Kind == KindAuthExpired {
		log.From(ctx).Warn("retry_unauthorized",
			slog.String("op", op),
			slog.String("endpoint", a.Endpoint),
		)
		return nil, &UpstreamError{Status: http.StatusUnauthorized, Err: ErrUnauthorizedAfterRefresh}
	}

	return unwrap(res)
}

// Establish устанавливает credential после входа.
func (c *Coordinator) Establish(cred credentials.Credential) error {
	const op = "gateway.Coordinator.Establish"

	if !cred.Complete() {
		return fmt.Errorf("%s: %w", op, ErrIncompleteCredential)
	}

	if cred.Expiry.IsZero() {
		cred.Expiry = credentials.ExpiryFromJWT(cred.AccessToken)
	}

	c.mu.Lock()
	c.store.Set(cred)
	c.gen++
	c.mu.Unlock()

	return nil
}

// Logout завершает сессию по инициативе пользователя. Идемпотентен:
// при конкурентных вызовах хранилище очищается ровно один раз, и только
// этот вызов вернёт true, уведомит подписчиков и отзовёт refresh-токен.
func (c *Coordinator) Logout(ctx context.Context) bool {
	const op = "gateway.Coordinator.Logout"

	c.mu.Lock()
	cur, ok := c.store.Get()
	cleared := ok && c.store.Clear()
	if cleared {
		c.gen++
	}
	c.mu.Unlock()

	if !cleared {
		return false
	}

	c.notifyLogout(ErrSessionClosed)

	if err := c.identity.Revoke(ctx, cur.RefreshToken); err != nil {
		log.From(ctx).Warn("revoke_failed",
			slog.String("op", op),
			slog.String("token", redact.Token(cur.RefreshToken)),
			slog.String("err", err.Error()),
		)
	}

	return true
}

// OnLogout подписывает fn на терминальный выход. fn вызывается синхронно,
// один раз на каждое фактическое очищение хранилища.
func (c *Coordinator) OnLogout(fn func(reason error)) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// State сообщает, идёт ли сейчас обмен.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flight != nil {
		return StateRefreshInFlight
	}

	return StateIdle
}

// Session сообщает, есть ли сессия, и когда истекает её access-токен.
func (c *Coordinator) Session() (time.Time, bool) {
	cur, ok := c.store.Get()
	return cur.Expiry, ok
}

func (c *Coordinator) proactiveDue(cur credentials.Credential) bool {
	if c.expiryThreshold <= 0 || !cur.ExpiringSoon(c.now(), c.expiryThreshold) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return cur.AccessToken != c.shortLived
}

func (c *Coordinator) execute(ctx context.Context, a Attempt, exec Executor) (Result, Attempt) {
	a.Token = ""
	if cur, ok := c.store.Get(); ok {
		a.Token = cur.AccessToken
	}

	return exec.Execute(ctx, a), a
}

// refresh — single-flight вход. staleToken — access-токен, который отверг
// бэкенд: если в хранилище уже другой, обновление уже состоялось и
// достаточно повторить вызов.
func (c *Coordinator) refresh(ctx context.Context, staleToken string) error {
	c.mu.Lock()
	f := c.flight
	if f == nil {
		cur, ok := c.store.Get()
		if !ok {
			c.mu.Unlock()
			return ErrLoggedOut
		}

		if cur.AccessToken != staleToken {
			c.mu.Unlock()
			return nil
		}

		f = &flight{done: make(chan struct{}), gen: c.gen}
		c.flight = f
		go c.exchange(ctx, f, cur)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exchange выполняет обмен в собственной горутине: контекст отвязан от
// отмены инициатора и ограничен refreshTimeout.
func (c *Coordinator) exchange(parent context.Context, f *flight, cur credentials.Credential) {
	const op = "gateway.Coordinator.exchange"

	lg := log.From(parent).With(
		slog.String("op", op),
		slog.String("token", redact.Token(cur.RefreshToken)),
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.refreshTimeout)
	defer cancel()

	start := time.Now()
	lg.Debug("refresh_started")

	next, err := c.identity.Refresh(ctx, cur)
	if err == nil && !next.Complete() {
		err = ErrIncompleteCredential
	}
	if err == nil && next.Expiry.IsZero() {
		next.Expiry = credentials.ExpiryFromJWT(next.AccessToken)
	}

	dur := time.Since(start)
	c.observer.RefreshFinished(err, dur)

	var (
		cause      error
		orphaned   bool
		shortLived bool
	)

	c.mu.Lock()
	switch {
	case c.gen != f.gen:
		// Пока шёл обмен, случился вход или выход: его результат устарел.
		orphaned = err == nil
		if _, ok := c.store.Get(); ok {
			f.err = nil
		} else {
			f.err = ErrLoggedOut
		}
	case err != nil:
		if c.store.Clear() {
			cause = err
		}
		c.gen++
		f.err = loggedOut(err)
	default:
		c.store.Set(next)
		c.gen++
		shortLived = c.expiryThreshold > 0 && next.ExpiringSoon(c.now(), c.expiryThreshold)
		c.shortLived = ""
		if shortLived {
			c.shortLived = next.AccessToken
		}
	}
	c.flight = nil
	c.mu.Unlock()

	switch {
	case err != nil:
		lg.Warn("refresh_failed", slog.Duration("dur", dur), slog.String("err", err.Error()))
	case orphaned:
		// Новую пару никто не сохранит: отзываем её refresh-токен.
		lg.Info("refresh_discarded", slog.Duration("dur", dur))
		if rerr := c.identity.Revoke(ctx, next.RefreshToken); rerr != nil {
			lg.Warn("revoke_failed",
				slog.String("discarded", redact.Token(next.RefreshToken)),
				slog.String("err", rerr.Error()),
			)
		}
	default:
		lg.Info("refresh_succeeded", slog.Duration("dur", dur))
		if shortLived {
			lg.Warn("refresh_within_threshold",
				slog.Duration("threshold", c.expiryThreshold),
				slog.Time("expiry", next.Expiry),
			)
		}
	}

	// Подписчики узнают о выходе раньше, чем ожидающие получат ErrLoggedOut.
	if cause != nil {
		c.notifyLogout(cause)
	}

	close(f.done)
}

func (c *Coordinator) notifyLogout(reason error) {
	c.mu.Lock()
	ls := make([]func(error), len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()

	c.observer.LoggedOut()
	c.log.Info("session_logged_out", slog.String("reason", reason.Error()))

	for _, fn := range ls {
		fn(reason)
	}
}

func unwrap(res Result) (*Response, error) {
	if res.Kind == KindSuccess {
		return res.Response, nil
	}

	if res.Err == nil {
		return nil, &UpstreamError{Err: errors.New(res.Kind.String())}
	}

	return nil, res.Err
}
