// Package datasource decides, per call, whether a request is answered by the
// local simulation or forwarded to the remote backend.
package datasource

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/gamification"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/simulation"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"

	// HeaderDataSource tells clients which side answered.
	HeaderDataSource = "X-Data-Source"

	DefaultProbeInterval = 30 * time.Second
	probeTimeout         = 2 * time.Second
)

// Redemption failures of the local engine, surfaced by GamificationSource.
var (
	ErrAlreadyRedeemed    = gamification.ErrRewardRedeemed
	ErrInsufficientPoints = gamification.ErrInsufficientPoints
)

type Resolver struct {
	registry *simulation.Registry
	remote   *remote.Client
	clock    clock.Clock
	log      *logger.Logger
	interval time.Duration
	probes   singleflight.Group

	mu        sync.Mutex
	healthy   bool
	checkedAt time.Time
	probed    bool
}

type Option func(*Resolver)

func WithClock(c clock.Clock) Option { return func(r *Resolver) { r.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(r *Resolver) { r.log = l } }

func WithProbeInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewResolver builds a resolver. client may be nil, in which case every call
// is answered locally.
func NewResolver(registry *simulation.Registry, client *remote.Client, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		remote:   client,
		clock:    clock.Real{},
		log:      logger.Nop(),
		interval: DefaultProbeInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "Resolver")
	return r
}

func (r *Resolver) Registry() *simulation.Registry { return r.registry }

// Mode picks the side that answers a call made with sess.
func (r *Resolver) Mode(ctx context.Context, sess *middleware.Session) Mode {
	if sess == nil || sess.Local || strings.HasPrefix(sess.Token, middleware.LocalTokenPrefix) {
		return ModeLocal
	}
	if r.remote == nil || !r.backendHealthy(ctx) {
		return ModeLocal
	}
	return ModeRemote
}

// backendHealthy returns the cached probe result, refreshing it once per
// interval. Concurrent refreshes share one probe.
func (r *Resolver) backendHealthy(ctx context.Context) bool {
	r.mu.Lock()
	fresh := r.probed && r.clock.Now().Sub(r.checkedAt) < r.interval
	healthy := r.healthy
	r.mu.Unlock()
	if fresh {
		return healthy
	}

	v, _, _ := r.probes.Do("health", func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		err := r.remote.Health(pctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		ok := err == nil
		if r.probed && ok != r.healthy {
			if ok {
				r.log.Info("remote backend reachable again", "url", r.remote.BaseURL())
			} else {
				r.log.Warn("remote backend unreachable, answering locally", "url", r.remote.BaseURL(), "error", err)
			}
		}
		r.healthy = ok
		r.checkedAt = r.clock.Now()
		r.probed = true
		return ok, nil
	})
	return v.(bool)
}

// Invalidate forces the next call to probe the backend again.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.probed = false
	r.mu.Unlock()
}

// Workspace returns the local workspace of sess's user. Modules without a
// remote counterpart always use it.
func (r *Resolver) Workspace(ctx context.Context, sess *middleware.Session) *simulation.Workspace {
	return r.registry.Workspace(ctx, sess.User)
}

func (r *Resolver) Homework(ctx context.Context, sess *middleware.Session) (HomeworkSource, Mode) {
	if r.Mode(ctx, sess) == ModeRemote {
		return &remoteHomework{client: r.remote, token: sess.Token}, ModeRemote
	}
	return &localHomework{ws: r.Workspace(ctx, sess), now: r.clock.Now}, ModeLocal
}

func (r *Resolver) Messages(ctx context.Context, sess *middleware.Session) (MessageSource, Mode) {
	if r.Mode(ctx, sess) == ModeRemote {
		return &remoteMessages{client: r.remote, token: sess.Token}, ModeRemote
	}
	return &localMessages{mailbox: r.registry.Mailbox(sess.User)}, ModeLocal
}

func (r *Resolver) Gamification(ctx context.Context, sess *middleware.Session) (GamificationSource, Mode) {
	if r.Mode(ctx, sess) == ModeRemote {
		return &remoteGamification{client: r.remote, token: sess.Token}, ModeRemote
	}
	return &localGamification{ws: r.Workspace(ctx, sess)}, ModeLocal
}

func notFoundAsNil(err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}
