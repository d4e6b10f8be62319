// Package coach asks the "Pixel Master" persona for advice and a portrait.
// Failures never reach the caller; each half degrades to fallback content.
package coach

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/pixelquest/internal/metrics"
	"github.com/dukerupert/pixelquest/internal/model"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultAvatarTTL = time.Hour
)

type Config struct {
	Timeout   time.Duration
	AvatarTTL time.Duration
}

// Consultation is the combined coach response. Avatar is a data URI, or nil
// when no portrait is available.
type Consultation struct {
	Advice         string  `json:"advice"`
	Avatar         *string `json:"avatar"`
	AdviceDegraded bool    `json:"advice_degraded"`
	AvatarDegraded bool    `json:"avatar_degraded"`
}

type Advisor struct {
	backend Backend
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	avatar   string
	avatarAt time.Time
}

func NewAdvisor(backend Backend, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Advisor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AvatarTTL <= 0 {
		cfg.AvatarTTL = defaultAvatarTTL
	}
	return &Advisor{
		backend: backend,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Consult requests advice and a portrait concurrently and returns once both
// have settled.
func (a *Advisor) Consult(ctx context.Context, u model.User, rs []model.Resolution) Consultation {
	var (
		c Consultation
		g errgroup.Group
	)
	g.Go(func() error {
		c.Advice, c.AdviceDegraded = a.advice(ctx, u, rs)
		return nil
	})
	g.Go(func() error {
		c.Avatar, c.AvatarDegraded = a.portrait(ctx)
		return nil
	})
	_ = g.Wait()
	return c
}

func (a *Advisor) advice(ctx context.Context, u model.User, rs []model.Resolution) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	text, err := a.backend.Advise(ctx, BuildPrompt(u, rs))
	if err != nil {
		a.logger.Warn("advice request failed", "user_id", u.ID, "error", err)
		a.metrics.ObserveFallback("advice")
		return restingAdvice, true
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.metrics.ObserveFallback("advice_empty")
		return emptyReplyAdvice, true
	}
	return text, false
}

func (a *Advisor) cachedPortrait() (string, bool) {
	if a.avatar != "" && a.now().Sub(a.avatarAt) < a.cfg.AvatarTTL {
		return a.avatar, true
	}
	return "", false
}

func (a *Advisor) portrait(ctx context.Context) (*string, bool) {
	a.mu.RLock()
	uri, ok := a.cachedPortrait()
	a.mu.RUnlock()
	if ok {
		return &uri, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock.
	if uri, ok := a.cachedPortrait(); ok {
		return &uri, false
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	data, err := a.backend.Portrait(ctx, portraitPrompt)
	if err != nil || data == "" {
		if err != nil {
			a.logger.Warn("portrait request failed", "error", err)
		}
		a.metrics.ObserveFallback("avatar")
		return nil, true
	}

	a.avatar = "data:image/png;base64," + data
	a.avatarAt = a.now()
	uri = a.avatar
	return &uri, false
}
