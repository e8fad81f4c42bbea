// Package browser owns the chromedp session plumbing shared by the discovery
// crawler and the outreach dispatcher: allocator options, tab contexts, and
// human-paced sleeping.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the Chrome process behind a session.
type Config struct {
	Headless    bool          `mapstructure:"headless"`
	UserAgent   string        `mapstructure:"user_agent"`
	UserDataDir string        `mapstructure:"user_data_dir"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
}

// Session wraps a live browser tab context. All chromedp actions issued by
// the engines run against Ctx.
type Session struct {
	Ctx    context.Context
	cancel []context.CancelFunc
	cfg    Config
	logger *zap.Logger
}

// NewSession launches Chrome and opens one tab, warming it up so the first
// real navigation does not pay browser startup cost. UserDataDir, when set,
// persists the profile between runs — the messaging surface needs this so a
// scanned login survives restarts.
func NewSession(parent context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}

	return &Session{
		Ctx:    tabCtx,
		cancel: []context.CancelFunc{tabCancel, allocCancel},
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close tears down the tab and the Chrome process.
func (s *Session) Close() {
	for _, cancel := range s.cancel {
		cancel()
	}
}

// NavTimeout returns the configured per-navigation budget.
func (s *Session) NavTimeout() time.Duration {
	return s.cfg.NavTimeout
}

// Navigate opens url under the navigation timeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.Ctx, s.cfg.NavTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// NeutralLocation pins the tab to a fixed locale, timezone, and geolocation
// so map search results do not bias toward the host machine's actual
// location.
func (s *Session) NeutralLocation() error {
	err := chromedp.Run(s.Ctx,
		emulation.SetLocaleOverride().WithLocale("en-US"),
		emulation.SetTimezoneOverride("America/New_York"),
		emulation.SetGeolocationOverride().
			WithLatitude(40.7128).
			WithLongitude(-74.006).
			WithAccuracy(1),
	)
	if err != nil {
		return fmt.Errorf("location override: %w", err)
	}
	return nil
}

// HumanDelay sleeps a uniformly random duration in [min, max], waking early
// when ctx ends so a stop request never waits out a full pacing interval.
func HumanDelay(ctx context.Context, rnd *rand.Rand, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rnd.Int63n(int64(max - min + 1)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
