// Package whatsapp contains the outreach dispatcher: it walks pending lead
// rows, navigates the messaging client into each contact's thread, verifies
// the thread before sending, and writes one terminal status per row.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/metrics"
	"github.com/skillverse/leadgen/internal/phone"
)

// ErrNoMessages rejects a dispatcher with an empty message pool.
var ErrNoMessages = errors.New("whatsapp: no message variants configured")

// headerPhonePattern finds phone-shaped substrings in a chat header. The
// wrong-chat check only fires when the header renders a number; a name-only
// header passes unverified.
var headerPhonePattern = regexp.MustCompile(`\+\d[\d\s]+`)

// headerBlacklist marks headers that indicate the client silently fell back
// to a previously open thread instead of switching.
var headerBlacklist = []string{"Achievers", "4Achievers"}

// Config parameterizes one dispatch run.
type Config struct {
	// Messages is the variant pool; each contact gets one picked at random.
	Messages []string `mapstructure:"messages"`

	// Limit caps successful sends; zero means all pending rows.
	Limit int `mapstructure:"limit"`

	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Region selects the calling-code prefix for bare national numbers.
	Region string `mapstructure:"region"`

	// MinPhoneDigits is the validity floor after normalization cleanup.
	MinPhoneDigits int `mapstructure:"min_phone_digits"`
}

func (c *Config) applyDefaults() {
	if c.MinDelay <= 0 {
		c.MinDelay = 4 * time.Second
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay + 5*time.Second
	}
	if c.MinPhoneDigits <= 0 {
		c.MinPhoneDigits = 5
	}
	if c.Region == "" {
		c.Region = phone.DefaultRegion
	}
}

// Dispatcher walks pending rows sequentially through one conversation
// surface. It is single-run: sent-set and last-header state belong to one
// Run call.
type Dispatcher struct {
	cfg    Config
	conv   Conversation
	store  leads.Store
	norm   phone.Normalizer
	rnd    *rand.Rand
	logger *zap.Logger
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(cfg Config, conv Conversation, store leads.Store, logger *zap.Logger) (*Dispatcher, error) {
	cfg.applyDefaults()
	if len(cfg.Messages) == 0 {
		return nil, ErrNoMessages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:    cfg,
		conv:   conv,
		store:  store,
		norm:   phone.NewNormalizer(cfg.Region),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}, nil
}

// Run dispatches to every pending row, returning the number of messages
// sent. Store and login failures abort before any send; per-contact failures
// write a terminal status and continue.
func (d *Dispatcher) Run(ctx context.Context) (int, error) {
	rows, err := d.store.ListRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("list lead rows: %w", err)
	}
	pending := 0
	for _, row := range rows {
		if row.Status.Pending() {
			pending++
		}
	}
	d.logger.Info("dispatch starting",
		zap.Int("rows", len(rows)),
		zap.Int("pending", pending),
		zap.Int("limit", d.cfg.Limit))

	if err := d.conv.WaitLogin(ctx); err != nil {
		return 0, err
	}

	sentKeys := make(map[string]struct{})
	lastHeader := ""
	sent := 0

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if d.cfg.Limit > 0 && sent >= d.cfg.Limit {
			d.logger.Info("send limit reached", zap.Int("sent", sent))
			break
		}
		if !row.Status.Pending() {
			continue
		}

		status := d.dispatchRow(ctx, row, sentKeys, &lastHeader)
		if err := ctx.Err(); err != nil {
			// A send that finished before the stop still gets its
			// terminal status; any other row stays pending for the
			// next run.
			if status == leads.StatusSent {
				d.writeStatus(context.WithoutCancel(ctx), row.ID, status)
				sent++
			}
			return sent, err
		}
		d.writeStatus(ctx, row.ID, status)

		if status != leads.StatusSent {
			d.logger.Warn("contact not sent",
				zap.Int64("row", row.ID),
				zap.String("status", string(status)))
			continue
		}
		sent++
		if err := browser.HumanDelay(ctx, d.rnd, d.cfg.MinDelay, d.cfg.MaxDelay); err != nil {
			return sent, err
		}
	}
	d.logger.Info("dispatch complete", zap.Int("sent", sent))
	return sent, nil
}

func (d *Dispatcher) writeStatus(ctx context.Context, id int64, status leads.Status) {
	if err := d.store.UpdateStatus(ctx, id, status); err != nil {
		d.logger.Error("status write failed", zap.Int64("row", id), zap.Error(err))
	}
	metrics.MessageOutcome(string(status))
}

// dispatchRow resolves one row to its terminal status. Validation failures
// never touch the browser.
func (d *Dispatcher) dispatchRow(ctx context.Context, row leads.Row, sentKeys map[string]struct{}, lastHeader *string) leads.Status {
	cleaned := strings.TrimLeft(phone.Clean(row.Lead.Phone), "0")
	if !phone.Valid(cleaned, d.cfg.MinPhoneDigits) {
		return leads.StatusInvalidPhone
	}
	target := d.norm.Normalize(row.Lead.Phone)
	key := phone.Digits(target)
	if _, dup := sentKeys[key]; dup {
		return leads.StatusDuplicateSkip
	}

	message := d.cfg.Messages[d.rnd.Intn(len(d.cfg.Messages))]
	d.logger.Info("sending", zap.Int64("row", row.ID), zap.String("phone", target))

	status := d.sendOne(ctx, target, message, lastHeader)
	if status == leads.StatusSent {
		sentKeys[key] = struct{}{}
	}
	return status
}

// sendOne runs the navigate-verify-send protocol for one contact. The
// verification ladder is safety-critical: an unverified thread is never sent
// to, and none of its failures are retried.
func (d *Dispatcher) sendOne(ctx context.Context, target, message string, lastHeader *string) leads.Status {
	d.conv.Reset()

	for attempt := 0; attempt < 2; attempt++ {
		if err := d.conv.Open(ctx, target, message); err != nil {
			d.logger.Warn("navigation failed",
				zap.String("phone", target),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return leads.StatusError
		}
		if d.conv.InputReady() {
			break
		}
	}

	if !d.conv.WaitInput(ctx) {
		if d.conv.InvalidPopup() {
			return leads.StatusInvalidWhatsApp
		}
		return leads.StatusError
	}

	header, err := d.conv.Header()
	if err != nil {
		return leads.StatusNavErrorCheck
	}
	header = strings.TrimSpace(header)
	switch {
	case header == "":
		return leads.StatusNavErrorEmpty
	case *lastHeader != "" && header == *lastHeader:
		return leads.StatusNavErrorStuck
	case headerBlacklisted(header):
		return leads.StatusNavErrorStuck
	case headerPhoneMismatch(header, target):
		return leads.StatusNavErrorWrong
	}
	*lastHeader = header

	if err := browser.HumanDelay(ctx, d.rnd, d.cfg.MinDelay/4, d.cfg.MaxDelay/4); err != nil {
		return leads.StatusError
	}

	d.conv.Wake()
	if err := d.conv.Submit(); err != nil {
		d.logger.Warn("primary send gesture failed", zap.Error(err))
	}
	if d.conv.SendControlVisible() {
		if err := d.conv.ClickSend(); err != nil {
			d.logger.Warn("fallback send click failed", zap.Error(err))
		}
	}

	draft, err := d.conv.Draft()
	if err == nil && strings.TrimSpace(draft) != "" {
		// a lingering draft would block the next contact's navigation
		if clearErr := d.conv.ClearDraft(); clearErr != nil {
			d.logger.Warn("clearing stuck draft failed", zap.Error(clearErr))
		}
		return leads.StatusDraftError
	}
	return leads.StatusSent
}

func headerBlacklisted(header string) bool {
	for _, bad := range headerBlacklist {
		if strings.Contains(header, bad) {
			return true
		}
	}
	return false
}

// headerPhoneMismatch reports whether the header shows phone numbers and
// none of them match the target.
func headerPhoneMismatch(header, target string) bool {
	found := headerPhonePattern.FindAllString(header, -1)
	if len(found) == 0 {
		return false
	}
	want := phone.Clean(target)
	for _, raw := range found {
		if phone.Clean(raw) == want {
			return false
		}
	}
	return true
}
