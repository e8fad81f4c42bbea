package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/store/memory"
)

// fakeConversation scripts the messaging client per target phone.
type fakeConversation struct {
	headers   map[string]string
	invalid   map[string]bool
	drafts    map[string]string
	headerErr map[string]bool

	loginErr error
	onOpen   func()
	onSubmit func()

	current string
	opened  []string
	resets  int
	cleared int
}

func (f *fakeConversation) WaitLogin(_ context.Context) error { return f.loginErr }

func (f *fakeConversation) Reset() { f.resets++ }

func (f *fakeConversation) Open(_ context.Context, phone, _ string) error {
	f.current = phone
	f.opened = append(f.opened, phone)
	if f.onOpen != nil {
		f.onOpen()
	}
	return nil
}

func (f *fakeConversation) InputReady() bool { return !f.invalid[f.current] }

func (f *fakeConversation) WaitInput(_ context.Context) bool { return !f.invalid[f.current] }

func (f *fakeConversation) InvalidPopup() bool { return f.invalid[f.current] }

func (f *fakeConversation) Header() (string, error) {
	if f.headerErr[f.current] {
		return "", errors.New("header detached")
	}
	if h, ok := f.headers[f.current]; ok {
		return h, nil
	}
	return "Contact " + f.current, nil
}

func (f *fakeConversation) Wake() {}

func (f *fakeConversation) Submit() error {
	if f.onSubmit != nil {
		f.onSubmit()
	}
	return nil
}

func (f *fakeConversation) SendControlVisible() bool { return false }

func (f *fakeConversation) ClickSend() error { return nil }

func (f *fakeConversation) Draft() (string, error) { return f.drafts[f.current], nil }

func (f *fakeConversation) ClearDraft() error {
	f.cleared++
	return nil
}

func fastConfig() Config {
	return Config{
		Messages: []string{"Hi! Interested in a collaboration?"},
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	}
}

func newDispatcher(t *testing.T, cfg Config, conv Conversation, store leads.Store) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cfg, conv, store, nil)
	require.NoError(t, err)
	return d
}

func TestDispatchSendsPendingRows(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}},
		leads.Row{Lead: leads.Lead{Name: "B", Phone: "+919876543212"}},
		leads.Row{Lead: leads.Lead{Name: "C", Phone: "+919876543213"}, Status: leads.StatusInvalidWhatsApp},
		leads.Row{Lead: leads.Lead{Name: "D", Phone: "+919876543214"}},
	)
	conv := &fakeConversation{}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	// the non-pending row never triggered navigation
	assert.NotContains(t, conv.opened, "+919876543213")
	assert.Len(t, conv.opened, 3)
	assert.Equal(t, []leads.Status{
		leads.StatusSent, leads.StatusSent, leads.StatusInvalidWhatsApp, leads.StatusSent,
	}, store.Statuses())
}

func TestDispatchStaleHeader(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}},
		leads.Row{Lead: leads.Lead{Name: "B", Phone: "+919876543212"}},
	)
	conv := &fakeConversation{headers: map[string]string{
		"+919876543211": "Robotics Club",
		"+919876543212": "Robotics Club",
	}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []leads.Status{leads.StatusSent, leads.StatusNavErrorStuck}, store.Statuses())
}

func TestDispatchInvalidPhone(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "00 12"}})
	conv := &fakeConversation{}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, conv.opened)
	assert.Equal(t, []leads.Status{leads.StatusInvalidPhone}, store.Statuses())
}

func TestDispatchDuplicateSkip(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{ID: 2, Lead: leads.Lead{Name: "A", Phone: "+919876543210"}},
		leads.Row{ID: 3, Lead: leads.Lead{Name: "B", Phone: "+919876543210"}},
	)
	conv := &fakeConversation{}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, conv.opened, 1)
	assert.Equal(t, []leads.Status{leads.StatusSent, leads.StatusDuplicateSkip}, store.Statuses())
}

func TestDispatchBlacklistedHeader(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	conv := &fakeConversation{headers: map[string]string{
		"+919876543211": "4Achievers Institute",
	}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, []leads.Status{leads.StatusNavErrorStuck}, store.Statuses())
}

func TestDispatchWrongChatHeader(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}},
		leads.Row{Lead: leads.Lead{Name: "B", Phone: "+919876543212"}},
	)
	conv := &fakeConversation{headers: map[string]string{
		// header shows a number that is not the target
		"+919876543211": "+91 11122 23334",
		// header shows the target itself, spaced differently
		"+919876543212": "+91 98765 43212",
	}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []leads.Status{leads.StatusNavErrorWrong, leads.StatusSent}, store.Statuses())
}

func TestDispatchHeaderCheckFailure(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	conv := &fakeConversation{headerErr: map[string]bool{"+919876543211": true}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, []leads.Status{leads.StatusNavErrorCheck}, store.Statuses())
}

func TestDispatchInvalidWhatsApp(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	conv := &fakeConversation{invalid: map[string]bool{"+919876543211": true}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, []leads.Status{leads.StatusInvalidWhatsApp}, store.Statuses())
}

func TestDispatchDraftError(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	conv := &fakeConversation{drafts: map[string]string{"+919876543211": "Hi! Interested"}}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, conv.cleared)
	assert.Equal(t, []leads.Status{leads.StatusDraftError}, store.Statuses())
}

func TestDispatchLimit(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}},
		leads.Row{Lead: leads.Lead{Name: "B", Phone: "+919876543212"}},
	)
	cfg := fastConfig()
	cfg.Limit = 1
	conv := &fakeConversation{}
	d := newDispatcher(t, cfg, conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []leads.Status{leads.StatusSent, leads.StatusNew}, store.Statuses())
}

func TestDispatchLoginFailureIsFatal(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	conv := &fakeConversation{loginErr: errors.New("qr scan timed out")}
	d := newDispatcher(t, fastConfig(), conv, store)

	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, conv.opened)
	assert.Equal(t, []leads.Status{leads.StatusNew}, store.Statuses())
}

func TestDispatchNormalizesBarePhone(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "098765432101"}})
	conv := &fakeConversation{}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, conv.opened, 1)
	assert.Equal(t, "+9198765432101", conv.opened[0])
}

func TestDispatchCancellation(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	d := newDispatcher(t, fastConfig(), &fakeConversation{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatchStopAfterSubmitRecordsSent(t *testing.T) {
	store := memory.New()
	store.Load(
		leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}},
		leads.Row{Lead: leads.Lead{Name: "B", Phone: "+919876543212"}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	conv := &fakeConversation{onSubmit: cancel}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sent)
	require.Len(t, conv.opened, 1)
	statuses := store.Statuses()
	assert.Equal(t, leads.StatusSent, statuses[0])
	assert.True(t, statuses[1].Pending())
}

func TestDispatchStopMidNavigationLeavesRowPending(t *testing.T) {
	store := memory.New()
	store.Load(leads.Row{Lead: leads.Lead{Name: "A", Phone: "+919876543211"}})
	ctx, cancel := context.WithCancel(context.Background())
	conv := &fakeConversation{onOpen: cancel}
	d := newDispatcher(t, fastConfig(), conv, store)

	sent, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
	assert.True(t, store.Statuses()[0].Pending())
}

func TestNewDispatcherRequiresMessages(t *testing.T) {
	_, err := NewDispatcher(Config{}, &fakeConversation{}, memory.New(), nil)
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestHeaderPhoneMismatch(t *testing.T) {
	assert.False(t, headerPhoneMismatch("Robotics Club", "+919876543211"))
	assert.False(t, headerPhoneMismatch("+91 98765 43211", "+919876543211"))
	assert.True(t, headerPhoneMismatch("+91 11122 23334", "+919876543211"))
}
