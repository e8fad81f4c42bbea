package whatsapp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/browser"
)

// Conversation is the messaging web client surface the dispatcher drives.
// The chromedp implementation talks to WhatsApp Web; tests substitute a
// scripted fake.
type Conversation interface {
	// WaitLogin opens the client and blocks until the chat list is visible,
	// giving the operator time to scan the QR code on a fresh profile.
	WaitLogin(ctx context.Context) error

	// Reset closes whatever chat is open so the next navigation starts clean.
	Reset()

	// Open navigates the deep link for phone with message pre-filled.
	Open(ctx context.Context, phone, message string) error

	// InputReady reports whether a message input exists right now.
	InputReady() bool

	// WaitInput blocks until the chat's message input is usable, reporting
	// whether it appeared.
	WaitInput(ctx context.Context) bool

	// InvalidPopup reports whether the invalid-number modal is showing.
	InvalidPopup() bool

	// Header returns the open conversation's header text.
	Header() (string, error)

	// Wake focuses the input and performs a throwaway keystroke so the send
	// control activates.
	Wake()

	// Submit performs the primary send gesture on the input.
	Submit() error

	// SendControlVisible reports whether a send button is still showing.
	SendControlVisible() bool

	// ClickSend performs the fallback send gesture.
	ClickSend() error

	// Draft returns whatever text remains in the input.
	Draft() (string, error)

	// ClearDraft empties the input so a stuck draft cannot block the next
	// navigation.
	ClearDraft() error
}

const (
	inputSelector        = `#main footer div[contenteditable="true"][role="textbox"]`
	inputFooterFallback  = `#main footer div[contenteditable="true"]`
	inputAriaFallback    = `div[aria-placeholder="Type a message"]`
	chatListSelector     = `div[id="pane-side"]`
	invalidPopupSelector = `div[data-animate-modal-popup="true"]`
	headerSelector       = `#main header`
)

var sendSelectors = []string{
	`span[data-icon="send"]`,
	`button[aria-label="Send"]`,
	`div[aria-label="Send"]`,
	`span[data-testid="send"]`,
}

// WebConversation implements Conversation on a chromedp session pointed at
// WhatsApp Web. The session should use a persistent profile so a scanned
// login survives between runs.
type WebConversation struct {
	session *browser.Session
	logger  *zap.Logger

	// LoginTimeout bounds the QR-scan wait; defaults to 5 minutes.
	LoginTimeout time.Duration

	inputSel string
}

// NewWebConversation wraps a live session.
func NewWebConversation(session *browser.Session, logger *zap.Logger) *WebConversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebConversation{
		session:      session,
		logger:       logger,
		LoginTimeout: 5 * time.Minute,
		inputSel:     inputSelector,
	}
}

// WaitLogin implements Conversation.
func (c *WebConversation) WaitLogin(ctx context.Context) error {
	if err := c.session.Navigate("https://web.whatsapp.com/"); err != nil {
		return err
	}
	c.logger.Info("waiting for login, scan the QR code if prompted")
	waitCtx, cancel := context.WithTimeout(c.session.Ctx, c.LoginTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(chatListSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for login: %w", err)
	}
	c.logger.Info("logged in")
	return nil
}

// Reset implements Conversation.
func (c *WebConversation) Reset() {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 3*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.KeyEvent(kb.Escape)); err != nil {
		c.logger.Debug("reset keystroke failed", zap.Error(err))
	}
}

// Open implements Conversation. The single-page client needs a settle pause
// after navigation before its DOM reflects the new chat.
func (c *WebConversation) Open(ctx context.Context, phone, message string) error {
	deepLink := fmt.Sprintf("https://web.whatsapp.com/send?phone=%s&text=%s",
		url.QueryEscape(phone), url.QueryEscape(message))
	if err := c.session.Navigate(deepLink); err != nil {
		return err
	}
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// InputReady implements Conversation.
func (c *WebConversation) InputReady() bool {
	return c.exists(`div[contenteditable="true"][role="textbox"]`) ||
		c.exists(`div[contenteditable="true"]`)
}

// WaitInput implements Conversation, walking the selector fallbacks the way
// the client has historically renamed its input box.
func (c *WebConversation) WaitInput(_ context.Context) bool {
	if c.waitVisible(inputSelector, 20*time.Second) {
		c.inputSel = inputSelector
		return true
	}
	if c.waitVisible(inputFooterFallback, 5*time.Second) {
		c.inputSel = inputFooterFallback
		return true
	}
	if c.waitVisible(inputAriaFallback, 5*time.Second) {
		c.inputSel = inputAriaFallback
		return true
	}
	return false
}

// InvalidPopup implements Conversation.
func (c *WebConversation) InvalidPopup() bool {
	return c.exists(invalidPopupSelector)
}

// Header implements Conversation.
func (c *WebConversation) Header() (string, error) {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
	defer cancel()
	var text string
	if err := chromedp.Run(ctx, chromedp.Text(headerSelector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read chat header: %w", err)
	}
	return text, nil
}

// Wake implements Conversation.
func (c *WebConversation) Wake() {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.Click(c.inputSel, chromedp.ByQuery),
		chromedp.SendKeys(c.inputSel, " ", chromedp.ByQuery),
		chromedp.SendKeys(c.inputSel, kb.Backspace, chromedp.ByQuery),
	)
	if err != nil {
		c.logger.Debug("wake keystroke failed", zap.Error(err))
	}
}

// Submit implements Conversation.
func (c *WebConversation) Submit() error {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.SendKeys(c.inputSel, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	return nil
}

// SendControlVisible implements Conversation.
func (c *WebConversation) SendControlVisible() bool {
	for _, sel := range sendSelectors {
		if c.exists(sel) {
			return true
		}
	}
	return false
}

// ClickSend implements Conversation.
func (c *WebConversation) ClickSend() error {
	for _, sel := range sendSelectors {
		if !c.exists(sel) {
			continue
		}
		ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
		err := chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery))
		cancel()
		if err != nil {
			return fmt.Errorf("click send control: %w", err)
		}
		return nil
	}
	return nil
}

// Draft implements Conversation.
func (c *WebConversation) Draft() (string, error) {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
	defer cancel()
	var text string
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent : '';
	})()`, c.inputSel)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	return text, nil
}

// ClearDraft implements Conversation.
func (c *WebConversation) ClearDraft() error {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 5*time.Second)
	defer cancel()
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) { el.textContent = ''; }
	})()`, c.inputSel)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

func (c *WebConversation) exists(selector string) bool {
	ctx, cancel := context.WithTimeout(c.session.Ctx, 2*time.Second)
	defer cancel()
	var found bool
	js := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return false
	}
	return found
}

func (c *WebConversation) waitVisible(selector string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(c.session.Ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)) == nil
}
