package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/extract"
)

// Listing is the structured data pulled off one map listing page.
type Listing struct {
	Name    string
	Phone   string
	Website string
	Address string
	Rating  string
}

// Browser is the map-search surface the pipeline drives. The chromedp
// implementation talks to Google Maps; tests substitute a scripted fake.
type Browser interface {
	// OpenSearch navigates to the results feed for the rendered query text.
	OpenSearch(ctx context.Context, query string) error

	// DismissConsent clears a consent interstitial when one is shown.
	// Best-effort; its absence is not an error.
	DismissConsent(ctx context.Context)

	// ScrollResults scrolls the results feed by one round.
	ScrollResults(ctx context.Context) error

	// ResultLinks returns the listing URLs currently present in the feed.
	// Rounds may re-surface links already returned.
	ResultLinks(ctx context.Context) ([]string, error)

	// ListingDetails opens one listing URL and extracts its fields.
	ListingDetails(ctx context.Context, url string) (Listing, error)
}

const (
	resultAnchorSelector = `a[href*="google.com/maps/place"]`
	consentSelector      = `button[aria-label="Accept all"]`
	phoneSelector        = `button[data-item-id^="phone:tel:"]`
	websiteSelector      = `a[data-item-id="authority"]`
	addressSelector      = `button[data-item-id="address"]`
)

// MapsBrowser implements Browser on a chromedp session.
type MapsBrowser struct {
	session *browser.Session
	logger  *zap.Logger
}

// NewMapsBrowser wraps a live session, pinning it to a neutral location so
// results follow the query text rather than the host machine's IP.
func NewMapsBrowser(session *browser.Session, logger *zap.Logger) (*MapsBrowser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := session.NeutralLocation(); err != nil {
		return nil, err
	}
	return &MapsBrowser{session: session, logger: logger}, nil
}

// OpenSearch implements Browser.
func (b *MapsBrowser) OpenSearch(_ context.Context, query string) error {
	searchURL := "https://www.google.com/maps/search/?q=" + url.QueryEscape(query) + "&hl=en"
	return b.session.Navigate(searchURL)
}

// DismissConsent implements Browser.
func (b *MapsBrowser) DismissConsent(ctx context.Context) {
	clickCtx, cancel := context.WithTimeout(b.session.Ctx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(clickCtx, chromedp.Click(consentSelector, chromedp.ByQuery)); err != nil {
		b.logger.Debug("no consent interstitial", zap.Error(err))
	}
}

// ScrollResults implements Browser.
func (b *MapsBrowser) ScrollResults(_ context.Context) error {
	if err := chromedp.Run(b.session.Ctx, chromedp.Evaluate(`window.scrollBy(0, 2000)`, nil)); err != nil {
		return fmt.Errorf("scroll results: %w", err)
	}
	return nil
}

// ResultLinks implements Browser.
func (b *MapsBrowser) ResultLinks(_ context.Context) ([]string, error) {
	var hrefs []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(a => a.href).filter(h => h)`,
		resultAnchorSelector)
	if err := chromedp.Run(b.session.Ctx, chromedp.Evaluate(js, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect result links: %w", err)
	}
	return hrefs, nil
}

// ListingDetails implements Browser. Every field except the name is optional
// on the listing page; missing elements yield empty strings rather than
// errors.
func (b *MapsBrowser) ListingDetails(_ context.Context, listingURL string) (Listing, error) {
	if err := b.session.Navigate(listingURL); err != nil {
		return Listing{}, err
	}

	var name string
	nameCtx, cancel := context.WithTimeout(b.session.Ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(nameCtx, chromedp.Text("h1", &name, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return Listing{}, fmt.Errorf("extract listing name: %w", err)
	}

	listing := Listing{Name: extract.CleanText(name)}

	if label, ok := b.attribute(phoneSelector, "aria-label"); ok {
		listing.Phone = extract.CleanText(strings.Replace(label, "Phone:", "", 1))
	}
	if href, ok := b.attribute(websiteSelector, "href"); ok {
		listing.Website = href
	}
	if label, ok := b.attribute(addressSelector, "aria-label"); ok {
		listing.Address = extract.CleanText(strings.Replace(label, "Address:", "", 1))
	}
	listing.Rating = b.rating()

	return listing, nil
}

// attribute fetches one attribute under a short timeout; the zero result
// means the element is not on this listing.
func (b *MapsBrowser) attribute(selector, name string) (string, bool) {
	ctx, cancel := context.WithTimeout(b.session.Ctx, 3*time.Second)
	defer cancel()
	var value string
	var ok bool
	if err := chromedp.Run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", false
	}
	return value, ok
}

// rating reads the star rating off the aria-label of the review summary.
func (b *MapsBrowser) rating() string {
	ctx, cancel := context.WithTimeout(b.session.Ctx, 3*time.Second)
	defer cancel()
	var label string
	js := `(() => {
		const el = document.querySelector('span[role="img"][aria-label*="star"]');
		return el ? el.getAttribute('aria-label') : '';
	})()`
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &label)); err != nil {
		return ""
	}
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
