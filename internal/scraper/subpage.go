package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/extract"
)

// subPageKeywords selects which links off a business homepage are worth
// visiting for contact and role signals.
var subPageKeywords = []string{"about", "contact", "team", "career", "leadership", "faculty", "staff"}

// DeepScrapeResult aggregates signals from a website's home page and its
// visited sub-pages. Relevant is monotonic: once any page matches, it stays
// true.
type DeepScrapeResult struct {
	Emails         []string
	Phones         []string
	DecisionMakers []string
	Relevant       bool
}

// DeepScraper visits a listing's website and aggregates contact signals.
type DeepScraper interface {
	Scrape(ctx context.Context, baseURL string) DeepScrapeResult
}

// SubPageCrawler implements DeepScraper on a plain HTTP collector: business
// sites render contact details server-side, so the browser session stays
// free for map navigation.
type SubPageCrawler struct {
	classifier *extract.Classifier
	titles     []string
	maxPages   int
	userAgent  string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSubPageCrawler builds a crawler bounded to maxPages sub-page visits per
// site.
func NewSubPageCrawler(classifier *extract.Classifier, titles []string, maxPages int, userAgent string, timeout time.Duration, logger *zap.Logger) *SubPageCrawler {
	if maxPages <= 0 {
		maxPages = 3
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubPageCrawler{
		classifier: classifier,
		titles:     titles,
		maxPages:   maxPages,
		userAgent:  userAgent,
		timeout:    timeout,
		logger:     logger,
	}
}

// Scrape visits baseURL and up to maxPages keyword-matched same-domain
// links, folding every page's signals into one result. Errors on individual
// pages are swallowed; a site that cannot be reached at all simply yields an
// empty, irrelevant result.
func (c *SubPageCrawler) Scrape(ctx context.Context, baseURL string) DeepScrapeResult {
	result := DeepScrapeResult{}
	agg := newAggregator(&result)

	var subLinks []string
	linkSeen := make(map[string]struct{})

	collector := colly.NewCollector()
	if c.userAgent != "" {
		collector.UserAgent = c.userAgent
	}
	collector.SetRequestTimeout(c.timeout)

	// raw HTML catches mailto: and obfuscated addresses body text misses
	collector.OnResponse(func(r *colly.Response) {
		agg.addEmails(extract.Emails(string(r.Body)))
	})
	collector.OnHTML("body", func(e *colly.HTMLElement) {
		text := e.Text
		if c.classifier.Relevant(text) {
			result.Relevant = true
		}
		agg.addPhones(extract.Phones(text))
		agg.addDecisionMakers(extract.DecisionMakers(text, c.titles))
	})
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !matchesSubPageKeyword(href) {
			return
		}
		full := e.Request.AbsoluteURL(href)
		// coarse same-site test: the resolved link must contain the base URL
		if full == "" || !strings.Contains(full, baseURL) {
			return
		}
		if _, ok := linkSeen[full]; ok {
			return
		}
		linkSeen[full] = struct{}{}
		subLinks = append(subLinks, full)
	})

	if err := collector.Visit(baseURL); err != nil {
		c.logger.Debug("deep scrape home page failed", zap.String("url", baseURL), zap.Error(err))
		return result
	}
	collector.Wait()

	visited := 0
	for _, link := range subLinks {
		if visited >= c.maxPages || ctx.Err() != nil {
			break
		}
		visited++
		if err := collector.Visit(link); err != nil {
			c.logger.Debug("sub-page visit failed", zap.String("url", link), zap.Error(err))
			continue
		}
		collector.Wait()
	}
	return result
}

func matchesSubPageKeyword(href string) bool {
	lower := strings.ToLower(href)
	for _, kw := range subPageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// aggregator folds per-page extraction into the shared result, keeping
// first-appearance order and dropping repeats across pages.
type aggregator struct {
	result *DeepScrapeResult
	emails map[string]struct{}
	phones map[string]struct{}
	makers map[string]struct{}
}

func newAggregator(result *DeepScrapeResult) *aggregator {
	return &aggregator{
		result: result,
		emails: make(map[string]struct{}),
		phones: make(map[string]struct{}),
		makers: make(map[string]struct{}),
	}
}

func (a *aggregator) addEmails(vals []string) {
	for _, v := range vals {
		if _, ok := a.emails[v]; ok {
			continue
		}
		a.emails[v] = struct{}{}
		a.result.Emails = append(a.result.Emails, v)
	}
}

func (a *aggregator) addPhones(vals []string) {
	for _, v := range vals {
		if _, ok := a.phones[v]; ok {
			continue
		}
		a.phones[v] = struct{}{}
		a.result.Phones = append(a.result.Phones, v)
	}
}

func (a *aggregator) addDecisionMakers(vals []string) {
	for _, v := range vals {
		if _, ok := a.makers[v]; ok {
			continue
		}
		a.makers[v] = struct{}{}
		a.result.DecisionMakers = append(a.result.DecisionMakers, v)
	}
}
