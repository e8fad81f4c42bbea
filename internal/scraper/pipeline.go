// Package scraper contains the discovery side of the system: the map-search
// pagination crawler, the listing inspector, the website sub-page crawler,
// and the pipeline driver that runs them per query.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/extract"
	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/metrics"
)

// Reject reasons recorded per dropped candidate.
const (
	rejectDuplicateName    = "duplicate name"
	rejectDuplicatePhone   = "duplicate phone"
	rejectLowRelevance     = "low relevance"
	rejectUnknownRelevance = "unknown relevance"
	rejectStoreDuplicate   = "store duplicate"
)

// Config parameterizes one discovery run.
type Config struct {
	Keywords            map[string][]string `mapstructure:"keywords"`
	RelevanceKeywords   []string            `mapstructure:"relevance_keywords"`
	DecisionMakerTitles []string            `mapstructure:"decision_maker_titles"`
	Locations           []string            `mapstructure:"locations"`

	// Limit caps accepted leads across the whole run; zero means unlimited.
	Limit int `mapstructure:"limit"`
	// MaxPerQuery caps candidate listings collected per query.
	MaxPerQuery int `mapstructure:"max_per_query"`
	// StableRounds is how many consecutive scroll rounds may yield no new
	// anchors before the feed is considered exhausted.
	StableRounds int `mapstructure:"stable_rounds"`

	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// SubPages bounds deep-scrape sub-page visits per website.
	SubPages    int           `mapstructure:"sub_pages"`
	UserAgent   string        `mapstructure:"user_agent"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

func (c *Config) applyDefaults() {
	if c.MaxPerQuery <= 0 {
		c.MaxPerQuery = 10
	}
	if c.StableRounds <= 0 {
		c.StableRounds = 5
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 500 * time.Millisecond
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay + time.Second
	}
	if c.SubPages <= 0 {
		c.SubPages = 3
	}
}

// Pipeline runs discovery end to end for one configuration: seed the dedup
// registry from the store, walk the shuffled keyword-location queries, and
// persist every accepted lead.
type Pipeline struct {
	cfg        Config
	browser    Browser
	deep       DeepScraper
	store      leads.Store
	classifier *extract.Classifier
	registry   *leads.Registry
	rnd        *rand.Rand
	logger     *zap.Logger
}

// New builds a pipeline. The deep scraper may be nil, in which case a
// SubPageCrawler is constructed from the config.
func New(cfg Config, b Browser, deep DeepScraper, store leads.Store, logger *zap.Logger) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	classifier := extract.NewClassifier(cfg.RelevanceKeywords)
	if deep == nil {
		deep = NewSubPageCrawler(classifier, cfg.DecisionMakerTitles, cfg.SubPages, cfg.UserAgent, cfg.HTTPTimeout, logger)
	}
	return &Pipeline{
		cfg:        cfg,
		browser:    b,
		deep:       deep,
		store:      store,
		classifier: classifier,
		registry:   leads.NewRegistry(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger,
	}
}

// Run executes the full discovery loop and returns the number of leads
// persisted. A store failure during seeding aborts the run before any
// browsing; per-query and per-listing failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	phones, names, err := p.store.LoadExisting(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed dedup registry: %w", err)
	}
	p.registry.Seed(phones, names)
	knownPhones, knownNames := p.registry.Size()
	p.logger.Info("dedup registry seeded",
		zap.Int("phones", knownPhones),
		zap.Int("names", knownNames))

	queries := leads.BuildQueries(p.cfg.Keywords, p.cfg.Locations)
	leads.ShuffleQueries(queries, p.rnd)
	p.logger.Info("search queries generated", zap.Int("count", len(queries)))

	accepted := 0
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		if p.cfg.Limit > 0 && accepted >= p.cfg.Limit {
			break
		}
		n, err := p.runQuery(ctx, q, accepted)
		accepted += n
		metrics.QueryProcessed()
		if err != nil {
			if ctx.Err() != nil {
				return accepted, ctx.Err()
			}
			p.logger.Warn("query abandoned", zap.String("query", q.Text), zap.Error(err))
		}
	}
	p.logger.Info("discovery run complete", zap.Int("accepted", accepted))
	return accepted, nil
}

// runQuery collects candidates for one query and inspects each, returning
// how many leads it persisted.
func (p *Pipeline) runQuery(ctx context.Context, q leads.SearchQuery, alreadyAccepted int) (int, error) {
	p.logger.Info("processing query", zap.String("query", q.Text), zap.String("category", q.Category))

	candidates, err := p.collectCandidates(ctx, q)
	if err != nil {
		return 0, err
	}
	p.logger.Info("candidates collected", zap.String("query", q.Text), zap.Int("count", len(candidates)))

	accepted := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		if p.cfg.Limit > 0 && alreadyAccepted+accepted >= p.cfg.Limit {
			break
		}
		ok, reason, err := p.inspect(ctx, q, candidate)
		if err != nil {
			p.logger.Warn("listing abandoned", zap.String("url", candidate), zap.Error(err))
			continue
		}
		if ok {
			accepted++
			metrics.LeadAccepted()
		} else {
			metrics.LeadRejected(reason)
			p.logger.Debug("listing rejected", zap.String("url", candidate), zap.String("reason", reason))
		}
		if err := browser.HumanDelay(ctx, p.rnd, p.cfg.MinDelay, p.cfg.MaxDelay); err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

// collectCandidates drives the pagination loop for one query: scroll the
// feed, re-collect anchors, and stop when the candidate cap is reached or
// StableRounds consecutive rounds surface nothing new.
func (p *Pipeline) collectCandidates(ctx context.Context, q leads.SearchQuery) ([]string, error) {
	if err := p.browser.OpenSearch(ctx, q.Text); err != nil {
		return nil, fmt.Errorf("open search: %w", err)
	}
	p.browser.DismissConsent(ctx)

	seen := make(map[string]struct{})
	var candidates []string
	stable := 0

	for len(candidates) < p.cfg.MaxPerQuery && stable < p.cfg.StableRounds {
		if err := ctx.Err(); err != nil {
			return candidates, err
		}
		if err := p.browser.ScrollResults(ctx); err != nil {
			return candidates, fmt.Errorf("scroll results: %w", err)
		}
		if err := browser.HumanDelay(ctx, p.rnd, p.cfg.MinDelay/2, p.cfg.MaxDelay/2); err != nil {
			return candidates, err
		}

		links, err := p.browser.ResultLinks(ctx)
		if err != nil {
			return candidates, fmt.Errorf("collect links: %w", err)
		}
		grew := false
		for _, link := range links {
			if link == "" {
				continue
			}
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			candidates = append(candidates, link)
			grew = true
			if len(candidates) >= p.cfg.MaxPerQuery {
				break
			}
		}
		if grew {
			stable = 0
		} else {
			stable++
		}
	}
	return candidates, nil
}

// inspect opens one candidate and walks the accept gates in cheapest-first
// order: name dedup, phone dedup, deep-scrape relevance, then the store's
// own append-if-new check, which stays authoritative over the registry.
func (p *Pipeline) inspect(ctx context.Context, q leads.SearchQuery, candidateURL string) (bool, string, error) {
	listing, err := p.browser.ListingDetails(ctx, candidateURL)
	if err != nil {
		return false, "", fmt.Errorf("listing details: %w", err)
	}

	if p.registry.SeenName(listing.Name) {
		return false, rejectDuplicateName, nil
	}
	if listing.Phone != "" && p.registry.SeenPhone(listing.Phone) {
		return false, rejectDuplicatePhone, nil
	}

	var deep DeepScrapeResult
	if listing.Website != "" {
		deep = p.deep.Scrape(ctx, listing.Website)
	} else if p.classifier.Empty() {
		// nothing to check relevance against, accept on listing data alone
		deep.Relevant = true
	} else {
		return false, rejectUnknownRelevance, nil
	}
	if !deep.Relevant {
		return false, rejectLowRelevance, nil
	}

	lead := leads.Lead{
		Name:       listing.Name,
		Phone:      listing.Phone,
		Profession: q.Category,
		Website:    listing.Website,
		Address:    listing.Address,
		Query:      q.Text,
		Rating:     listing.Rating,
	}
	if len(deep.Emails) > 0 {
		lead.Email = deep.Emails[0]
	}
	if lead.Phone == "" && len(deep.Phones) > 0 {
		lead.Phone = deep.Phones[0]
	}

	wrote, err := p.store.AppendIfNew(ctx, lead)
	if err != nil {
		return false, "", fmt.Errorf("persist lead: %w", err)
	}
	if !wrote {
		return false, rejectStoreDuplicate, nil
	}
	p.registry.Add(lead)
	p.logger.Info("lead accepted",
		zap.String("name", lead.Name),
		zap.String("phone", lead.Phone),
		zap.String("query", q.Text))
	return true, "", nil
}
