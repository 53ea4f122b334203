package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// QueryPlaceholder is replaced by the escaped query in a website's search URL.
const QueryPlaceholder = "{query}"

// Config holds the crawling service settings.
type Config struct {
	BaseURL string        // crawling service root
	Timeout time.Duration // per-site request timeout (default: 90s)
}

// Client calls the crawling service once per website, concurrently, holding
// a Gate slot for the duration of each call.
type Client struct {
	log     ectologger.Logger
	http    *httpclient.Client
	gate    *Gate
	extract *Extractor
	cfg     Config
}

func NewClient(log ectologger.Logger, cfg Config, gate *Gate) *Client {
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	return &Client{
		log:     log,
		http:    httpclient.NewClient(httpCfg, log),
		gate:    gate,
		extract: NewExtractor(),
		cfg:     cfg,
	}
}

type crawlRequest struct {
	URL                  string `json:"url"`
	Domain               string `json:"domain"`
	ParticularSearchPath bool   `json:"particular_search_path"`
}

type rawListing struct {
	Title        string `json:"item"`
	Price        any    `json:"item_current_price"`
	Currency     string `json:"price_currency"`
	URL          string `json:"item_page_url"`
	ImageURL     string `json:"item_image_url"`
	Availability any    `json:"availability"`
}

// SearchURL fills a website's search template with the escaped query. A
// template without the placeholder gets the query appended as "q".
func SearchURL(template, query string) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", fmt.Errorf("empty search url")
	}
	if strings.Contains(template, QueryPlaceholder) {
		return strings.ReplaceAll(template, QueryPlaceholder, url.QueryEscape(query)), nil
	}
	u, err := url.Parse(template)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", template, err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SearchListings crawls every site concurrently. A failing site is logged
// and skipped; the call fails only when no slot could be acquired in time,
// when ctx is cancelled, or when every site failed. Results keep site order
// and sites without listings are omitted.
func (c *Client) SearchListings(ctx context.Context, query string, sites []models.Website) ([]models.SourceListings, error) {
	ctx, span := tracing.StartSpan(ctx, "crawler.Client.SearchListings")
	defer span.End()

	if len(sites) == 0 {
		return []models.SourceListings{}, nil
	}

	results := make([]*models.SourceListings, len(sites))
	var mu sync.Mutex
	var failures []error

	g, gctx := errgroup.WithContext(ctx)
	for i, site := range sites {
		g.Go(func() error {
			start := time.Now()
			release, err := c.gate.Acquire(gctx)
			waited := time.Since(start).Seconds()
			if err != nil {
				metrics.RecordCrawlSession("rejected", waited)
				return err
			}
			defer release()

			listings, err := c.crawlSite(gctx, query, site)
			if err != nil {
				metrics.RecordCrawlSession("failed", waited)
				c.log.WithContext(gctx).WithError(err).WithFields(map[string]any{
					"domain": site.Domain,
				}).Warn("crawl failed, skipping site")
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			metrics.RecordCrawlSession("success", waited)
			results[i] = listings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(failures) == len(sites) {
		return nil, errors.NewCollaboratorError(errors.Crawler, "search_listings", fmt.Errorf("all %d sites failed, first: %w", len(sites), failures[0]))
	}

	out := make([]models.SourceListings, 0, len(sites))
	for _, r := range results {
		if r != nil && len(r.Listings) > 0 {
			out = append(out, *r)
		}
	}

	c.log.WithContext(ctx).WithFields(map[string]any{
		"query":  query,
		"sites":  len(sites),
		"failed": len(failures),
		"found":  len(out),
	}).Info("crawl finished")
	return out, nil
}

func (c *Client) crawlSite(ctx context.Context, query string, site models.Website) (*models.SourceListings, error) {
	ctx, span := tracing.StartSpan(ctx, "crawler.Client.crawlSite")
	defer span.End()

	searchURL, err := SearchURL(site.SearchURL, query)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.PostJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/crawl", nil, crawlRequest{
		URL:                  searchURL,
		Domain:               site.Domain,
		ParticularSearchPath: site.ParticularSearchPath,
	})
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, httpclient.StatusError(resp)
	}
	path := ""
	if site.ListingPath != nil {
		path = strings.TrimSpace(*site.ListingPath)
	}
	extracted, err := c.extract.Listings(path, resp.Body)
	if err != nil {
		return nil, err
	}

	domain := normalizers.Domain(site.Domain)
	listings := make([]models.Listing, 0, len(extracted))
	for _, raw := range extracted {
		l := models.Listing{
			Title:        strings.TrimSpace(raw.Title),
			Price:        normalizers.Scalar(raw.Price),
			Currency:     strings.TrimSpace(raw.Currency),
			URL:          strings.TrimSpace(raw.URL),
			ImageURL:     strings.TrimSpace(raw.ImageURL),
			Availability: normalizers.Scalar(raw.Availability),
		}
		if l.Title == "" || l.URL == "" {
			continue
		}
		listings = append(listings, l)
	}
	return &models.SourceListings{Source: domain, Listings: listings}, nil
}
