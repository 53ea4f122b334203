package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Config holds the chat-completion endpoint settings.
type Config struct {
	BaseURL        string        // OpenAI-compatible API root, e.g. https://api.groq.com/openai/v1
	APIKey         string        // bearer token
	Model          string        // field extraction and offer selection
	MatchModel     string        // candidate matching (default: Model)
	DiscoveryModel string        // variation discovery (default: Model)
	Temperature    float64       // sampling temperature (default: 0.1)
	Timeout        time.Duration // per-call timeout (default: 60s)
}

// DefaultConfig returns defaults for everything but the endpoint and key.
func DefaultConfig() Config {
	return Config{
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.1,
		Timeout:     60 * time.Second,
	}
}

// Client is an Oracle backed by a chat-completions endpoint.
type Client struct {
	log  ectologger.Logger
	http *httpclient.Client
	cfg  Config
}

func NewClient(log ectologger.Logger, cfg Config) *Client {
	if cfg.MatchModel == "" {
		cfg.MatchModel = cfg.Model
	}
	if cfg.DiscoveryModel == "" {
		cfg.DiscoveryModel = cfg.Model
	}
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	return &Client{
		log:  log,
		http: httpclient.NewClient(httpCfg, log),
		cfg:  cfg,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one user prompt and returns the first choice's text.
func (c *Client) complete(ctx context.Context, op, model, prompt string) (string, error) {
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	resp, err := c.http.PostJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", headers, chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", c.fail(ctx, op, err)
	}

	var out chatResponse
	if err := httpclient.DecodeJSON(resp, &out); err != nil {
		return "", c.fail(ctx, op, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", c.fail(ctx, op, fmt.Errorf("empty completion"))
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	c.log.WithContext(ctx).Debugf("oracle %s raw output: %s", op, content)
	return content, nil
}

func (c *Client) fail(ctx context.Context, op string, err error) error {
	metrics.RecordOracleCall(op, "error")
	c.log.WithContext(ctx).WithError(err).Errorf("oracle %s failed", op)
	return errors.NewCollaboratorError(errors.Oracle, op, err)
}

func (c *Client) succeed(op string) {
	metrics.RecordOracleCall(op, "success")
}

type rawFields struct {
	Brand      string         `json:"brand"`
	Model      string         `json:"model"`
	Category   string         `json:"category"`
	Attributes map[string]any `json:"attributes"`
}

// ExtractFields reads brand, model, category and attributes out of a product
// title. Attribute keys are lowercased and values stringified. A response
// without brand or model is rejected.
func (c *Client) ExtractFields(ctx context.Context, text string) (models.ExtractedFields, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.Client.ExtractFields")
	defer span.End()

	content, err := c.complete(ctx, OpExtractFields, c.cfg.Model, fmt.Sprintf(extractFieldsPrompt, text))
	if err != nil {
		return models.ExtractedFields{}, err
	}

	var raw rawFields
	if err := DecodeObject(content, &raw); err != nil {
		return models.ExtractedFields{}, c.fail(ctx, OpExtractFields, err)
	}
	fields := models.ExtractedFields{
		Brand:      strings.TrimSpace(raw.Brand),
		Model:      strings.TrimSpace(raw.Model),
		Category:   strings.TrimSpace(raw.Category),
		Attributes: make(map[string]string, len(raw.Attributes)),
	}
	if fields.Brand == "" || fields.Model == "" {
		return models.ExtractedFields{}, c.fail(ctx, OpExtractFields, fmt.Errorf("missing brand or model in %q", content))
	}
	for k, v := range raw.Attributes {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if value := normalizers.Scalar(v); value != "" {
			fields.Attributes[key] = value
		}
	}

	c.succeed(OpExtractFields)
	return fields, nil
}

// MatchCandidates asks which candidates describe the same item. Every call
// and its decisions are logged.
func (c *Client) MatchCandidates(ctx context.Context, item models.MatchCandidate, candidates []models.MatchCandidate) ([]models.CandidateDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.Client.MatchCandidates")
	defer span.End()

	if len(candidates) == 0 {
		return []models.CandidateDecision{}, nil
	}

	prompt := fmt.Sprintf(matchCandidatesPrompt, indentJSON(item), indentJSON(candidates))
	content, err := c.complete(ctx, OpMatchCandidates, c.cfg.MatchModel, prompt)
	if err != nil {
		return nil, err
	}

	decisions, err := DecodeList[models.CandidateDecision](content)
	if err != nil {
		return nil, c.fail(ctx, OpMatchCandidates, err)
	}

	ids := ectolinq.Map(candidates, func(cand models.MatchCandidate) string { return cand.ID })
	c.log.WithContext(ctx).WithFields(map[string]any{
		"item":          item,
		"candidate_ids": ids,
		"decisions":     decisions,
	}).Info("oracle match decision")

	c.succeed(OpMatchCandidates)
	return decisions, nil
}

// DiscoverVariations lists the price-relevant variations of a product.
// Entries without a label are dropped; a missing differentiator falls back
// to the label.
func (c *Client) DiscoverVariations(ctx context.Context, brand, model string) ([]models.DiscoveredVariation, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.Client.DiscoverVariations")
	defer span.End()

	content, err := c.complete(ctx, OpDiscoverVariations, c.cfg.DiscoveryModel, fmt.Sprintf(discoverVariationsPrompt, brand, model))
	if err != nil {
		return nil, err
	}

	raw, err := DecodeList[models.DiscoveredVariation](content)
	if err != nil {
		return nil, c.fail(ctx, OpDiscoverVariations, err)
	}

	variations := make([]models.DiscoveredVariation, 0, len(raw))
	for _, v := range raw {
		v.Label = strings.TrimSpace(v.Label)
		v.Differentiator = strings.TrimSpace(v.Differentiator)
		if v.Label == "" {
			continue
		}
		if v.Differentiator == "" {
			v.Differentiator = v.Label
		}
		variations = append(variations, v)
	}

	c.succeed(OpDiscoverVariations)
	return variations, nil
}

// rawPick tolerates a numeric price
type rawPick struct {
	Source   string `json:"domain"`
	Title    string `json:"item"`
	URL      string `json:"item_page_url"`
	Price    any    `json:"item_current_price"`
	Currency string `json:"price_currency"`
}

// SelectBestOffers picks at most one listing per domain, with prices
// reported in currency. The picks are returned as parsed; callers validate
// them against what was shown.
func (c *Client) SelectBestOffers(ctx context.Context, item, currency string, groups []models.SourceListings) ([]models.SelectedOffer, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.Client.SelectBestOffers")
	defer span.End()

	if currency == "" {
		currency = "the local currency"
	}

	content, err := c.complete(ctx, OpSelectOffers, c.cfg.Model, fmt.Sprintf(selectOffersPrompt, item, currency, indentJSON(groups)))
	if err != nil {
		return nil, err
	}

	raw, err := DecodeList[rawPick](content)
	if err != nil {
		return nil, c.fail(ctx, OpSelectOffers, err)
	}

	picks := make([]models.SelectedOffer, 0, len(raw))
	for _, r := range raw {
		picks = append(picks, models.SelectedOffer{
			Source:   strings.TrimSpace(r.Source),
			Title:    strings.TrimSpace(r.Title),
			URL:      strings.TrimSpace(r.URL),
			Price:    normalizers.Scalar(r.Price),
			Currency: strings.TrimSpace(r.Currency),
		})
	}

	c.succeed(OpSelectOffers)
	return picks, nil
}
