// Package translator brings source text into the working language before extraction.
package translator

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Translator converts text to the working language.
type Translator interface {
	ToWorkingLanguage(ctx context.Context, text string) (string, error)
}

// Passthrough returns text unchanged. It is used when no translation service is configured.
type Passthrough struct{}

func (Passthrough) ToWorkingLanguage(_ context.Context, text string) (string, error) {
	return text, nil
}

// Config holds the translation service settings.
type Config struct {
	BaseURL    string
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

// Client calls a LibreTranslate-compatible /translate endpoint.
type Client struct {
	log  ectologger.Logger
	http *httpclient.Client
	cfg  Config
}

// New returns a Client, or Passthrough when cfg has no base URL.
func New(log ectologger.Logger, cfg Config) Translator {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Passthrough{}
	}
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	return &Client{log: log, http: httpclient.NewClient(httpCfg, log), cfg: cfg}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// ToWorkingLanguage translates text. Text that has no letters outside ASCII
// is already in the working language and is returned without a call.
func (c *Client) ToWorkingLanguage(ctx context.Context, text string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "translator.Client.ToWorkingLanguage")
	defer span.End()

	if isASCII(text) {
		return text, nil
	}

	resp, err := c.http.PostJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/translate", nil, translateRequest{
		Q:      text,
		Source: c.cfg.SourceLang,
		Target: c.cfg.TargetLang,
		Format: "text",
	})
	if err != nil {
		return "", errors.NewCollaboratorError(errors.Translator, "translate", err)
	}

	var out translateResponse
	if err := httpclient.DecodeJSON(resp, &out); err != nil {
		return "", errors.NewCollaboratorError(errors.Translator, "translate", err)
	}
	translated := strings.TrimSpace(out.TranslatedText)
	if translated == "" {
		return "", errors.NewCollaboratorErrorf(errors.Translator, "translate", "empty translation for %q", text)
	}

	c.log.WithContext(ctx).Debugf("translated %q -> %q", text, translated)
	return translated, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
