package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"startup-revenue-alerts/internal/extract"
	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/resolve"
	"startup-revenue-alerts/internal/textnorm"
)

// ErrInvalidConfig marks configuration failures that must surface before
// any article is processed.
var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

// Options parameterise the per-article analysis pipeline. They are
// read-only inputs; the analyzer never mutates them.
type Options struct {
	ThresholdMillions   decimal.Decimal
	ContextWindowTokens int
	Rules               []extract.Rule
}

// Analyzer turns one article into zero or more revenue mentions. It is
// pure and stateless apart from configuration reads, so one instance is
// safe to share across worker goroutines.
type Analyzer struct {
	opts     Options
	resolver *resolve.Resolver
	logger   zerolog.Logger
}

// NewAnalyzer validates options and constructs the pipeline. Validation
// is fail-fast: a zero threshold or empty rule set would silently
// extract nothing, which is worse than refusing to start.
func NewAnalyzer(opts Options, logger zerolog.Logger) (*Analyzer, error) {
	if opts.ThresholdMillions.Sign() <= 0 {
		return nil, fmt.Errorf("%w: threshold_millions must be greater than zero", ErrInvalidConfig)
	}
	if opts.ContextWindowTokens <= 0 {
		return nil, fmt.Errorf("%w: context_window_tokens must be greater than zero", ErrInvalidConfig)
	}
	if len(opts.Rules) == 0 {
		return nil, fmt.Errorf("%w: amount rule set is empty", ErrInvalidConfig)
	}

	return &Analyzer{
		opts:     opts,
		resolver: resolve.New(opts.ContextWindowTokens),
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Analyze runs normalize, extract, resolve, and assemble over a single
// article. Extraction-level failures are absorbed here: a malformed
// figure or unresolvable company only shrinks the output.
func (a *Analyzer) Analyze(article mention.Article) []mention.RevenueMention {
	normalized := textnorm.Normalize(combinedText(article))

	candidates := extract.Extract(normalized, a.opts.Rules)
	if len(candidates) == 0 {
		return nil
	}

	resolved := make([]mention.RevenueMention, 0, len(candidates))
	for _, candidate := range candidates {
		company, confidence := a.resolver.Resolve(candidate, normalized)
		if company == "" {
			a.logger.Debug().
				Str("article_id", article.ID).
				Str("raw", candidate.RawText).
				Msg("dropping candidate without resolvable company")
			continue
		}
		resolved = append(resolved, mention.RevenueMention{
			ArticleID:      article.ID,
			Company:        company,
			AmountMillions: candidate.Value,
			Kind:           candidate.Kind,
			Confidence:     confidence,
			Span:           candidate.Span,
		})
	}

	mentions := mention.Assemble(resolved, a.opts.ThresholdMillions)
	if len(mentions) > 0 {
		a.logger.Debug().
			Str("article_id", article.ID).
			Int("candidates", len(candidates)).
			Int("mentions", len(mentions)).
			Msg("article analyzed")
	}
	return mentions
}

// combinedText joins title and body. The title gets a terminal period so
// short headline lines survive boilerplate filtering and segment as
// their own sentence.
func combinedText(article mention.Article) string {
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return article.Body
	}
	if !strings.HasSuffix(title, ".") && !strings.HasSuffix(title, "!") && !strings.HasSuffix(title, "?") {
		title += "."
	}
	return title + "\n" + article.Body
}
