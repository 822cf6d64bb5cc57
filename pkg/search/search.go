// Package search resolves a customer-supplied business name to a tenant.
// It sits outside the resolver on purpose: routing decides *whether* the
// message is a referral, search decides *which* tenant it names.
package search

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// maxSuffixAttempts bounds how many trailing word windows of the message are
// tried against the tenant index.
const maxSuffixAttempts = 8

// TenantFinder is the slice of the tenant repository search needs.
type TenantFinder interface {
	Search(ctx context.Context, query string, limit int) ([]*models.Tenant, error)
}

// Service performs referral business-name lookups.
type Service struct {
	finder TenantFinder
	logger ectologger.Logger
}

// NewService creates a search service.
func NewService(finder TenantFinder, logger ectologger.Logger) *Service {
	return &Service{
		finder: finder,
		logger: logger,
	}
}

// BestMatch finds the tenant a free-text message most plausibly names.
// The full message is tried first, then progressively shorter trailing word
// windows, since customers lead with greetings ("Hi, I want to connect with
// Acme Events"). Returns nil when nothing matches unambiguously.
func (s *Service) BestMatch(ctx context.Context, messageText string) (*models.TenantSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "Search.BestMatch")
	defer span.End()

	words := strings.Fields(cleanQuery(messageText))
	if len(words) == 0 {
		metrics.ReferralSearchesTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	attempts := len(words)
	if attempts > maxSuffixAttempts {
		attempts = maxSuffixAttempts
	}

	for i := 0; i < attempts; i++ {
		query := strings.Join(words[len(words)-attempts+i:], " ")
		tenants, err := s.finder.Search(ctx, query, 2)
		if err != nil {
			metrics.ReferralSearchesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if len(tenants) == 1 {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"query":     query,
				"tenant_id": tenants[0].ID,
			}).Debug("Referral search matched tenant")
			metrics.ReferralSearchesTotal.WithLabelValues("matched").Inc()
			summary := tenants[0].Summary()
			return &summary, nil
		}
		// More than one hit is ambiguous at this window; a shorter
		// window only gets broader, so stop.
		if len(tenants) > 1 {
			metrics.ReferralSearchesTotal.WithLabelValues("ambiguous").Inc()
			return nil, nil
		}
	}

	metrics.ReferralSearchesTotal.WithLabelValues("no_match").Inc()
	return nil, nil
}

// cleanQuery strips punctuation that customers include but business names
// rarely do.
func cleanQuery(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '!', '?', ';', ':', '"', '\'':
			return ' '
		}
		return r
	}, text)
}
