package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/market"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/oracle"
)

// Evaluation is the evaluator's output for one swap.
type Evaluation struct {
	Decision  domain.AgentDecision
	Market    *domain.MarketData    // nil when the fetch failed
	Sentiment *domain.SentimentData // nil when the fetch failed
	Source    string                // oracle source of Decision
}

// OpportunityEvaluator fuses market, sentiment and oracle signals.
type OpportunityEvaluator struct {
	markets   market.DataSource
	sentiment market.SentimentSource
	oracle    oracle.Oracle
	logger    logrus.FieldLogger
}

// NewOpportunityEvaluator creates an evaluator. A nil logger uses the standard logger.
func NewOpportunityEvaluator(markets market.DataSource, sentiment market.SentimentSource, o oracle.Oracle, logger logrus.FieldLogger) *OpportunityEvaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OpportunityEvaluator{
		markets:   markets,
		sentiment: sentiment,
		oracle:    o,
		logger:    logger.WithField("component", "evaluator"),
	}
}

// Evaluate fetches both snapshots concurrently, then asks the oracle.
// Snapshot failures degrade to nil; only an oracle error is returned.
func (e *OpportunityEvaluator) Evaluate(ctx context.Context, tx domain.SwapTransaction) (*Evaluation, error) {
	log := e.logger.WithField("pair", tx.Pair())

	var (
		md *domain.MarketData
		sd *domain.SentimentData
		g  errgroup.Group
	)
	g.Go(func() error {
		data, err := e.markets.MarketData(ctx, []string{tx.TokenIn, tx.TokenOut})
		if err != nil {
			log.WithError(err).Warn("market data unavailable")
			return nil
		}
		md = data
		return nil
	})
	g.Go(func() error {
		data, err := e.sentiment.Sentiment(ctx, tx.TokenOut)
		if err != nil {
			log.WithError(err).Warn("sentiment unavailable")
			return nil
		}
		sd = data
		return nil
	})
	_ = g.Wait()

	req := oracle.Request{Tx: tx}
	if md != nil {
		raw, err := json.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("marshal market data: %w", err)
		}
		req.MarketJSON = raw
	}
	if sd != nil {
		raw, err := json.Marshal(sd)
		if err != nil {
			return nil, fmt.Errorf("marshal sentiment: %w", err)
		}
		req.SentimentJSON = raw
	}

	decision, err := e.oracle.Evaluate(ctx, req)
	if err != nil {
		return nil, domain.NewError(domain.ErrOracle, "evaluator.Evaluate", err)
	}

	source := oracle.SourceHeuristic
	if s, ok := e.oracle.(oracle.Sourced); ok {
		source = s.LastSource()
	}

	observability.RecordEvaluation(decision.Action, decision.OpportunityScore)
	log.WithFields(logrus.Fields{
		"score":  decision.OpportunityScore,
		"action": decision.Action,
		"risk":   decision.RiskLevel,
		"source": source,
	}).Debug("opportunity evaluated")

	return &Evaluation{
		Decision:  decision,
		Market:    md,
		Sentiment: sd,
		Source:    source,
	}, nil
}
