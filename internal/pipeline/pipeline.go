// Package pipeline runs the sequential evaluate → decide → execute loop over
// the swap queue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/evaluator"
	"solana-mev-agent/internal/notify"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/storage"
)

// ErrQueueClosed is returned by Run when the producer closes the queue.
var ErrQueueClosed = errors.New("swap queue closed")

// Evaluator produces the oracle verdict for one swap.
type Evaluator interface {
	Evaluate(ctx context.Context, tx domain.SwapTransaction) (*evaluator.Evaluation, error)
}

// Executor simulates and sends trade decisions.
type Executor interface {
	Simulate(ctx context.Context, d *domain.TradeDecision) (bool, error)
	Execute(ctx context.Context, d *domain.TradeDecision) (string, error)
}

// Deps are the pipeline stages. Notifier and Evaluations are optional.
type Deps struct {
	Evaluator     Evaluator
	Scorer        *evaluator.Scorer
	DecisionMaker *evaluator.DecisionMaker
	RiskAnalyzer  *evaluator.RiskAnalyzer
	Executor      Executor
	Notifier      notify.Notifier
	TradeLog      storage.TradeLogStore
	Evaluations   storage.EvaluationStore
}

// Result is where processing of one swap stopped.
type Result string

// Processing results.
const (
	ResultEvaluationFailed Result = "evaluation_failed"
	ResultScoreRejected    Result = "score_rejected"
	ResultDecisionSkipped  Result = "decision_skipped"
	ResultSimulationError  Result = "simulation_error"
	ResultSimulationFailed Result = "simulation_failed"
	ResultExecutionFailed  Result = "execution_failed"
	ResultExecuted         Result = "executed"
)

// Outcome describes one processed swap.
type Outcome struct {
	Result    Result
	Score     domain.OpportunityScore
	Decision  *domain.TradeDecision // nil unless both gates passed
	Signature string
	Err       error
}

// Pipeline consumes swaps one at a time.
type Pipeline struct {
	deps   Deps
	logger logrus.FieldLogger
	tracer trace.Tracer
	clock  func() time.Time
	newID  func() string
}

// New creates a pipeline. A nil logger uses the logrus standard logger.
func New(deps Deps, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Pipeline{
		deps:   deps,
		logger: logger.WithField("component", "pipeline"),
		tracer: observability.Tracer(),
		clock:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// WithClock sets the clock used for trade log timestamps.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// WithIDGenerator sets the trade log id generator.
func (p *Pipeline) WithIDGenerator(gen func() string) *Pipeline {
	p.newID = gen
	return p
}

// Run processes swaps from in until ctx is cancelled (returns nil) or in is
// closed (returns ErrQueueClosed). Cancellation is observed between swaps; a
// swap already being processed runs to completion.
func (p *Pipeline) Run(ctx context.Context, in <-chan domain.SwapTransaction) error {
	p.logger.Info("pipeline started")
	work := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped")
			return nil
		case tx, ok := <-in:
			if !ok {
				return ErrQueueClosed
			}
			// A cancelled ctx wins over a ready swap.
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopped")
				return nil
			}
			observability.SetQueueLength(len(in))
			p.Process(work, tx)
		}
	}
}

// Process runs one swap through every stage.
func (p *Pipeline) Process(ctx context.Context, tx domain.SwapTransaction) Outcome {
	ctx, span := p.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("swap.pair", tx.Pair()),
		attribute.String("swap.pool", tx.PoolName),
		attribute.String("swap.signature", tx.Signature),
		attribute.Int64("swap.slot", tx.Slot),
	))
	defer span.End()
	defer observability.MarkSwapProcessed(tx.Timestamp)

	out := p.process(ctx, tx)

	span.SetAttributes(attribute.String("pipeline.result", string(out.Result)))
	if out.Decision != nil {
		span.SetAttributes(attribute.String("decision.strategy", out.Decision.Strategy.String()))
	}
	observability.RecordError(ctx, out.Err)
	return out
}

func (p *Pipeline) process(ctx context.Context, tx domain.SwapTransaction) Outcome {
	log := p.logger.WithFields(logrus.Fields{
		"pair":      tx.Pair(),
		"pool":      tx.PoolName,
		"amount":    tx.AmountIn,
		"signature": tx.Signature,
	})

	eval, err := p.deps.Evaluator.Evaluate(ctx, tx)
	if err != nil {
		log.WithError(err).WithField("reason", "evaluation").Warn("swap skipped")
		return Outcome{Result: ResultEvaluationFailed, Err: err}
	}

	score := p.deps.Scorer.Score(eval.Decision, tx)
	analyzed := p.assessRisk(tx, eval)
	should := p.deps.Scorer.ShouldExecute(score)

	var (
		decision *domain.TradeDecision
		ok       bool
	)
	if should {
		decision, ok = p.deps.DecisionMaker.Decide(eval.Decision, score, tx)
	}
	p.recordEvaluation(ctx, log, tx, eval, score, analyzed, should, decision)

	log = log.WithFields(logrus.Fields{
		"mev_score":     score.MEVScore,
		"risk_level":    score.RiskLevel,
		"analyzed_risk": analyzed,
	})

	if !should {
		log.WithField("reason", "score").Debug("opportunity score too low, skipping")
		return Outcome{Result: ResultScoreRejected, Score: score}
	}
	if !ok {
		log.WithField("reason", "decision").Debug("decision maker chose not to trade")
		return Outcome{Result: ResultDecisionSkipped, Score: score}
	}

	observability.RecordDecision(decision.Strategy.String())
	log = log.WithFields(logrus.Fields{"strategy": decision.Strategy, "decision_id": decision.ID})
	log.WithField("expected_min_out", decision.ExpectedMinOut).Info("opportunity detected")

	if err := p.deps.Notifier.NotifyOpportunityDetected(ctx, decision); err != nil {
		log.WithError(err).Warn("opportunity notification failed")
	}

	passed, err := p.deps.Executor.Simulate(ctx, decision)
	if err != nil {
		log.WithError(err).WithField("reason", "simulation_error").Error("simulation error, skipping execution")
		return Outcome{Result: ResultSimulationError, Score: score, Decision: decision, Err: err}
	}
	if !passed {
		log.WithField("reason", "simulation_failed").Info("simulation failed, skipping execution")
		return Outcome{Result: ResultSimulationFailed, Score: score, Decision: decision}
	}

	sig, err := p.deps.Executor.Execute(ctx, decision)
	if err != nil {
		log.WithError(err).WithField("reason", "execution").Error("trade execution failed")
		p.appendTrade(ctx, log, failedTrade(decision, err))
		return Outcome{Result: ResultExecutionFailed, Score: score, Decision: decision, Err: err}
	}

	log.WithField("tx_signature", sig).Info("trade executed")
	p.appendTrade(ctx, log, committedTrade(decision, sig))

	if err := p.deps.Notifier.NotifyTradeExecuted(ctx, decision, sig); err != nil {
		log.WithError(err).Warn("execution notification failed")
	}
	return Outcome{Result: ResultExecuted, Score: score, Decision: decision, Signature: sig}
}

func (p *Pipeline) assessRisk(tx domain.SwapTransaction, eval *evaluator.Evaluation) uint8 {
	if p.deps.RiskAnalyzer == nil {
		return 0
	}
	level := p.deps.RiskAnalyzer.Assess(tx, eval.Market, eval.Sentiment)
	if !p.deps.RiskAnalyzer.IsWithinTolerance(level) {
		p.logger.WithFields(logrus.Fields{
			"pair":      tx.Pair(),
			"risk":      level,
			"tolerance": p.deps.RiskAnalyzer.Tolerance(),
		}).Debug("risk above tolerance")
	}
	return level
}

func (p *Pipeline) recordEvaluation(ctx context.Context, log logrus.FieldLogger, tx domain.SwapTransaction,
	eval *evaluator.Evaluation, score domain.OpportunityScore, analyzed uint8, should bool, decision *domain.TradeDecision) {
	if p.deps.Evaluations == nil {
		return
	}

	rec := &domain.EvaluationRecord{
		Signature:        tx.Signature,
		Slot:             tx.Slot,
		TokenIn:          tx.TokenIn,
		TokenOut:         tx.TokenOut,
		PoolName:         tx.PoolName,
		AmountIn:         tx.AmountIn,
		Slippage:         tx.Slippage,
		OracleSource:     eval.Source,
		OpportunityScore: eval.Decision.OpportunityScore,
		Action:           eval.Decision.Action,
		AgentRisk:        eval.Decision.RiskLevel,
		MEVScore:         score.MEVScore,
		Confidence:       score.Confidence,
		Profitability:    score.Profitability,
		RiskLevel:        score.RiskLevel,
		AnalyzedRisk:     analyzed,
		ShouldExecute:    should,
		EvaluatedAt:      p.clock().UnixMilli(),
	}
	if decision != nil {
		s := decision.Strategy.String()
		rec.Strategy = &s
	}

	if err := p.deps.Evaluations.Insert(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record evaluation")
	}
}

func (p *Pipeline) appendTrade(ctx context.Context, log logrus.FieldLogger, l *domain.TradeLog) {
	if p.deps.TradeLog == nil {
		return
	}
	l.ID = p.newID()
	l.Timestamp = p.clock()
	if err := p.deps.TradeLog.Append(ctx, l); err != nil {
		log.WithError(err).Error("failed to log trade")
	}
}

// committedTrade records the minimum expected output; realized output and
// profit are not known at send time.
func committedTrade(d *domain.TradeDecision, sig string) *domain.TradeLog {
	out := d.ExpectedMinOut
	notes := fmt.Sprintf("Confidence: %v", d.ConfidenceScore)
	return &domain.TradeLog{
		DecisionID:  d.ID,
		TokenIn:     d.TokenIn,
		TokenOut:    d.TokenOut,
		AmountIn:    d.AmountIn,
		AmountOut:   &out,
		Strategy:    d.Strategy,
		TxSignature: &sig,
		Success:     true,
		Notes:       &notes,
	}
}

func failedTrade(d *domain.TradeDecision, err error) *domain.TradeLog {
	notes := "Error: " + err.Error()
	return &domain.TradeLog{
		DecisionID: d.ID,
		TokenIn:    d.TokenIn,
		TokenOut:   d.TokenOut,
		AmountIn:   d.AmountIn,
		Strategy:   d.Strategy,
		Success:    false,
		Notes:      &notes,
	}
}
