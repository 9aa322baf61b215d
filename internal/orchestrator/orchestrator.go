// Package orchestrator runs rank checks over all tracked campaigns.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rankwatch/placerank/internal/metrics"
	"github.com/rankwatch/placerank/internal/rank"
)

// RankResolver is the single-campaign resolution step.
type RankResolver interface {
	ResolveRank(ctx context.Context, keyword, targetID string) rank.Check
}

// State is the orchestrator's lifecycle. There is no retry or resume
// state: a crashed run is simply incomplete and must be re-invoked.
type State string

// Orchestrator states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Config controls batch pacing.
type Config struct {
	DelayMin      time.Duration
	DelayMax      time.Duration
	ProgressEvery int
}

// Orchestrator iterates tracked campaigns strictly one at a time. The
// sequential loop with a random inter-item delay is deliberate: it bounds
// load on the upstream source and keeps the crawler under bot-defense
// thresholds. No fan-out across campaigns happens here.
type Orchestrator struct {
	resolver  RankResolver
	campaigns rank.CampaignStore
	history   rank.HistoryStore
	clock     rank.Clock
	cfg       Config
	logger    *zap.Logger
	state     atomic.Value
}

// New constructs an Orchestrator.
func New(
	resolver RankResolver,
	campaigns rank.CampaignStore,
	history rank.HistoryStore,
	clock rank.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DelayMin <= 0 {
		cfg.DelayMin = 2 * time.Second
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin + 2*time.Second
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10
	}
	o := &Orchestrator{
		resolver:  resolver,
		campaigns: campaigns,
		history:   history,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	o.state.Store(StateIdle)
	return o
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

// RunAll loads the active campaigns and runs a batch over them.
func (o *Orchestrator) RunAll(ctx context.Context) (rank.BatchSummary, error) {
	campaigns, err := o.campaigns.ListActive(ctx)
	if err != nil {
		return rank.BatchSummary{}, fmt.Errorf("list active campaigns: %w", err)
	}
	return o.RunBatch(ctx, campaigns), nil
}

// RunBatch checks each campaign in order and returns the aggregated
// summary. No per-item failure aborts the batch; context cancellation is
// checked before each iteration and returns the partial summary.
func (o *Orchestrator) RunBatch(ctx context.Context, campaigns []rank.Campaign) rank.BatchSummary {
	o.state.Store(StateRunning)
	metrics.BatchStarted()
	defer func() {
		o.state.Store(StateCompleted)
		metrics.BatchFinished()
	}()

	start := o.clock.Now()
	summary := rank.BatchSummary{Total: len(campaigns)}
	o.logger.Info("batch started", zap.Int("campaigns", len(campaigns)))

	for i, campaign := range campaigns {
		if ctx.Err() != nil {
			o.logger.Warn("batch canceled",
				zap.Int("processed", i),
				zap.Int("total", len(campaigns)),
			)
			break
		}

		detail := o.checkOne(ctx, campaign)
		summary.Details = append(summary.Details, detail)
		if detail.Outcome == rank.OutcomeSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		metrics.CheckRecorded(string(detail.Outcome))

		if (i+1)%o.cfg.ProgressEvery == 0 {
			o.logger.Info("batch progress",
				zap.Int("done", i+1),
				zap.Int("total", len(campaigns)),
			)
		}
		if i < len(campaigns)-1 {
			o.pause(ctx)
		}
	}

	summary.Elapsed = o.clock.Now().Sub(start)
	metrics.BatchDuration(summary.Elapsed)
	o.logger.Info("batch finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary
}

// RunOne executes the per-campaign step for a single campaign, outside of
// a batch. Used by the manual single-campaign trigger.
func (o *Orchestrator) RunOne(ctx context.Context, campaign rank.Campaign) rank.ItemResult {
	return o.checkOne(ctx, campaign)
}

// checkOne resolves one campaign and persists the outcome. An unexpected
// fault inside the step is reclassified as a counted exception so one
// malformed campaign cannot halt the batch. Persistence failures are
// logged and do not change the reported outcome.
func (o *Orchestrator) checkOne(ctx context.Context, campaign rank.Campaign) (detail rank.ItemResult) {
	detail = rank.ItemResult{
		CampaignID: campaign.ID,
		Company:    campaign.Company,
		Keyword:    campaign.Keyword,
	}
	defer func() {
		if rec := recover(); rec != nil {
			detail.Outcome = rank.OutcomeException
			detail.ErrorText = fmt.Sprintf("panic: %v", rec)
			o.logger.Error("campaign check panicked",
				zap.String("campaign_id", campaign.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	check := o.resolver.ResolveRank(ctx, campaign.Keyword, campaign.PlaceID)
	check.CampaignID = campaign.ID
	detail.Rank = check.Rank

	if err := o.history.AppendCheck(ctx, check); err != nil {
		o.logger.Error("history append failed",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err),
		)
	}
	// Ratchet: the previous rank slot always receives the value held
	// immediately before this update.
	if err := o.campaigns.UpdateRanks(ctx, campaign.ID, campaign.CurrentRank, check.Rank, check.CheckedAt); err != nil {
		o.logger.Error("campaign rank update failed",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err),
		)
	}

	if check.ErrorText != "" {
		detail.Outcome = rank.OutcomeFailed
		detail.ErrorText = check.ErrorText
		return detail
	}
	detail.Outcome = rank.OutcomeSuccess
	o.logger.Info("campaign checked",
		zap.String("campaign_id", campaign.ID),
		zap.String("company", campaign.Company),
		zap.String("keyword", campaign.Keyword),
		zap.Intp("rank", check.Rank),
	)
	return detail
}

// pause sleeps a uniformly-random duration from [DelayMin, DelayMax],
// returning early when the context finishes.
func (o *Orchestrator) pause(ctx context.Context) {
	jitter := o.cfg.DelayMax - o.cfg.DelayMin
	delay := o.cfg.DelayMin + time.Duration(rand.Int64N(int64(jitter)+1))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
