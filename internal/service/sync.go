package service

import (
	"context"
	"net/http"
	"time"

	"RatePilot/internal/biz"
	"RatePilot/internal/model"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// SyncService serves channel push operations, sync history, and the breaker
// admin endpoints.
type SyncService struct {
	properties   biz.PropertyRepo
	reconciler   *biz.PriceReconciler
	orchestrator *biz.BatchSyncOrchestrator
	autoSync     *biz.AutoSyncTask
	history      biz.SyncHistoryRepo
	breakers     *biz.BreakerRegistry
	opts         biz.SyncOptions
	logger       *log.Helper
}

// NewSyncService creates a new SyncService instance.
func NewSyncService(
	properties biz.PropertyRepo,
	reconciler *biz.PriceReconciler,
	orchestrator *biz.BatchSyncOrchestrator,
	autoSync *biz.AutoSyncTask,
	history biz.SyncHistoryRepo,
	breakers *biz.BreakerRegistry,
	opts biz.SyncOptions,
	logger log.Logger,
) *SyncService {
	return &SyncService{
		properties:   properties,
		reconciler:   reconciler,
		orchestrator: orchestrator,
		autoSync:     autoSync,
		history:      history,
		breakers:     breakers,
		opts:         opts,
		logger:       log.NewHelper(logger),
	}
}

// SyncPropertyRequest pushes one property's reconciled calendar to the
// channel. An empty range defaults to today through the auto-sync horizon.
type SyncPropertyRequest struct {
	PropertyID int64  `json:"property_id"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

// SyncPropertyReply reports the terminal operation. UserMessage is set only
// on failure and is safe to show to operators.
type SyncPropertyReply struct {
	Operation   *model.SyncOperation `json:"operation"`
	UserMessage string               `json:"user_message,omitempty"`
}

// SyncProperty reconciles the property's calendar and pushes it to the
// channel through the retryer and breaker. A failed push is reported in the
// operation record, not as a transport error, so the console can render the
// outcome.
func (s *SyncService) SyncProperty(ctx context.Context, req *SyncPropertyRequest) (*SyncPropertyReply, error) {
	property, err := s.properties.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, kratoserrors.New(http.StatusNotFound, "PROPERTY_NOT_FOUND", "property not found")
	}

	startDate := req.StartDate
	endDate := req.EndDate
	if startDate == "" || endDate == "" {
		now := time.Now().UTC()
		startDate = now.Format(model.DateLayout)
		endDate = now.AddDate(0, 0, biz.AutoSyncHorizonDays).Format(model.DateLayout)
	}

	days, err := s.reconciler.Reconcile(ctx, property.ID, startDate, endDate, biz.DefaultReconcileOptions())
	if err != nil {
		s.logger.Errorw("failed to reconcile calendar before sync",
			"property_id", property.ID,
			"error", err)
		return nil, toTransportError(err)
	}

	payload := biz.BuildRatePayload(property, days)
	op := s.orchestrator.SyncOne(ctx, property.ID, payload, s.opts)

	reply := &SyncPropertyReply{Operation: op}
	if op.Status == model.SyncStatusFailed {
		reply.UserMessage = (&biz.SyncError{Type: biz.SyncErrorType(op.ErrorType)}).UserMessage()
	}
	return reply, nil
}

// BatchSyncReply reports the aggregated outcome of one batch push.
type BatchSyncReply struct {
	Result *model.BatchSyncResult `json:"result"`
}

// BatchSync pushes every sync-enabled property, the same path the nightly
// job takes. Individual failures are isolated and reported per property.
func (s *SyncService) BatchSync(ctx context.Context) (*BatchSyncReply, error) {
	result, err := s.autoSync.Run(ctx)
	if err != nil {
		s.logger.Errorw("batch sync failed to start", "error", err)
		return nil, toTransportError(err)
	}
	return &BatchSyncReply{Result: result}, nil
}

// ListSyncHistoryRequest asks for recent operations of one property.
type ListSyncHistoryRequest struct {
	PropertyID int64 `json:"property_id"`
	Limit      int   `json:"limit,omitempty"`
}

// ListSyncHistoryReply carries recent operations, newest first.
type ListSyncHistoryReply struct {
	Operations []*model.SyncOperation `json:"operations"`
}

// ListSyncHistory returns the most recent sync operations for a property.
func (s *SyncService) ListSyncHistory(ctx context.Context, req *ListSyncHistoryRequest) (*ListSyncHistoryReply, error) {
	ops, err := s.history.ListRecent(ctx, req.PropertyID, req.Limit)
	if err != nil {
		s.logger.Errorw("failed to list sync history",
			"property_id", req.PropertyID,
			"error", err)
		return nil, toTransportError(err)
	}
	return &ListSyncHistoryReply{Operations: ops}, nil
}

// ListBreakersReply carries a snapshot of every known breaker.
type ListBreakersReply struct {
	Breakers []*model.CircuitSnapshot `json:"breakers"`
}

// ListBreakers returns the current state of every breaker for the admin
// view.
func (s *SyncService) ListBreakers(_ context.Context) (*ListBreakersReply, error) {
	return &ListBreakersReply{Breakers: s.breakers.Snapshots()}, nil
}

// ResetBreakerRequest names the breaker target to reset.
type ResetBreakerRequest struct {
	Target string `json:"target"`
}

// ResetBreakerReply acknowledges the reset.
type ResetBreakerReply struct {
	Success bool `json:"success"`
}

// ResetBreaker clears a breaker back to its initial closed state. Unknown
// targets are a 404 so typos are visible.
func (s *SyncService) ResetBreaker(ctx context.Context, req *ResetBreakerRequest) (*ResetBreakerReply, error) {
	if !s.breakers.Reset(req.Target) {
		return nil, kratoserrors.New(http.StatusNotFound, "BREAKER_NOT_FOUND", "no breaker for target")
	}
	s.logger.WithContext(ctx).Infow("breaker reset by operator", "target", req.Target)
	return &ResetBreakerReply{Success: true}, nil
}
