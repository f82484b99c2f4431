// Package decision orchestrates the decision, feedback, and rescue
// endpoints: it loads household state through the outbound ports,
// runs the pure domain evaluators, and owns every event-store write.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/shared"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

var tracer = otel.Tracer("suppertime")

// DRM fallback reasons the orchestrator adds on top of the domain
// trigger reasons.
const (
	ReasonNoCandidates = "no_candidates"
	ReasonTimeout      = "timeout"
)

const (
	// DecisionDeadline bounds one whole decision request. On expiry
	// the endpoint answers with the rescue recommendation instead of
	// partial results.
	DecisionDeadline = 30 * time.Second

	// HookBudget bounds each best-effort hook. Hooks run detached
	// from the request context so a client disconnect after the
	// authoritative write cannot strand them half-applied.
	HookBudget = 2 * time.Second

	// RecentEventsLimit is how much history the policy windows see.
	RecentEventsLimit = 50
)

const (
	mealCatalogCacheKey = "meals:catalog"
	mealCatalogTTL      = 5 * time.Minute
	inventoryCacheTTL   = time.Minute
	tasteCacheTTL       = 5 * time.Minute
)

func inventoryCacheKey(householdKey string) string {
	return "household:" + householdKey + ":inventory"
}

func tasteCacheKey(householdKey string) string {
	return "household:" + householdKey + ":taste"
}

// decisionPayload is the stored record of what was shown.
type decisionPayload struct {
	DecisionType   string  `json:"decisionType"`
	MealID         string  `json:"mealId,omitempty"`
	Title          string  `json:"title,omitempty"`
	StepsShort     string  `json:"stepsShort,omitempty"`
	EstMinutes     int     `json:"estMinutes,omitempty"`
	InventoryScore float64 `json:"inventoryScore,omitempty"`
	TasteValue     float64 `json:"tasteValue,omitempty"`
	TotalScore     float64 `json:"totalScore,omitempty"`
	FeedbackFor    string  `json:"feedbackFor,omitempty"`
}

// Service implements the decision use cases.
type Service struct {
	deadline    time.Duration
	meals       outbound.MealRepository
	inventory   outbound.InventoryRepository
	events      outbound.DecisionEventRepository
	tasteRepo   outbound.TasteRepository
	cache       outbound.CacheRepository
	metrics     outbound.BusinessMetrics
	taste       *TasteUpdater
	consumption *ConsumptionHook
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates the decision service with its hooks wired in.
// A non-positive deadline falls back to DecisionDeadline.
func NewService(
	meals outbound.MealRepository,
	inventoryRepo outbound.InventoryRepository,
	events outbound.DecisionEventRepository,
	tasteRepo outbound.TasteRepository,
	cache outbound.CacheRepository,
	metrics outbound.BusinessMetrics,
	deadline time.Duration,
	logger *zap.Logger,
) inbound.DecisionService {
	if metrics == nil {
		metrics = outbound.NopBusinessMetrics{}
	}
	if deadline <= 0 {
		deadline = DecisionDeadline
	}
	return &Service{
		deadline:    deadline,
		meals:       meals,
		inventory:   inventoryRepo,
		events:      events,
		tasteRepo:   tasteRepo,
		cache:       cache,
		metrics:     metrics,
		taste:       NewTasteUpdater(tasteRepo, meals, cache, logger),
		consumption: NewConsumptionHook(inventoryRepo, meals, cache, logger),
		logger:      logger.Named("decision-service"),
		now:         time.Now,
	}
}

// Decide produces tonight's single action. The reply is one of three
// shapes: a rescue recommendation, an autopilot-approved decision, or
// a pending decision awaiting feedback.
func (s *Service) Decide(ctx context.Context, householdKey string, req inbound.DecisionRequest) (resp *inbound.DecisionResponse, err error) {
	defer func() {
		if resp == nil {
			return
		}
		if resp.Decision != nil {
			s.metrics.DecisionServed(resp.Decision.DecisionType)
		} else {
			s.metrics.DecisionServed("")
		}
		if resp.DrmRecommended {
			s.metrics.DrmRecommended(resp.Reason)
		}
	}()

	now, err := shared.ParseISO(req.NowISO)
	if err != nil {
		return nil, errors.NewValidationError("nowIso must be an ISO-8601 timestamp")
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	sig := decision.Signal{
		TimeWindow:       req.Signal.TimeWindow,
		Energy:           req.Signal.Energy,
		CalendarConflict: req.Signal.CalendarConflict,
	}

	contextHash, err := decision.ContextHash(householdKey, now, sig)
	if err != nil {
		return nil, errors.Wrap(err, "fingerprint decision context")
	}

	state, err := s.loadState(ctx, householdKey)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Warn("Decision deadline expired while loading state",
				zap.String("household_key", householdKey),
			)
			return &inbound.DecisionResponse{DrmRecommended: true, Reason: ReasonTimeout}, nil
		}
		return nil, err
	}

	undone := decision.HasRecentUndo(state.Recent, now)

	// An identical context already resolved by autopilot replays the
	// stored decision: a retry must see the same answer even when the
	// first run's own side effects would now fail a gate. An undo in
	// the throttle window disables the replay along with autopilot
	// itself, so the household falls through to a normal decision.
	if !undone {
		if canonical, ferr := s.events.FindAutopilotByContextHash(ctx, householdKey, contextHash); ferr == nil && canonical != nil {
			return s.decisionResponseFromEvent(*canonical, true), nil
		}
	}

	if triggered, reason := decision.EvaluateDRM(now, sig, state.Recent); triggered {
		s.logger.Info("Rescue mode recommended",
			zap.String("household_key", householdKey),
			zap.String("reason", string(reason)),
		)
		return &inbound.DecisionResponse{DrmRecommended: true, Reason: string(reason)}, nil
	}

	_, rankSpan := tracer.Start(ctx, "decision.rank",
		trace.WithAttributes(attribute.Int("decision.candidates", len(state.Candidates))))
	top := decision.Rank(state, now, contextHash)
	if top != nil {
		rankSpan.SetAttributes(
			attribute.String("decision.meal_id", top.Candidate.Meal.ID),
			attribute.Float64("decision.total_score", top.Total),
		)
	}
	rankSpan.End()
	if top == nil {
		return &inbound.DecisionResponse{DrmRecommended: true, Reason: ReasonNoCandidates}, nil
	}

	gate := decision.EvaluateAutopilot(decision.AutopilotInput{
		Now:            now,
		Signal:         sig,
		InventoryScore: decision.HouseholdInventoryScore(state, now),
		TasteScore:     decision.HouseholdTasteScore(state),
		MealID:         top.Candidate.Meal.ID,
		Recent:         state.Recent,
	})
	s.metrics.AutopilotEvaluated(gate.Eligible)
	autopilot := gate.Eligible && !undone

	evt := decision.Event{
		ID:           uuid.New().String(),
		HouseholdKey: householdKey,
		DecidedAt:    now,
		Type:         decision.TypeCook,
		MealID:       top.Candidate.Meal.ID,
		ContextHash:  contextHash,
		UserAction:   decision.ActionPending,
	}
	if autopilot {
		evt.UserAction = decision.ActionApproved
		evt.ActionedAt = &now
		evt.Notes = decision.NotesAutopilot
	}
	evt.Payload, err = json.Marshal(decisionPayload{
		DecisionType:   string(evt.Type),
		MealID:         evt.MealID,
		Title:          top.Candidate.Meal.Title,
		StepsShort:     top.Candidate.Meal.StepsShort,
		EstMinutes:     top.Candidate.Meal.EstMinutes,
		InventoryScore: top.InventoryScore,
		TasteValue:     top.TasteValue,
		TotalScore:     top.Total,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode decision payload")
	}

	if err := s.events.Insert(ctx, &evt); err != nil {
		if autopilot && errors.IsAlreadyProcessed(err) {
			// Lost a race with an identical request: reuse its row and
			// skip the hooks, which already ran once.
			canonical, ferr := s.events.FindAutopilotByContextHash(ctx, householdKey, contextHash)
			if ferr != nil || canonical == nil {
				return nil, errors.NewDatabaseError("load canonical autopilot event", ferr)
			}
			return s.decisionResponseFromEvent(*canonical, true), nil
		}
		if ctx.Err() != nil {
			return &inbound.DecisionResponse{DrmRecommended: true, Reason: ReasonTimeout}, nil
		}
		return nil, errors.NewDatabaseError("insert decision event", err)
	}

	if autopilot {
		s.runHooks(ctx, evt)
	}

	s.logger.Info("Decision issued",
		zap.String("household_key", householdKey),
		zap.String("decision_event_id", evt.ID),
		zap.String("meal_id", evt.MealID),
		zap.Bool("autopilot", autopilot),
		zap.String("gate_reason", gate.Reason),
	)
	return s.decisionResponse(evt, *top, autopilot), nil
}

// RecordFeedback appends the user's verdict as a fresh event copy and
// fires the downstream hooks. The write is authoritative; everything
// after it is best-effort.
func (s *Service) RecordFeedback(ctx context.Context, householdKey string, req inbound.FeedbackRequest) (*inbound.FeedbackResponse, error) {
	actionedAt, err := shared.ParseISO(req.ActionedAt)
	if err != nil {
		return nil, errors.NewValidationError("actionedAt must be an ISO-8601 timestamp")
	}
	action, notes, err := mapWireAction(req.UserAction, req.Notes)
	if err != nil {
		return nil, err
	}

	original, err := s.events.FindByIDForHousehold(ctx, req.EventID, householdKey)
	if err != nil && !errors.IsNotFound(err) {
		return nil, errors.NewDatabaseError("load original decision event", err)
	}

	var fb decision.Event
	if original != nil {
		fb = original.FeedbackCopy(uuid.New().String(), action, actionedAt, notes)
	} else {
		// Feedback on an event we never issued still gets recorded;
		// the missing original is a metadata gap, not a failure.
		s.logger.Warn("Feedback references unknown decision event",
			zap.String("household_key", householdKey),
			zap.String("event_id", req.EventID),
		)
		payload, merr := json.Marshal(decisionPayload{FeedbackFor: req.EventID})
		if merr != nil {
			return nil, errors.Wrap(merr, "encode feedback payload")
		}
		fb = decision.Event{
			ID:           uuid.New().String(),
			HouseholdKey: householdKey,
			DecidedAt:    actionedAt,
			Payload:      payload,
			UserAction:   action,
			ActionedAt:   &actionedAt,
			Notes:        notes,
		}
	}

	if err := s.events.Insert(ctx, &fb); err != nil {
		return nil, errors.NewDatabaseError("insert feedback event", err)
	}

	s.runHooks(ctx, fb)

	s.logger.Info("Feedback recorded",
		zap.String("household_key", householdKey),
		zap.String("event_id", req.EventID),
		zap.String("feedback_event_id", fb.ID),
		zap.String("user_action", string(fb.UserAction)),
	)
	return &inbound.FeedbackResponse{Recorded: true}, nil
}

// Rescue serves one rescue option and logs it as a decision event.
func (s *Service) Rescue(ctx context.Context, householdKey string, req inbound.RescueRequest) (*inbound.RescueResponse, error) {
	now := s.now()

	recent, err := s.events.FindRecent(ctx, householdKey, RecentEventsLimit)
	if err != nil {
		return nil, errors.NewDatabaseError("load recent events", err)
	}

	opt := decision.SelectRescue(decision.RescueCatalog(), recent, now)
	payload, err := json.Marshal(decision.RescuePayload{
		TriggerReason: req.TriggerReason,
		Rescue:        opt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode rescue payload")
	}

	evt := decision.Event{
		ID:                uuid.New().String(),
		HouseholdKey:      householdKey,
		DecidedAt:         now,
		Type:              opt.Type,
		ExternalVendorKey: opt.VendorKey,
		Payload:           payload,
		UserAction:        decision.ActionDRMTriggered,
		ActionedAt:        &now,
	}
	if err := s.events.Insert(ctx, &evt); err != nil {
		return nil, errors.NewDatabaseError("insert rescue event", err)
	}

	exhausted := decision.RescueStreak(recent)+1 >= decision.RescueExhaustionRuns
	s.metrics.DrmRecommended(req.TriggerReason)
	s.logger.Info("Rescue served",
		zap.String("household_key", householdKey),
		zap.String("trigger_reason", req.TriggerReason),
		zap.String("rescue_key", opt.Key),
		zap.Bool("exhausted", exhausted),
	)

	return &inbound.RescueResponse{
		Rescue: &inbound.RescueDTO{
			RescueType:      string(opt.Type),
			DecisionEventID: evt.ID,
			Title:           opt.Title,
			EstMinutes:      opt.EstMinutes,
			VendorKey:       opt.VendorKey,
			DeepLinkURL:     opt.DeepLinkURL,
		},
		Exhausted: exhausted,
	}, nil
}

// runHooks fires the consumption hook and the taste updater for an
// event carrying a feedback value. Each hook gets its own detached
// budget; failures are logged and swallowed.
func (s *Service) runHooks(ctx context.Context, evt decision.Event) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HookBudget)
	defer cancel()

	if evt.UserAction == decision.ActionApproved && evt.Type == decision.TypeCook && evt.MealID != "" {
		if err := s.consumption.Run(hookCtx, evt); err != nil {
			s.logger.Warn("Consumption hook failed",
				zap.String("feedback_event_id", evt.ID),
				zap.Error(err),
			)
		}
	}

	tasteCtx, tasteCancel := context.WithTimeout(context.WithoutCancel(ctx), HookBudget)
	defer tasteCancel()
	if err := s.taste.Apply(tasteCtx, evt); err != nil {
		if errors.IsAlreadyProcessed(err) {
			s.metrics.TasteUpdated("already_processed")
			s.logger.Debug("Taste signal already recorded",
				zap.String("feedback_event_id", evt.ID),
			)
			return
		}
		s.metrics.TasteUpdated("failed")
		s.logger.Warn("Taste updater failed",
			zap.String("feedback_event_id", evt.ID),
			zap.Error(err),
		)
		return
	}
	s.metrics.TasteUpdated("recorded")
}

func (s *Service) decisionResponse(evt decision.Event, top decision.Scored, autopilot bool) *inbound.DecisionResponse {
	return &inbound.DecisionResponse{
		Decision: &inbound.DecisionDTO{
			DecisionType:    string(evt.Type),
			DecisionEventID: evt.ID,
			MealID:          evt.MealID,
			VendorKey:       evt.ExternalVendorKey,
			Title:           top.Candidate.Meal.Title,
			StepsShort:      top.Candidate.Meal.StepsShort,
			EstMinutes:      top.Candidate.Meal.EstMinutes,
			ContextHash:     evt.ContextHash,
		},
		DrmRecommended: false,
		Autopilot:      &autopilot,
	}
}

// decisionResponseFromEvent rebuilds the reply from a stored event's
// payload, for replays where the arbiter never ran.
func (s *Service) decisionResponseFromEvent(evt decision.Event, autopilot bool) *inbound.DecisionResponse {
	var payload decisionPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		s.logger.Warn("Stored decision payload unreadable",
			zap.String("decision_event_id", evt.ID),
			zap.Error(err),
		)
	}
	return &inbound.DecisionResponse{
		Decision: &inbound.DecisionDTO{
			DecisionType:    string(evt.Type),
			DecisionEventID: evt.ID,
			MealID:          evt.MealID,
			VendorKey:       evt.ExternalVendorKey,
			Title:           payload.Title,
			StepsShort:      payload.StepsShort,
			EstMinutes:      payload.EstMinutes,
			ContextHash:     evt.ContextHash,
		},
		DrmRecommended: false,
		Autopilot:      &autopilot,
	}
}

// mapWireAction translates the API action vocabulary to the stored
// one. The wire accepts "undo", which lands as a rejection tagged
// undo_autopilot so the score upsert skips it.
func mapWireAction(wire, notes string) (decision.UserAction, string, error) {
	if wire == "undo" {
		return decision.ActionRejected, decision.NotesUndoAutopilot, nil
	}
	action := decision.UserAction(wire)
	if !action.Valid() || action == decision.ActionPending {
		return "", "", errors.NewValidationError(fmt.Sprintf("unsupported userAction %q", wire))
	}
	return action, notes, nil
}

// loadState assembles the arbiter's view of the household. The meal
// catalog and the slower-moving household reads come through the
// cache; recent events are always read fresh.
func (s *Service) loadState(ctx context.Context, householdKey string) (decision.State, error) {
	ctx, span := tracer.Start(ctx, "decision.load_state",
		trace.WithAttributes(attribute.String("household_key", householdKey)))
	defer span.End()

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return decision.State{}, err
	}
	items, err := s.loadInventory(ctx, householdKey)
	if err != nil {
		return decision.State{}, err
	}
	recent, err := s.events.FindRecent(ctx, householdKey, RecentEventsLimit)
	if err != nil {
		return decision.State{}, errors.NewDatabaseError("load recent events", err)
	}
	scores, err := s.loadTasteScores(ctx, householdKey)
	if err != nil {
		return decision.State{}, err
	}
	return decision.State{
		Candidates:  candidates,
		Inventory:   items,
		Recent:      recent,
		TasteScores: scores,
	}, nil
}

func (s *Service) loadCandidates(ctx context.Context) ([]decision.Candidate, error) {
	if raw, err := s.cache.Get(ctx, mealCatalogCacheKey); err == nil && len(raw) > 0 {
		var cached []decision.Candidate
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	meals, err := s.meals.FindActive(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("load active meals", err)
	}
	ids := make([]string, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
	}
	ingredients, err := s.meals.FindIngredientsByMeal(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("load meal ingredients", err)
	}

	candidates := make([]decision.Candidate, len(meals))
	for i, m := range meals {
		candidates[i] = decision.Candidate{Meal: m, Ingredients: ingredients[m.ID]}
	}

	if raw, err := json.Marshal(candidates); err == nil {
		if cerr := s.cache.Set(ctx, mealCatalogCacheKey, raw, mealCatalogTTL); cerr != nil {
			s.logger.Debug("Meal catalog cache write failed", zap.Error(cerr))
		}
	}
	return candidates, nil
}

func (s *Service) loadInventory(ctx context.Context, householdKey string) ([]inventory.Item, error) {
	key := inventoryCacheKey(householdKey)
	if raw, err := s.cache.Get(ctx, key); err == nil && len(raw) > 0 {
		var cached []inventory.Item
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	items, err := s.inventory.FindByHousehold(ctx, householdKey)
	if err != nil {
		return nil, errors.NewDatabaseError("load inventory", err)
	}

	if raw, err := json.Marshal(items); err == nil {
		if cerr := s.cache.Set(ctx, key, raw, inventoryCacheTTL); cerr != nil {
			s.logger.Debug("Inventory cache write failed", zap.Error(cerr))
		}
	}
	return items, nil
}

func (s *Service) loadTasteScores(ctx context.Context, householdKey string) (map[string]float64, error) {
	key := tasteCacheKey(householdKey)
	if raw, err := s.cache.Get(ctx, key); err == nil && len(raw) > 0 {
		var cached map[string]float64
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	scores, err := s.tasteRepo.FindScores(ctx, householdKey)
	if err != nil {
		return nil, errors.NewDatabaseError("load taste scores", err)
	}

	if raw, err := json.Marshal(scores); err == nil {
		if cerr := s.cache.Set(ctx, key, raw, tasteCacheTTL); cerr != nil {
			s.logger.Debug("Taste score cache write failed", zap.Error(cerr))
		}
	}
	return scores, nil
}
