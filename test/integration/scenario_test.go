// Package integration runs end-to-end household flows through the
// full service stack on the in-memory adapter.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/infrastructure/persistence/seed"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/test/testutils"
)

// Central time, the offset the canonical household stories use.
var central = time.FixedZone("CST", -6*60*60)

// DinnerFlowTestSuite walks the documented household scenarios from
// decision through feedback, rescue, and receipt ingestion.
type DinnerFlowTestSuite struct {
	suite.Suite
	ctx      context.Context
	harness  *testutils.Harness
	decision *testutils.DecisionAssertions
	receipt  *testutils.ReceiptAssertions
}

// SetupTest gives every scenario a fresh household universe.
func (suite *DinnerFlowTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.harness = testutils.NewHarness(suite.T())
	suite.decision = testutils.NewDecisionAssertions(suite.T())
	suite.receipt = testutils.NewReceiptAssertions(suite.T())
}

// seedCatalogMeal loads one meal from the starter library by id.
func (suite *DinnerFlowTestSuite) seedCatalogMeal(id string) {
	for _, entry := range seed.Catalog() {
		if entry.Meal.ID == id {
			suite.harness.SeedMeal(suite.T(), entry.Meal, entry.Ingredients)
			return
		}
	}
	suite.FailNowf("unknown catalog meal", "no catalog entry with id %s", id)
}

func dinnerRequest(nowISO string) inbound.DecisionRequest {
	return inbound.DecisionRequest{
		NowISO: nowISO,
		Signal: inbound.SignalPayload{
			TimeWindow: "dinner",
			Energy:     "normal",
		},
	}
}

// A household with chicken on hand gets Chicken Stir-Fry on its first
// evening, approves it, and the approval ripples into consumption and
// taste state while the original event row stays untouched.
func (suite *DinnerFlowTestSuite) TestCleanCookDayOne() {
	h := suite.harness
	now := time.Date(2026, time.January, 20, 18, 30, 0, 0, central)
	nowISO := now.Format(time.RFC3339)

	suite.seedCatalogMeal("meal-012")
	h.SeedItem(suite.T(), testutils.NewItemBuilder("chicken breast").
		WithConfidence(0.90).
		WithQty(2, 0).
		SeenAt(now).
		Build())

	resp, err := h.Decisions.Decide(suite.ctx, testutils.DefaultHouseholdKey, dinnerRequest(nowISO))
	suite.Require().NoError(err)
	suite.decision.ServedMeal(resp, "meal-012")
	suite.decision.Autopilot(resp, false)

	fb, err := h.Decisions.RecordFeedback(suite.ctx, testutils.DefaultHouseholdKey, inbound.FeedbackRequest{
		EventID:    resp.Decision.DecisionEventID,
		UserAction: "approved",
		ActionedAt: nowISO,
	})
	suite.Require().NoError(err)
	suite.True(fb.Recorded)

	// The original row is immutable; the verdict is a second row.
	original, err := h.Events.FindByID(suite.ctx, resp.Decision.DecisionEventID)
	suite.Require().NoError(err)
	suite.Require().NotNil(original)
	suite.Equal(decision.ActionPending, original.UserAction)
	suite.Nil(original.ActionedAt)

	count, err := h.Events.CountByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)

	// Approving the cook consumed the matched chicken.
	items, err := h.Inventory.FindByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Require().Len(items, 1)
	suite.Greater(items[0].QtyUsed, 0.0)
	suite.Require().NotNil(items[0].LastUsedAt)
	suite.True(items[0].LastUsedAt.Equal(now))

	score, err := h.Taste.FindMealScore(suite.ctx, testutils.DefaultHouseholdKey, "meal-012")
	suite.Require().NoError(err)
	suite.Require().NotNil(score)
	suite.InDelta(1.0, score.Score, 1e-9)
	suite.Equal(1, score.Approvals)

	suite.Equal(1, h.Metrics.Decisions("cook"))
	suite.Equal(1, h.Metrics.Autopilot(false))
	suite.Equal(1, h.Metrics.Taste("recorded"))
}

// Two rejections inside half an hour put the household in rescue
// territory: no decision, no autopilot evaluation, just the
// recommendation.
func (suite *DinnerFlowTestSuite) TestTwoQuickRejectionsRecommendRescue() {
	h := suite.harness
	suite.seedCatalogMeal("meal-012")

	day := time.Date(2026, time.January, 20, 0, 0, 0, 0, central)
	h.SeedEvent(suite.T(), testutils.NewEventBuilder().
		WithAction(decision.ActionRejected).
		At(day.Add(18*time.Hour+50*time.Minute)).
		Build())
	h.SeedEvent(suite.T(), testutils.NewEventBuilder().
		ForMeal("meal-002").
		WithAction(decision.ActionRejected).
		At(day.Add(18*time.Hour+55*time.Minute)).
		Build())

	resp, err := h.Decisions.Decide(suite.ctx, testutils.DefaultHouseholdKey,
		dinnerRequest(day.Add(19*time.Hour).Format(time.RFC3339)))
	suite.Require().NoError(err)
	suite.decision.RescueRecommended(resp, "two_rejections")

	suite.Equal(0, h.Metrics.Autopilot(true)+h.Metrics.Autopilot(false))
	suite.Equal(1, h.Metrics.Drm("two_rejections"))

	// The client follows the recommendation into rescue mode and gets
	// exactly one option back.
	rescue, err := h.Decisions.Rescue(suite.ctx, testutils.DefaultHouseholdKey, inbound.RescueRequest{
		TriggerReason: "two_rejections",
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(rescue.Rescue)
	suite.False(rescue.Exhausted)
	suite.NotEmpty(rescue.Rescue.Title)
	suite.NotEmpty(rescue.Rescue.DecisionEventID)
}

// A late-evening approval carries the stress multiplier into the
// running meal score.
func (suite *DinnerFlowTestSuite) TestStressHourApprovalWeighsHeavier() {
	h := suite.harness
	suite.seedCatalogMeal("meal-001")

	evt := testutils.NewEventBuilder().
		ForMeal("meal-001").
		At(time.Date(2026, time.January, 20, 19, 0, 0, 0, central)).
		Build()
	h.SeedEvent(suite.T(), evt)

	fb, err := h.Decisions.RecordFeedback(suite.ctx, testutils.DefaultHouseholdKey, inbound.FeedbackRequest{
		EventID:    evt.ID,
		UserAction: "approved",
		ActionedAt: time.Date(2026, time.January, 20, 20, 15, 0, 0, central).Format(time.RFC3339),
	})
	suite.Require().NoError(err)
	suite.True(fb.Recorded)

	score, err := h.Taste.FindMealScore(suite.ctx, testutils.DefaultHouseholdKey, "meal-001")
	suite.Require().NoError(err)
	suite.Require().NotNil(score)
	suite.InDelta(1.10, score.Score, 1e-9)
	suite.Equal(1, score.Approvals)
}

// Re-uploading the same receipt with OCR jitter, shouted vendor
// casing, and a timezone-shifted purchase timestamp lands as a
// duplicate and leaves the pantry exactly as the first import made it.
func (suite *DinnerFlowTestSuite) TestDuplicateReceiptLeavesInventoryAlone() {
	h := suite.harness

	first, err := h.ReceiptsSvc.Import(suite.ctx, testutils.DefaultHouseholdKey, inbound.ReceiptImportRequest{
		Source:         "text",
		ReceiptText:    "WHL MLK 1 EA $3.99\nWHT BRD 1 EA $2.49",
		VendorName:     "Safeway",
		PurchasedAtISO: "2026-01-20T00:00:00Z",
	})
	suite.Require().NoError(err)
	suite.receipt.Parsed(first)

	items, err := h.Inventory.FindByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Require().Len(items, 2)
	byName := make(map[string]float64)
	for _, item := range items {
		suite.Require().NotNil(item.QtyEstimated, "receipt quantities should carry over")
		byName[item.Name] = *item.QtyEstimated
	}
	suite.InDelta(1.0, byName["whole milk"], 1e-9)
	suite.InDelta(1.0, byName["white bread"], 1e-9)

	second, err := h.ReceiptsSvc.Import(suite.ctx, testutils.DefaultHouseholdKey, inbound.ReceiptImportRequest{
		Source:         "text",
		ReceiptText:    "  whl   mlk 1 ea   $3.99\n\n  wht brd 1 ea $2.49  ",
		VendorName:     "SAFEWAY",
		PurchasedAtISO: "2026-01-20T08:00:00-08:00",
	})
	suite.Require().NoError(err)
	suite.receipt.Duplicate(second)
	suite.NotEqual(first.ReceiptImportID, second.ReceiptImportID)

	stored, err := h.Receipts.FindImportByID(suite.ctx, testutils.DefaultHouseholdKey, second.ReceiptImportID)
	suite.Require().NoError(err)
	suite.Require().NotNil(stored)
	suite.Equal(first.ReceiptImportID, stored.DuplicateOf)

	// Same rows, same quantities: the duplicate bought nothing.
	after, err := h.Inventory.FindByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Require().Len(after, 2)
	for _, item := range after {
		suite.InDelta(1.0, *item.QtyEstimated, 1e-9)
	}

	suite.Equal(1, h.Metrics.Receipts("parsed"))
	suite.Equal(1, h.Metrics.Receipts("duplicate"))
}

// Replaying an autopilot-approved context returns the stored decision
// without a second event row, a second consumption, or a second taste
// signal.
func (suite *DinnerFlowTestSuite) TestAutopilotReplayIsIdempotent() {
	h := suite.harness
	now := time.Date(2026, time.January, 21, 17, 30, 0, 0, central)
	req := dinnerRequest(now.Format(time.RFC3339))

	suite.seedCatalogMeal("meal-012")
	h.SeedItem(suite.T(), testutils.NewItemBuilder("chicken breast").
		WithConfidence(0.95).
		WithQty(2, 0).
		SeenAt(now).
		Build())
	// A warm history: the household likes this meal, but not through
	// recent events that would trip the reuse or rejection gates.
	suite.Require().NoError(h.Taste.ApplyWeight(suite.ctx, testutils.DefaultHouseholdKey,
		"meal-012", 5.0, decision.ActionApproved, now.Add(-96*time.Hour)))

	first, err := h.Decisions.Decide(suite.ctx, testutils.DefaultHouseholdKey, req)
	suite.Require().NoError(err)
	suite.decision.ServedMeal(first, "meal-012")
	suite.decision.Autopilot(first, true)

	count, err := h.Events.CountByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	items, err := h.Inventory.FindByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Require().Len(items, 1)
	usedAfterFirst := items[0].QtyUsed
	suite.Greater(usedAfterFirst, 0.0)

	score, err := h.Taste.FindMealScore(suite.ctx, testutils.DefaultHouseholdKey, "meal-012")
	suite.Require().NoError(err)
	suite.Require().NotNil(score)
	scoreAfterFirst := score.Score

	second, err := h.Decisions.Decide(suite.ctx, testutils.DefaultHouseholdKey, req)
	suite.Require().NoError(err)
	suite.decision.ServedMeal(second, "meal-012")
	suite.decision.Autopilot(second, true)
	suite.Equal(first.Decision.DecisionEventID, second.Decision.DecisionEventID)
	suite.Equal(first.Decision.ContextHash, second.Decision.ContextHash)

	count, err = h.Events.CountByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count, "replay must not append a second row")

	items, err = h.Inventory.FindByHousehold(suite.ctx, testutils.DefaultHouseholdKey)
	suite.Require().NoError(err)
	suite.InDelta(usedAfterFirst, items[0].QtyUsed, 1e-9, "hooks must not run twice")

	score, err = h.Taste.FindMealScore(suite.ctx, testutils.DefaultHouseholdKey, "meal-012")
	suite.Require().NoError(err)
	suite.InDelta(scoreAfterFirst, score.Score, 1e-9)

	suite.Equal(1, h.Metrics.Autopilot(true), "gates run once, the replay short-circuits")
	suite.Equal(2, h.Metrics.Decisions("cook"))
}

func TestDinnerFlowTestSuite(t *testing.T) {
	suite.Run(t, new(DinnerFlowTestSuite))
}
