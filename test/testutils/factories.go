// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
)

// DefaultHouseholdKey is the tenant most fixtures run under.
const DefaultHouseholdKey = "default"

// MealBuilder provides a fluent interface for building test meals
type MealBuilder struct {
	id          string
	key         string
	title       string
	steps       string
	estMinutes  int
	costBand    meal.CostBand
	tags        []string
	active      bool
	ingredients []meal.Ingredient
}

// NewMealBuilder creates a meal builder with plausible defaults
func NewMealBuilder() *MealBuilder {
	faker := gofakeit.New(time.Now().UnixNano())
	title := faker.Dinner()
	id := "meal-" + uuid.NewString()[:8]

	return &MealBuilder{
		id:         id,
		key:        strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		title:      title,
		steps:      "Prep ingredients, cook, plate.",
		estMinutes: 25,
		costBand:   meal.CostMedium,
		tags:       []string{"dinner"},
		active:     true,
	}
}

// WithID sets the meal identifier and canonical key together
func (mb *MealBuilder) WithID(id string) *MealBuilder {
	mb.id = id
	return mb
}

// WithTitle sets the display title
func (mb *MealBuilder) WithTitle(title string) *MealBuilder {
	mb.title = title
	mb.key = strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return mb
}

// WithCanonicalKey overrides the derived canonical key
func (mb *MealBuilder) WithCanonicalKey(key string) *MealBuilder {
	mb.key = key
	return mb
}

// WithEstMinutes sets the prep estimate
func (mb *MealBuilder) WithEstMinutes(minutes int) *MealBuilder {
	mb.estMinutes = minutes
	return mb
}

// WithCostBand sets the cost band
func (mb *MealBuilder) WithCostBand(band meal.CostBand) *MealBuilder {
	mb.costBand = band
	return mb
}

// Inactive hides the meal from selection
func (mb *MealBuilder) Inactive() *MealBuilder {
	mb.active = false
	return mb
}

// WithIngredient appends one required ingredient
func (mb *MealBuilder) WithIngredient(name, qtyText string) *MealBuilder {
	mb.ingredients = append(mb.ingredients, meal.Ingredient{
		ID:      fmt.Sprintf("%s-ing-%02d", mb.id, len(mb.ingredients)+1),
		MealID:  mb.id,
		Name:    name,
		QtyText: qtyText,
	})
	return mb
}

// WithStaple appends one pantry-staple ingredient
func (mb *MealBuilder) WithStaple(name string) *MealBuilder {
	mb.ingredients = append(mb.ingredients, meal.Ingredient{
		ID:           fmt.Sprintf("%s-ing-%02d", mb.id, len(mb.ingredients)+1),
		MealID:       mb.id,
		Name:         name,
		QtyText:      "1",
		PantryStaple: true,
	})
	return mb
}

// Build constructs the meal and its ingredient list
func (mb *MealBuilder) Build() (meal.Meal, []meal.Ingredient) {
	m := meal.Meal{
		ID:           mb.id,
		CanonicalKey: mb.key,
		Title:        mb.title,
		StepsShort:   mb.steps,
		EstMinutes:   mb.estMinutes,
		CostBand:     mb.costBand,
		Tags:         mb.tags,
		Active:       mb.active,
		CreatedAt:    time.Now().UTC(),
	}

	ings := make([]meal.Ingredient, len(mb.ingredients))
	copy(ings, mb.ingredients)
	for i := range ings {
		ings[i].MealID = mb.id
	}
	return m, ings
}

// ItemBuilder provides a fluent interface for building inventory items
type ItemBuilder struct {
	id           string
	householdKey string
	name         string
	qty          *float64
	qtyUsed      float64
	confidence   float64
	source       inventory.Source
	lastSeenAt   time.Time
	lastUsedAt   *time.Time
}

// NewItemBuilder creates an item builder with full-confidence defaults
func NewItemBuilder(name string) *ItemBuilder {
	qty := 2.0
	return &ItemBuilder{
		id:           "item-" + uuid.NewString()[:8],
		householdKey: DefaultHouseholdKey,
		name:         name,
		qty:          &qty,
		confidence:   0.90,
		source:       inventory.SourceReceipt,
		lastSeenAt:   time.Now().UTC(),
	}
}

// ForHousehold scopes the item to a tenant
func (ib *ItemBuilder) ForHousehold(key string) *ItemBuilder {
	ib.householdKey = key
	return ib
}

// WithConfidence sets the stored confidence
func (ib *ItemBuilder) WithConfidence(c float64) *ItemBuilder {
	ib.confidence = c
	return ib
}

// WithQty sets estimated and used quantities
func (ib *ItemBuilder) WithQty(estimated, used float64) *ItemBuilder {
	ib.qty = &estimated
	ib.qtyUsed = used
	return ib
}

// WithoutQty clears the quantity estimate entirely
func (ib *ItemBuilder) WithoutQty() *ItemBuilder {
	ib.qty = nil
	ib.qtyUsed = 0
	return ib
}

// SeenAt sets the last-seen timestamp decay is measured from
func (ib *ItemBuilder) SeenAt(t time.Time) *ItemBuilder {
	ib.lastSeenAt = t
	return ib
}

// FromSource sets the provenance
func (ib *ItemBuilder) FromSource(s inventory.Source) *ItemBuilder {
	ib.source = s
	return ib
}

// Build constructs the inventory item
func (ib *ItemBuilder) Build() inventory.Item {
	return inventory.Item{
		ID:              ib.id,
		HouseholdKey:    ib.householdKey,
		Name:            ib.name,
		QtyEstimated:    ib.qty,
		QtyUsed:         ib.qtyUsed,
		Confidence:      ib.confidence,
		Source:          ib.source,
		LastSeenAt:      ib.lastSeenAt,
		LastUsedAt:      ib.lastUsedAt,
		DecayRatePerDay: inventory.DefaultDecayRatePerDay,
		CreatedAt:       ib.lastSeenAt,
	}
}

// EventBuilder provides a fluent interface for building decision events
type EventBuilder struct {
	householdKey string
	decisionType decision.Type
	mealID       string
	userAction   decision.UserAction
	notes        string
	decidedAt    time.Time
	contextHash  string
}

// NewEventBuilder creates an event builder for a cook decision
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		householdKey: DefaultHouseholdKey,
		decisionType: decision.TypeCook,
		mealID:       "meal-001",
		userAction:   decision.ActionPending,
		decidedAt:    time.Now().UTC(),
	}
}

// ForHousehold scopes the event to a tenant
func (eb *EventBuilder) ForHousehold(key string) *EventBuilder {
	eb.householdKey = key
	return eb
}

// OfType sets the decision type
func (eb *EventBuilder) OfType(t decision.Type) *EventBuilder {
	eb.decisionType = t
	return eb
}

// ForMeal sets the referenced meal
func (eb *EventBuilder) ForMeal(mealID string) *EventBuilder {
	eb.mealID = mealID
	return eb
}

// WithAction sets the recorded user action
func (eb *EventBuilder) WithAction(a decision.UserAction) *EventBuilder {
	eb.userAction = a
	return eb
}

// WithNotes sets free-form notes
func (eb *EventBuilder) WithNotes(notes string) *EventBuilder {
	eb.notes = notes
	return eb
}

// At sets the decided-at timestamp
func (eb *EventBuilder) At(t time.Time) *EventBuilder {
	eb.decidedAt = t
	return eb
}

// WithContextHash sets the idempotency hash
func (eb *EventBuilder) WithContextHash(hash string) *EventBuilder {
	eb.contextHash = hash
	return eb
}

// Build constructs the decision event
func (eb *EventBuilder) Build() decision.Event {
	return decision.Event{
		ID:           uuid.NewString(),
		HouseholdKey: eb.householdKey,
		DecidedAt:    eb.decidedAt,
		Type:         eb.decisionType,
		MealID:       eb.mealID,
		ContextHash:  eb.contextHash,
		UserAction:   eb.userAction,
		Notes:        eb.notes,
	}
}

// ReceiptTextFactory generates receipt text in the layouts the parser
// understands.
type ReceiptTextFactory struct {
	faker *gofakeit.Faker
}

// NewReceiptTextFactory creates a factory with a seeded faker so runs
// are reproducible.
func NewReceiptTextFactory(seed int64) *ReceiptTextFactory {
	return &ReceiptTextFactory{faker: gofakeit.New(seed)}
}

// Lines renders n priced line items in "NAME $PRICE" form.
func (rf *ReceiptTextFactory) Lines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		price := rf.faker.Price(0.5, 25)
		fmt.Fprintf(&b, "%s $%.2f\n", strings.ToUpper(rf.faker.Vegetable()), price)
	}
	return b.String()
}
