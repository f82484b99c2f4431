package matching

// Category is one of the seven pantry buckets an item can land in.
type Category string

const (
	CategoryProtein Category = "protein"
	CategoryProduce Category = "produce"
	CategoryDairy   Category = "dairy"
	CategoryPantry  Category = "pantry"
	CategoryBakery  Category = "bakery"
	CategoryFrozen  Category = "frozen"
	CategoryOther   Category = "other"
)

// categoryPriority is the evaluation order; the first category whose
// keywords (or validated generic tokens) hit wins.
var categoryPriority = []Category{
	CategoryProtein,
	CategoryProduce,
	CategoryDairy,
	CategoryFrozen,
	CategoryBakery,
	CategoryPantry,
}

// categoryKeywords are whole-token hits per category. Tokens that are
// ambiguous alone live in genericTokens instead.
var categoryKeywords = map[Category]map[string]struct{}{
	CategoryProtein: {
		"chicken": {}, "beef": {}, "pork": {}, "turkey": {}, "fish": {},
		"salmon": {}, "tuna": {}, "shrimp": {}, "tofu": {}, "egg": {},
		"eggs": {}, "bacon": {}, "sausage": {}, "ham": {}, "steak": {},
		"lamb": {}, "tilapia": {}, "cod": {}, "brisket": {},
		"meatball": {}, "meatballs": {}, "ribs": {}, "drumstick": {},
		"drumsticks": {}, "wings": {}, "tenders": {}, "patty": {},
		"patties": {}, "jerky": {},
	},
	CategoryProduce: {
		"tomato": {}, "tomatoes": {}, "lettuce": {}, "spinach": {},
		"onion": {}, "onions": {}, "garlic": {}, "pepper": {},
		"peppers": {}, "carrot": {}, "carrots": {}, "celery": {},
		"broccoli": {}, "cauliflower": {}, "potato": {}, "potatoes": {},
		"cucumber": {}, "zucchini": {}, "squash": {}, "apple": {},
		"apples": {}, "banana": {}, "bananas": {}, "orange": {},
		"oranges": {}, "lemon": {}, "lime": {}, "avocado": {},
		"berries": {}, "strawberry": {}, "strawberries": {},
		"blueberry": {}, "blueberries": {}, "grape": {}, "grapes": {},
		"mushroom": {}, "mushrooms": {}, "cilantro": {}, "parsley": {},
		"basil": {}, "kale": {}, "cabbage": {}, "corn": {}, "ginger": {},
		"scallion": {}, "scallions": {},
	},
	CategoryDairy: {
		"milk": {}, "cheese": {}, "yogurt": {}, "butter": {},
		"cream": {}, "cheddar": {}, "mozzarella": {}, "parmesan": {},
		"swiss": {}, "provolone": {}, "cottage": {}, "creamer": {},
		"buttermilk": {}, "eggnog": {},
	},
	CategoryFrozen: {
		"frozen": {}, "ice": {}, "pizza": {}, "popsicle": {},
		"popsicles": {}, "waffles": {}, "fries": {}, "nuggets": {},
	},
	CategoryBakery: {
		"bread": {}, "bagel": {}, "bagels": {}, "muffin": {},
		"muffins": {}, "bun": {}, "buns": {}, "roll": {}, "rolls": {},
		"tortilla": {}, "tortillas": {}, "croissant": {}, "donut": {},
		"donuts": {}, "cake": {}, "pie": {}, "baguette": {}, "loaf": {},
		"pita": {}, "naan": {},
	},
	CategoryPantry: {
		"rice": {}, "pasta": {}, "flour": {}, "sugar": {}, "salt": {},
		"oil": {}, "vinegar": {}, "sauce": {}, "soup": {}, "broth": {},
		"stock": {}, "beans": {}, "lentils": {}, "cereal": {},
		"oats": {}, "oatmeal": {}, "noodles": {}, "spaghetti": {},
		"macaroni": {}, "quinoa": {}, "honey": {}, "syrup": {},
		"ketchup": {}, "mustard": {}, "mayo": {}, "mayonnaise": {},
		"salsa": {}, "chips": {}, "crackers": {}, "cookies": {},
		"candy": {}, "peanut": {}, "almond": {}, "walnut": {},
		"cashew": {}, "nuts": {}, "spice": {}, "spices": {},
		"seasoning": {}, "cumin": {}, "paprika": {}, "oregano": {},
	},
}

// genericTokens are too ambiguous to classify alone ("ground" could be
// beef or coffee). Each binds to one target category plus the core
// tokens that validate it; the hit counts only when a core token
// appears in the same sequence.
var genericTokens = map[string]struct {
	target Category
	cores  map[string]struct{}
}{
	"ground":  {CategoryProtein, set("beef", "turkey", "pork", "chicken", "lamb", "sausage")},
	"breast":  {CategoryProtein, set("chicken", "turkey")},
	"thigh":   {CategoryProtein, set("chicken", "turkey")},
	"thighs":  {CategoryProtein, set("chicken", "turkey")},
	"loin":    {CategoryProtein, set("pork", "beef")},
	"chop":    {CategoryProtein, set("pork", "lamb")},
	"chops":   {CategoryProtein, set("pork", "lamb")},
	"whole":   {CategoryDairy, set("milk")},
	"half":    {CategoryDairy, set("cream", "milk")},
	"skim":    {CategoryDairy, set("milk")},
	"wheat":   {CategoryBakery, set("bread", "bun", "buns", "bagel", "bagels", "tortilla", "tortillas")},
	"english": {CategoryBakery, set("muffin", "muffins")},
	"baby":    {CategoryProduce, set("spinach", "carrot", "carrots", "kale", "greens")},
	"sweet":   {CategoryProduce, set("potato", "potatoes", "corn", "onion", "onions", "pepper", "peppers")},
	"green":   {CategoryProduce, set("beans", "onion", "onions", "pepper", "peppers", "cabbage")},
	"red":     {CategoryProduce, set("pepper", "peppers", "onion", "onions", "cabbage", "grapes")},
	"roma":    {CategoryProduce, set("tomato", "tomatoes")},
}

func set(tokens ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// InferCategory maps a token sequence to the first matching category in
// priority order. Generic tokens count only when one of their core
// tokens co-occurs; everything else falls through to CategoryOther.
func InferCategory(tokens []string) Category {
	if len(tokens) == 0 {
		return CategoryOther
	}

	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}

	for _, cat := range categoryPriority {
		keywords := categoryKeywords[cat]
		for _, tok := range tokens {
			if _, ok := keywords[tok]; ok {
				return cat
			}
			g, isGeneric := genericTokens[tok]
			if !isGeneric || g.target != cat {
				continue
			}
			for core := range g.cores {
				if _, ok := present[core]; ok {
					return cat
				}
			}
		}
	}

	return CategoryOther
}

// Compatible reports whether two categories may refer to the same
// physical item. Other matches everything; concrete categories only
// match themselves.
func Compatible(a, b Category) bool {
	if a == CategoryOther || b == CategoryOther {
		return true
	}
	return a == b
}
