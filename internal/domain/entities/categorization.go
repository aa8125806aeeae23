package entities

// CategorizedDependency wraps a fact with its classification.
type CategorizedDependency struct {
	Fact         DependencyFact
	Primary      Category
	Secondary    []Category // set semantics, kept sorted by precedence
	Confidence   Confidence
	Risk         RiskLevel
	HighPriority bool
	Reasoning    []string
}

// HasCategory reports whether c is the primary or a secondary category.
func (d CategorizedDependency) HasCategory(c Category) bool {
	if d.Primary == c {
		return true
	}
	for _, s := range d.Secondary {
		if s == c {
			return true
		}
	}
	return false
}

// CategorizationSummary aggregates a categorization run.
type CategorizationSummary struct {
	Total             int
	Counts            map[Category]int
	PrimaryCategory   Category
	OverallConfidence Confidence
	AverageRisk       float64
	HasSecurity       bool
	HasBreaking       bool
	HighPriorityCount int
	RecommendedBump   BumpType
	Reasoning         []string
}

// CategorizationResult is the output of the categorization engine.
type CategorizationResult struct {
	Dependencies []CategorizedDependency
	Summary      CategorizationSummary
}

// Subset returns the categorizations whose dependency names are in names,
// keeping the original order.
func (r CategorizationResult) Subset(names map[string]bool) []CategorizedDependency {
	out := make([]CategorizedDependency, 0, len(names))
	for _, dep := range r.Dependencies {
		if names[dep.Fact.Name] {
			out = append(out, dep)
		}
	}
	return out
}
