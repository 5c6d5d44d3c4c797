package model

// Category classifies a work item
type Category string

const (
	CategoryDefect         Category = "defect"
	CategoryFeature        Category = "feature"
	CategoryPerformance    Category = "performance"
	CategorySecurity       Category = "security"
	CategoryInfrastructure Category = "infrastructure"
	CategoryMonitoring     Category = "monitoring"
	CategoryQuality        Category = "quality"
	CategoryCompliance     Category = "compliance"

	// CategoryTechDebt is only used by the synthetic debt-reduction item
	CategoryTechDebt Category = "tech_debt"
)

// Categories lists the categories a catalog item may declare
var Categories = []Category{
	CategoryDefect, CategoryFeature, CategoryPerformance, CategorySecurity,
	CategoryInfrastructure, CategoryMonitoring, CategoryQuality, CategoryCompliance,
}

// Valid reports whether c may appear in a catalog
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// TechDebtItemID is the id of the synthetic item added to every voting pool
const TechDebtItemID = "tech-debt"

// WorkItem is a task the team can vote on
type WorkItem struct {
	ID               string        `json:"id" bson:"id"`
	Title            string        `json:"title" bson:"title"`
	Description      string        `json:"description,omitempty" bson:"description,omitempty"`
	Category         Category      `json:"category" bson:"category"`
	Difficulty       int           `json:"difficulty" bson:"difficulty"`
	Progress         int           `json:"progress" bson:"progress"`
	ProgressRequired int           `json:"progressRequired" bson:"progressRequired"`
	Impact           *MetricDeltas `json:"impact,omitempty" bson:"impact,omitempty"`             // Applied on completion
	Penalty          *MetricDeltas `json:"penalty,omitempty" bson:"penalty,omitempty"`           // Applied when left unselected
	Consequences     []string      `json:"consequences,omitempty" bson:"consequences,omitempty"` // Item ids injected when neglected
}

// IsSynthetic reports whether the item is the generated debt-reduction task
func (w *WorkItem) IsSynthetic() bool {
	return w.ID == TechDebtItemID
}

// IsComplete reports whether accumulated progress has met the requirement
func (w *WorkItem) IsComplete() bool {
	return w.ProgressRequired > 0 && w.Progress >= w.ProgressRequired
}

// ProgressPercent is progress relative to the requirement, capped at 100
func (w *WorkItem) ProgressPercent() int {
	if w.ProgressRequired <= 0 {
		return 0
	}
	pct := w.Progress * 100 / w.ProgressRequired
	if pct > 100 {
		return 100
	}
	return pct
}

// Clone returns a deep copy of the item
func (w *WorkItem) Clone() *WorkItem {
	if w == nil {
		return nil
	}
	c := *w
	c.Impact = w.Impact.Clone()
	c.Penalty = w.Penalty.Clone()
	if w.Consequences != nil {
		c.Consequences = append([]string(nil), w.Consequences...)
	}
	return &c
}

// CloneItems deep-copies a slice of items
func CloneItems(items []*WorkItem) []*WorkItem {
	if items == nil {
		return nil
	}
	out := make([]*WorkItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
