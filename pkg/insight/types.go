package insight

import "time"

// Type classifies a long-term memory insight.
type Type string

const (
	TypeStressor     Type = "stressor"
	TypeBreakthrough Type = "breakthrough"
	TypeSupportNeed  Type = "support_need"
	TypeMilestone    Type = "milestone"
	TypeCrisis       Type = "crisis"
)

// Types lists every insight category, for stats and validation.
var Types = []Type{TypeStressor, TypeBreakthrough, TypeSupportNeed, TypeMilestone, TypeCrisis}

// Insight is one significant conversational moment kept beyond the
// recent-history window. Immutable once written.
type Insight struct {
	ID              string    `json:"id" db:"id"`
	Type            Type      `json:"type" db:"type"`
	Content         string    `json:"content" db:"content"`
	OriginalMessage string    `json:"original_message" db:"original_message"`
	Timestamp       time.Time `json:"timestamp" db:"created_at"`
}
