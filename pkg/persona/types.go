package persona

import "time"

// CommunicationStyle is how the user prefers to process and discuss emotions.
type CommunicationStyle string

const (
	CommunicationLogical   CommunicationStyle = "logical"
	CommunicationEmotional CommunicationStyle = "emotional"
	CommunicationBalanced  CommunicationStyle = "balanced"
)

// PrimaryStressor is the main source of stress for the user.
type PrimaryStressor string

const (
	StressorAcademics PrimaryStressor = "academics"
	StressorSocial    PrimaryStressor = "social"
	StressorSleep     PrimaryStressor = "sleep"
	StressorGeneral   PrimaryStressor = "general"
)

// SocialProfile is the user's social energy and interaction preference.
type SocialProfile string

const (
	SocialIntroverted SocialProfile = "introverted"
	SocialExtroverted SocialProfile = "extroverted"
	SocialAmbiverted  SocialProfile = "ambiverted"
)

// CopingMechanism is how the user naturally copes with stress.
type CopingMechanism string

const (
	CopingAnalytical CopingMechanism = "analytical"
	CopingAffective  CopingMechanism = "affective"
	CopingMixed      CopingMechanism = "mixed"
)

// StressLevel is the overall current stress assessment.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

// Mood is the user's current mood state.
type Mood string

const (
	MoodNeutral   Mood = "neutral"
	MoodHappy     Mood = "happy"
	MoodAnxious   Mood = "anxious"
	MoodStressed  Mood = "stressed"
	MoodSad       Mood = "sad"
	MoodMotivated Mood = "motivated"
	MoodTired     Mood = "tired"
	MoodCalm      Mood = "calm"
)

// ParseMood validates a raw mood string. Unknown values return false so
// callers can keep the current mood instead of storing free text.
func ParseMood(raw string) (Mood, bool) {
	switch Mood(raw) {
	case MoodNeutral, MoodHappy, MoodAnxious, MoodStressed, MoodSad, MoodMotivated, MoodTired, MoodCalm:
		return Mood(raw), true
	default:
		return "", false
	}
}

// PersonalityProfile is the static profile derived from quiz responses.
// It is generated once and never mutated afterwards.
type PersonalityProfile struct {
	CommunicationStyle CommunicationStyle `json:"communication_style"`
	PrimaryStressor    PrimaryStressor    `json:"primary_stressor"`
	SocialProfile      SocialProfile      `json:"social_profile"`
	CopingMechanism    CopingMechanism    `json:"coping_mechanism"`
	StressLevel        StressLevel        `json:"stress_level"`

	Strengths           []string `json:"strengths"`
	Vulnerabilities     []string `json:"vulnerabilities"`
	RecommendedApproach string   `json:"recommended_approach"`

	ChatbotTone        string   `json:"chatbot_tone"`
	ChatbotMethodology string   `json:"chatbot_methodology"`
	ProactiveTriggers  []string `json:"proactive_triggers"`

	ChatbotSystemPrompt string `json:"chatbot_system_prompt"`

	GeneratedAt time.Time `json:"generated_at"`
	QuizVersion string    `json:"quiz_version"`
}

// LiveUserState is the dynamic state updated through app interactions.
// Counters only ever grow; the recent lists are capped at RecentListCap.
type LiveUserState struct {
	CurrentMood              Mood      `json:"current_mood"`
	LastInteraction          string    `json:"last_interaction"`
	LastInteractionTimestamp time.Time `json:"last_interaction_timestamp"`

	ChatMessageCount int `json:"chat_message_count"`
	ToolUsageCount   int `json:"tool_usage_count"`
	SleepLogsCount   int `json:"sleep_logs_count"`

	RecentStressors []string `json:"recent_stressors"`
	CopingSuccesses []string `json:"coping_successes"`
	NeedsCheckIn    bool     `json:"needs_check_in"`

	LastUpdated time.Time `json:"last_updated"`
}

// NewLiveUserState returns the initial state for a freshly onboarded user.
func NewLiveUserState() LiveUserState {
	now := time.Now().UTC()
	return LiveUserState{
		CurrentMood:              MoodNeutral,
		LastInteraction:          "onboarding",
		LastInteractionTimestamp: now,
		LastUpdated:              now,
	}
}

// UserPersona pairs the static profile with the live state for one user.
type UserPersona struct {
	UserID             string             `json:"user_id"`
	PersonalityProfile PersonalityProfile `json:"personality_profile"`
	LiveUserState      LiveUserState      `json:"live_user_state"`
}
