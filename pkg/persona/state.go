package persona

import (
	"fmt"
	"time"

	"github.com/serenique/serenique-server/pkg/helpers"
)

// RecentListCap bounds the recent-stressors and coping-successes lists.
const RecentListCap = 5

// ActionType enumerates every interaction the state machine handles.
type ActionType string

const (
	ActionChatMessage           ActionType = "chat_message"
	ActionToolUse               ActionType = "tool_use"
	ActionSleepLog              ActionType = "sleep_log"
	ActionBreathingExercise     ActionType = "breathing_exercise"
	ActionGroundingTechnique    ActionType = "grounding_technique"
	ActionMindfulnessMeditation ActionType = "mindfulness_meditation"
	ActionBodyRelaxation        ActionType = "body_relaxation"
)

// ParseActionType validates a raw action type string.
func ParseActionType(raw string) (ActionType, bool) {
	switch ActionType(raw) {
	case ActionChatMessage, ActionToolUse, ActionSleepLog, ActionBreathingExercise,
		ActionGroundingTechnique, ActionMindfulnessMeditation, ActionBodyRelaxation:
		return ActionType(raw), true
	default:
		return "", false
	}
}

// Action carries one user interaction. Only the fields relevant to the
// action type are read; the rest stay zero.
type Action struct {
	Type ActionType

	// chat_message
	Content          string
	Mood             Mood
	StressorDetected string
	CrisisDetected   bool

	// tool_use and the wellness exercises
	ToolName        string
	Technique       string
	MoodAfter       Mood
	MoodImprovement string
	SessionQuality  string
	Completed       bool
	PausedTimes     int
	CompletionRate  float64
	StressLevel     string
	Environment     string
	HasTenseAreas   bool

	// sleep_log
	SleepHours   float64
	SleepQuality string
}

const improved = "Improved"

// Apply computes the next live state for one action, stamped at the
// given time. Pure: it never mutates the input and identical inputs
// yield identical outputs; persistence is the caller's responsibility.
func Apply(current LiveUserState, action Action, at time.Time) LiveUserState {
	next := current
	next.RecentStressors = append([]string(nil), current.RecentStressors...)
	next.CopingSuccesses = append([]string(nil), current.CopingSuccesses...)

	switch action.Type {
	case ActionChatMessage:
		next.ChatMessageCount++
		next.LastInteraction = "chat"
		if action.Mood != "" {
			if mood, ok := ParseMood(string(action.Mood)); ok {
				next.CurrentMood = mood
			}
		}
		if action.StressorDetected != "" {
			next.RecentStressors = appendBounded(next.RecentStressors, action.StressorDetected)
		}
		if action.CrisisDetected {
			next.NeedsCheckIn = true
		}

	case ActionToolUse:
		next.ToolUsageCount++
		next.LastInteraction = string(ActionToolUse)
		toolName := action.ToolName
		if toolName == "" {
			toolName = "unknown tool"
		}
		next.CopingSuccesses = appendBounded(next.CopingSuccesses, fmt.Sprintf("Used %s", toolName))

	case ActionSleepLog:
		next.SleepLogsCount++
		next.LastInteraction = string(ActionSleepLog)
		if action.SleepHours < 5 || action.SleepQuality == "poor" || action.SleepQuality == "very poor" {
			next.NeedsCheckIn = true
		}

	case ActionBreathingExercise:
		next.ToolUsageCount++
		next.LastInteraction = string(ActionBreathingExercise)
		applyAfterMood(&next, action.MoodAfter)
		technique := action.Technique
		if technique == "" {
			technique = "Breathing Exercise"
		}
		if action.MoodImprovement == improved {
			next.CopingSuccesses = appendBounded(next.CopingSuccesses, fmt.Sprintf("%s - Improved mood", technique))
			next.NeedsCheckIn = false
		}
		if action.SessionQuality == "Needs Improvement" || (!action.Completed && action.PausedTimes > 3) {
			next.NeedsCheckIn = true
			next.RecentStressors = appendBounded(next.RecentStressors, fmt.Sprintf("Difficulty with %s", technique))
		}

	case ActionGroundingTechnique:
		next.ToolUsageCount++
		next.LastInteraction = string(ActionGroundingTechnique)
		applyAfterMood(&next, action.MoodAfter)
		technique := action.Technique
		if technique == "" {
			technique = "Grounding Technique"
		}
		if action.MoodImprovement == improved {
			next.CopingSuccesses = appendBounded(next.CopingSuccesses, fmt.Sprintf("%s - Helped with grounding", technique))
			next.NeedsCheckIn = false
		}
		if action.StressLevel == "High" || action.StressLevel == "Very High" {
			next.NeedsCheckIn = true
			environment := action.Environment
			if environment == "" {
				environment = "general situation"
			}
			next.RecentStressors = appendBounded(next.RecentStressors, fmt.Sprintf("High stress in %s", environment))
		}

	case ActionMindfulnessMeditation:
		next.ToolUsageCount++
		next.LastInteraction = string(ActionMindfulnessMeditation)
		applyAfterMood(&next, action.MoodAfter)
		technique := action.Technique
		if technique == "" {
			technique = "Meditation"
		}
		if action.MoodImprovement == improved || action.SessionQuality == "Excellent" {
			next.CopingSuccesses = appendBounded(next.CopingSuccesses, fmt.Sprintf("%s meditation", technique))
			next.NeedsCheckIn = false
		}
		if !action.Completed && action.PausedTimes > 2 && action.CompletionRate < 50 {
			next.NeedsCheckIn = true
			next.RecentStressors = appendBounded(next.RecentStressors, fmt.Sprintf("Difficulty maintaining focus during %s", technique))
		}

	case ActionBodyRelaxation:
		next.ToolUsageCount++
		next.LastInteraction = string(ActionBodyRelaxation)
		applyAfterMood(&next, action.MoodAfter)
		tool := action.ToolName
		if tool == "" {
			tool = "Body Relaxation"
		}
		if action.MoodImprovement == improved || action.SessionQuality == "Excellent" {
			next.CopingSuccesses = appendBounded(next.CopingSuccesses, tool)
			next.NeedsCheckIn = false
		}
		if tool == "Body Mapping" && action.HasTenseAreas {
			next.RecentStressors = appendBounded(next.RecentStressors, "Significant body tension detected")
		}
	}

	stamp := at.UTC()
	next.LastInteractionTimestamp = stamp
	next.LastUpdated = stamp

	return next
}

func applyAfterMood(state *LiveUserState, after Mood) {
	if after == "" {
		return
	}
	if mood, ok := ParseMood(string(after)); ok {
		state.CurrentMood = mood
	}
}

// appendBounded appends entry unless already present, evicting the
// oldest entries beyond RecentListCap.
func appendBounded(list []string, entry string) []string {
	for _, existing := range list {
		if existing == entry {
			return list
		}
	}
	return helpers.SafeLastN(append(list, entry), RecentListCap)
}
