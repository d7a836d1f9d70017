package insight

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Keyword sets per category. Matching is case-insensitive substring
// matching over the user message; the assistant response is kept only as
// provenance and never scanned.
var stressorPatterns = map[string][]string{
	"academic":  {"exam", "test", "quiz", "deadline", "assignment", "homework", "study", "grade", "fail"},
	"social":    {"fight", "argument", "lonely", "isolated", "bullied", "rejected", "broke up", "breakup"},
	"authority": {"teacher", "professor", "parent", "boss", "scolded", "yelled", "criticized"},
	"health":    {"sick", "pain", "injury", "hospital", "doctor", "medication"},
	"sleep":     {"insomnia", "can't sleep", "no sleep", "sleepless", "tired", "exhausted"},
	"financial": {"money", "broke", "debt", "can't afford", "expensive", "bills"},
}

// stressorCategories fixes the evaluation order so extraction output is
// stable run to run.
var stressorCategories = []string{"academic", "social", "authority", "health", "sleep", "financial"}

var breakthroughPatterns = []string{
	"i understand", "i realize", "i get it now", "makes sense",
	"feeling better", "helped me", "worked", "progress",
	"breakthrough", "clarity", "clearer now",
}

var supportNeedPatterns = []string{
	"help me", "i need", "struggling", "don't know what to do",
	"lost", "confused", "overwhelmed", "too much", "can't handle",
	"giving up", "want to quit",
}

var milestonePatterns = []string{
	"completed", "finished", "achieved", "accomplished", "succeeded",
	"first time", "milestone", "proud", "celebration", "victory",
}

var crisisPatterns = []string{
	"hurt myself", "harm myself", "kill myself", "suicide", "end it",
	"want to die", "better off dead", "can't go on", "no point",
	"self harm", "cutting",
}

// Extract classifies one conversation exchange into zero or more
// candidate insights. Each category detector runs independently, so a
// single message can yield several candidates. Deterministic given its
// inputs; never fails on malformed text.
func Extract(userMessage, aiResponse string, timestamp time.Time) []Insight {
	lower := strings.ToLower(userMessage)

	var insights []Insight
	if crisis := detectCrisis(userMessage, lower, timestamp); crisis != nil {
		insights = append(insights, *crisis)
	}
	insights = append(insights, detectStressors(userMessage, lower, timestamp)...)
	if breakthrough := detectBreakthrough(userMessage, lower, timestamp); breakthrough != nil {
		insights = append(insights, *breakthrough)
	}
	if support := detectSupportNeed(userMessage, lower, timestamp); support != nil {
		insights = append(insights, *support)
	}
	if milestone := detectMilestone(userMessage, lower, timestamp); milestone != nil {
		insights = append(insights, *milestone)
	}

	return insights
}

func detectCrisis(message, lower string, timestamp time.Time) *Insight {
	for _, pattern := range crisisPatterns {
		if strings.Contains(lower, pattern) {
			return &Insight{
				Type:            TypeCrisis,
				Content:         "CRISIS: User expressed concerning thoughts - immediate support needed",
				OriginalMessage: message,
				Timestamp:       timestamp,
			}
		}
	}
	return nil
}

func detectStressors(message, lower string, timestamp time.Time) []Insight {
	var insights []Insight

	for _, category := range stressorCategories {
		for _, keyword := range stressorPatterns[category] {
			idx := strings.Index(lower, keyword)
			if idx < 0 {
				continue
			}
			context := surroundingContext(lower, idx, len(keyword), 30)
			insights = append(insights, Insight{
				Type:            TypeStressor,
				Content:         fmt.Sprintf("%s stress detected: %s", titleCase(category), context),
				OriginalMessage: message,
				Timestamp:       timestamp,
			})
			break // one insight per category per message
		}
	}

	return insights
}

func detectBreakthrough(message, lower string, timestamp time.Time) *Insight {
	sentence, ok := matchingSentence(message, lower, breakthroughPatterns)
	if !ok {
		return nil
	}
	return &Insight{
		Type:            TypeBreakthrough,
		Content:         fmt.Sprintf("Positive realization: %s", sentence),
		OriginalMessage: message,
		Timestamp:       timestamp,
	}
}

func detectSupportNeed(message, lower string, timestamp time.Time) *Insight {
	for _, pattern := range supportNeedPatterns {
		if strings.Contains(lower, pattern) {
			return &Insight{
				Type:            TypeSupportNeed,
				Content:         "User expressed need for support",
				OriginalMessage: message,
				Timestamp:       timestamp,
			}
		}
	}
	return nil
}

func detectMilestone(message, lower string, timestamp time.Time) *Insight {
	sentence, ok := matchingSentence(message, lower, milestonePatterns)
	if !ok {
		return nil
	}
	return &Insight{
		Type:            TypeMilestone,
		Content:         fmt.Sprintf("Achievement: %s", sentence),
		OriginalMessage: message,
		Timestamp:       timestamp,
	}
}

// matchingSentence returns the first sentence of message containing any
// of the patterns.
func matchingSentence(message, lower string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if !strings.Contains(lower, pattern) {
			continue
		}
		for _, sentence := range strings.Split(message, ".") {
			if strings.Contains(strings.ToLower(sentence), pattern) {
				return strings.TrimSpace(sentence), true
			}
		}
	}
	return "", false
}

// surroundingContext slices up to pad bytes either side of the keyword,
// clamped to the message bounds and widened to rune boundaries so the
// window never splits a multibyte character.
func surroundingContext(lower string, idx, keywordLen, pad int) string {
	start := idx - pad
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(lower[start]) {
		start--
	}
	end := idx + keywordLen + pad
	if end > len(lower) {
		end = len(lower)
	}
	for end < len(lower) && !utf8.RuneStart(lower[end]) {
		end++
	}
	return strings.TrimSpace(lower[start:end])
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
