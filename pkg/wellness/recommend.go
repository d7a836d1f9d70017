// Package wellness scores the app's wellness tools against the user's
// current context. Plain additive scoring over mood and primary
// stressor; the scores ride along as chat message metadata so the client
// can surface tool suggestions next to a reply.
package wellness

import (
	"github.com/serenique/serenique-server/pkg/persona"
)

const (
	ToolBreathingExercise     = "breathing_exercise"
	ToolGroundingTechnique    = "grounding_technique"
	ToolMindfulnessMeditation = "mindfulness_meditation"
	ToolBodyRelaxation        = "body_relaxation"
	ToolJournal               = "journal"
	ToolSleepStory            = "sleep_story"
)

// RecommendTools returns a score per tool, higher meaning a better fit
// for the user's current mood and primary stressor. Scores are relative
// within one call, not comparable across calls.
func RecommendTools(mood persona.Mood, stressor persona.PrimaryStressor) map[string]float64 {
	scores := map[string]float64{
		ToolBreathingExercise:     1,
		ToolGroundingTechnique:    1,
		ToolMindfulnessMeditation: 1,
		ToolBodyRelaxation:        1,
		ToolJournal:               1,
		ToolSleepStory:            1,
	}

	switch mood {
	case persona.MoodAnxious:
		scores[ToolBreathingExercise] += 2
		scores[ToolGroundingTechnique] += 2
	case persona.MoodStressed:
		scores[ToolBreathingExercise] += 2
		scores[ToolBodyRelaxation] += 1
	case persona.MoodSad:
		scores[ToolJournal] += 2
		scores[ToolMindfulnessMeditation] += 1
	case persona.MoodTired:
		scores[ToolSleepStory] += 2
		scores[ToolBodyRelaxation] += 1
	}

	switch stressor {
	case persona.StressorSleep:
		scores[ToolSleepStory] += 2
		scores[ToolBodyRelaxation] += 1
	case persona.StressorAcademics:
		scores[ToolBreathingExercise] += 1
		scores[ToolJournal] += 1
	case persona.StressorSocial:
		scores[ToolGroundingTechnique] += 1
		scores[ToolJournal] += 1
	}

	return scores
}

// CrisisResources is appended to replies when a crisis insight fires so
// the client always shows help lines alongside the model's answer.
var CrisisResources = []string{
	"988 Suicide & Crisis Lifeline (call or text 988)",
	"Crisis Text Line (text HOME to 741741)",
	"International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/",
}
