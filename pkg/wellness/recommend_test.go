package wellness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenique/serenique-server/pkg/persona"
)

func TestRecommendToolsAnxiousFavorsBreathing(t *testing.T) {
	scores := RecommendTools(persona.MoodAnxious, persona.StressorGeneral)

	require.Len(t, scores, 6)
	assert.Greater(t, scores[ToolBreathingExercise], scores[ToolJournal])
	assert.Greater(t, scores[ToolGroundingTechnique], scores[ToolSleepStory])
}

func TestRecommendToolsSleepStressorFavorsSleepStory(t *testing.T) {
	scores := RecommendTools(persona.MoodNeutral, persona.StressorSleep)

	assert.Greater(t, scores[ToolSleepStory], scores[ToolJournal])
}

func TestRecommendToolsNeutralBaseline(t *testing.T) {
	scores := RecommendTools(persona.MoodNeutral, persona.StressorGeneral)

	for tool, score := range scores {
		assert.Equal(t, float64(1), score, tool)
	}
}

func TestCrisisResourcesNotEmpty(t *testing.T) {
	assert.NotEmpty(t, CrisisResources)
}
