package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"

	"github.com/serenique/serenique-server/pkg/ai"
)

// QuizAnswers maps question number (1-10) to the selected answer letter.
type QuizAnswers map[int]string

// QuizLength is the number of questions a complete quiz carries.
const QuizLength = 10

// traits captures what a single quiz answer tells us about the user.
type traits struct {
	communication string
	coping        string
	stressor      string
	socialProfile string
	resilience    string
	sleepPriority string
	academic      string
	burnoutRisk   string
}

// quizMappings interprets each answer of the onboarding quiz. The table
// mirrors the quiz shipped in the client app; changing the quiz means
// changing this table in lockstep.
var quizMappings = map[int]map[string]traits{
	1: { // stress help preference
		"a": {communication: "emotional", coping: "affective"},
		"b": {communication: "logical", coping: "analytical"},
		"c": {communication: "balanced"},
		"d": {communication: "balanced", coping: "active"},
	},
	2: { // social media feelings
		"a": {resilience: "high"},
		"b": {resilience: "moderate", stressor: "comparison"},
		"c": {resilience: "low", stressor: "comparison"},
		"d": {resilience: "low", stressor: "digital_overload"},
	},
	3: { // social battery
		"a": {socialProfile: "extroverted"},
		"b": {socialProfile: "ambiverted"},
		"c": {socialProfile: "introverted"},
		"d": {socialProfile: "introverted"},
	},
	4: { // academic overwhelm
		"a": {academic: "low", resilience: "high"},
		"b": {academic: "moderate", resilience: "moderate"},
		"c": {academic: "high", stressor: "academics"},
		"d": {academic: "high", burnoutRisk: "high"},
	},
	5: { // help preference
		"a": {communication: "emotional"},
		"b": {communication: "logical"},
		"c": {communication: "balanced"},
		"d": {communication: "balanced"},
	},
	6: { // sleep-mood connection
		"a": {sleepPriority: "high"},
		"b": {sleepPriority: "moderate"},
		"c": {sleepPriority: "critical", stressor: "sleep"},
		"d": {sleepPriority: "critical", burnoutRisk: "high"},
	},
	7: { // response to problems
		"a": {coping: "analytical"},
		"b": {coping: "affective"},
		"c": {coping: "distraction"},
		"d": {coping: "mindful"},
	},
	8: { // screen time
		"a": {},
		"b": {},
		"c": {stressor: "digital_overload"},
		"d": {burnoutRisk: "moderate"},
	},
	9: { // social initiation
		"a": {socialProfile: "extroverted"},
		"b": {socialProfile: "ambiverted"},
		"c": {socialProfile: "introverted"},
		"d": {socialProfile: "introverted"},
	},
	10: { // negative self-talk
		"a": {coping: "analytical"},
		"b": {coping: "affective"},
		"c": {coping: "distraction"},
		"d": {coping: "creative"},
	},
}

// quizAnalysis aggregates the trait signals across all ten answers.
type quizAnalysis struct {
	communicationScores map[string]int
	stressors           []string
	socialIndicators    []string
	copingPatterns      []string
	burnoutSignals      []string
	sleepImportance     int
	academicPressure    int
	resilienceScore     int
}

// Architect turns quiz answers into a PersonalityProfile. When a
// completions service is configured, strengths and vulnerabilities are
// enriched by the model; the quiz-derived dimensions always stay
// deterministic.
type Architect struct {
	logger      *log.Logger
	completions ai.Completion
	model       string
}

func NewArchitect(logger *log.Logger, completions ai.Completion, model string) *Architect {
	return &Architect{
		logger:      logger,
		completions: completions,
		model:       model,
	}
}

// Generate builds the complete persona (static profile + initial live
// state) for one user from quiz answers.
func (a *Architect) Generate(ctx context.Context, userID string, quiz QuizAnswers) (UserPersona, error) {
	if len(quiz) < QuizLength {
		return UserPersona{}, fmt.Errorf("incomplete quiz: expected %d answers, got %d", QuizLength, len(quiz))
	}

	analysis := analyzeQuiz(quiz)

	style := determineCommunicationStyle(analysis)
	stressor := determinePrimaryStressor(analysis)
	social := determineSocialProfile(analysis)
	coping := determineCopingMechanism(analysis)
	stress := assessStressLevel(analysis)

	profile := PersonalityProfile{
		CommunicationStyle:  style,
		PrimaryStressor:     stressor,
		SocialProfile:       social,
		CopingMechanism:     coping,
		StressLevel:         stress,
		Strengths:           defaultStrengths(coping, social),
		Vulnerabilities:     defaultVulnerabilities(stressor, stress),
		RecommendedApproach: recommendedApproach(coping),
		ChatbotTone:         chatbotTone(style),
		ChatbotMethodology:  chatbotMethodology(coping),
		ProactiveTriggers:   proactiveTriggers(stressor, social, analysis),
		GeneratedAt:         time.Now().UTC(),
		QuizVersion:         "1.0",
	}
	profile.ChatbotSystemPrompt = buildSystemPrompt(profile, analysis)

	if a.completions != nil {
		if err := a.refineWithModel(ctx, &profile, quiz); err != nil {
			a.logger.Warn("Model refinement failed, keeping quiz-derived profile", "user_id", userID, "error", err)
		}
	}

	return UserPersona{
		UserID:             userID,
		PersonalityProfile: profile,
		LiveUserState:      NewLiveUserState(),
	}, nil
}

func analyzeQuiz(quiz QuizAnswers) quizAnalysis {
	analysis := quizAnalysis{
		communicationScores: map[string]int{"logical": 0, "emotional": 0, "balanced": 0},
	}

	priorityMap := map[string]int{"high": 1, "moderate": 2, "critical": 3}
	stressMap := map[string]int{"low": 1, "moderate": 2, "high": 3}
	resilienceMap := map[string]int{"high": 3, "moderate": 2, "low": 1}

	for question, answer := range quiz {
		answers, ok := quizMappings[question]
		if !ok {
			continue
		}
		tr, ok := answers[strings.ToLower(answer)]
		if !ok {
			continue
		}

		if tr.communication != "" {
			analysis.communicationScores[tr.communication]++
		}
		if tr.stressor != "" {
			analysis.stressors = append(analysis.stressors, tr.stressor)
		}
		if tr.socialProfile != "" {
			analysis.socialIndicators = append(analysis.socialIndicators, tr.socialProfile)
		}
		if tr.coping != "" {
			analysis.copingPatterns = append(analysis.copingPatterns, tr.coping)
		}
		if tr.burnoutRisk != "" {
			analysis.burnoutSignals = append(analysis.burnoutSignals, tr.burnoutRisk)
		}
		if p := priorityMap[tr.sleepPriority]; p > analysis.sleepImportance {
			analysis.sleepImportance = p
		}
		if p := stressMap[tr.academic]; p > analysis.academicPressure {
			analysis.academicPressure = p
		}
		analysis.resilienceScore += resilienceMap[tr.resilience]
	}

	return analysis
}

func determineCommunicationStyle(analysis quizAnalysis) CommunicationStyle {
	scores := analysis.communicationScores
	maxScore := 0
	for _, score := range scores {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore == 0 {
		return CommunicationBalanced
	}

	var top []string
	for style, score := range scores {
		if score == maxScore {
			top = append(top, style)
		}
	}
	if len(top) != 1 {
		return CommunicationBalanced
	}

	switch top[0] {
	case "logical":
		return CommunicationLogical
	case "emotional":
		return CommunicationEmotional
	default:
		return CommunicationBalanced
	}
}

func determinePrimaryStressor(analysis quizAnalysis) PrimaryStressor {
	if len(analysis.stressors) == 0 {
		if analysis.academicPressure >= 2 {
			return StressorAcademics
		}
		return StressorGeneral
	}

	counts := map[string]int{}
	for _, stressor := range analysis.stressors {
		counts[stressor]++
	}
	top := topKey(counts)

	switch top {
	case "academics":
		return StressorAcademics
	case "comparison", "digital_overload":
		return StressorSocial
	case "sleep":
		return StressorSleep
	default:
		return StressorGeneral
	}
}

func determineSocialProfile(analysis quizAnalysis) SocialProfile {
	if len(analysis.socialIndicators) == 0 {
		return SocialAmbiverted
	}

	counts := map[string]int{}
	for _, indicator := range analysis.socialIndicators {
		counts[indicator]++
	}

	switch topKey(counts) {
	case "introverted":
		return SocialIntroverted
	case "extroverted":
		return SocialExtroverted
	default:
		return SocialAmbiverted
	}
}

func determineCopingMechanism(analysis quizAnalysis) CopingMechanism {
	counts := map[string]int{}
	for _, pattern := range analysis.copingPatterns {
		counts[pattern]++
	}

	analytical := counts["analytical"]
	affective := counts["affective"] + counts["creative"]

	switch {
	case analytical > affective:
		return CopingAnalytical
	case affective > analytical:
		return CopingAffective
	default:
		return CopingMixed
	}
}

func assessStressLevel(analysis quizAnalysis) StressLevel {
	indicators := 0

	switch {
	case analysis.academicPressure >= 3:
		indicators += 2
	case analysis.academicPressure >= 2:
		indicators++
	}

	indicators += len(analysis.burnoutSignals)

	if analysis.sleepImportance >= 3 {
		indicators++
	}
	if analysis.resilienceScore <= 3 {
		indicators++
	}

	switch {
	case indicators >= 4:
		return StressHigh
	case indicators >= 2:
		return StressModerate
	default:
		return StressLow
	}
}

// topKey returns the most frequent key, breaking ties alphabetically so
// the result is stable across runs.
func topKey(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	best := ""
	bestCount := -1
	for _, key := range keys {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}
	return best
}

func buildSystemPrompt(profile PersonalityProfile, analysis quizAnalysis) string {
	var b strings.Builder

	b.WriteString("You are Serenique, a personalized mental wellness mentor for college students. ")

	switch profile.CommunicationStyle {
	case CommunicationLogical:
		b.WriteString("Your tone should be calm, clear, and structured, like a helpful advisor who breaks down complex problems into manageable steps. ")
	case CommunicationEmotional:
		b.WriteString("Your tone should be warm, empathetic, and compassionate, like a caring friend who truly listens and validates feelings. ")
	default:
		b.WriteString("Your tone should be supportive and adaptable, both practical and empathetic, like a trusted mentor who knows when to listen and when to guide. ")
	}

	switch profile.CopingMechanism {
	case CopingAnalytical:
		b.WriteString("Prioritize offering actionable, step-by-step advice based on Cognitive Behavioral Therapy (CBT) techniques. Help the user identify thought patterns, challenge unhelpful beliefs, and develop concrete action plans. ")
	case CopingAffective:
		b.WriteString("Prioritize active listening and emotional validation before offering solutions. Create a safe space for the user to express their feelings fully, and only suggest gentle next steps after they feel heard. ")
	default:
		b.WriteString("Balance emotional support with practical guidance. Acknowledge and validate feelings first, then collaboratively explore both emotional processing and actionable solutions. ")
	}

	b.WriteString("\n\nProactive Support Triggers:\n")
	if profile.PrimaryStressor == StressorAcademics {
		b.WriteString("- If the user mentions exams, deadlines, or feeling overwhelmed by academic work, proactively suggest breaking tasks into smaller steps or creating a realistic study schedule.\n")
		b.WriteString("- When academic stress is mentioned, check in about their sleep and self-care.\n")
	}
	if profile.PrimaryStressor == StressorSocial || profile.SocialProfile == SocialIntroverted {
		if profile.SocialProfile == SocialIntroverted {
			b.WriteString("- If the user expresses social anxiety, gently normalize their feelings and suggest low-stakes, gradual social exposure.\n")
			b.WriteString("- Respect their need for alone time to recharge.\n")
		} else {
			b.WriteString("- If the user mentions feeling lonely or compares themselves to others on social media, validate their feelings and gently suggest limiting screen time.\n")
		}
	}
	if analysis.sleepImportance >= 2 {
		b.WriteString("- If the user mentions poor sleep or fatigue, prioritize sleep hygiene education and a consistent bedtime routine.\n")
	}
	if len(analysis.burnoutSignals) >= 1 {
		b.WriteString("- Watch for signs of burnout. If detected, prioritize rest and self-compassion over productivity.\n")
	}

	b.WriteString("\n- Always maintain a non-judgmental, student-friendly tone. Avoid clinical jargon unless asked.\n")
	b.WriteString("- Keep responses concise (2-4 sentences) unless the user asks for more detail.\n")
	b.WriteString("- End messages with gentle, open-ended questions to encourage continued reflection.\n")
	b.WriteString("- Celebrate small wins and progress, no matter how minor they seem.")

	return b.String()
}

func defaultStrengths(coping CopingMechanism, social SocialProfile) []string {
	strengths := []string{"Willing to reflect on their own wellbeing"}
	switch coping {
	case CopingAnalytical:
		strengths = append(strengths, "Strong problem-solving instincts")
	case CopingAffective:
		strengths = append(strengths, "Comfortable naming and expressing emotions")
	default:
		strengths = append(strengths, "Flexible coping repertoire")
	}
	if social == SocialExtroverted {
		strengths = append(strengths, "Draws energy and support from social connection")
	}
	return strengths
}

func defaultVulnerabilities(stressor PrimaryStressor, stress StressLevel) []string {
	vulnerabilities := []string{}
	switch stressor {
	case StressorAcademics:
		vulnerabilities = append(vulnerabilities, "Prone to academic pressure and deadline anxiety")
	case StressorSocial:
		vulnerabilities = append(vulnerabilities, "Sensitive to social comparison and exclusion")
	case StressorSleep:
		vulnerabilities = append(vulnerabilities, "Mood strongly tied to sleep quality")
	default:
		vulnerabilities = append(vulnerabilities, "Carries diffuse, multi-source stress")
	}
	if stress == StressHigh {
		vulnerabilities = append(vulnerabilities, "Currently at elevated risk of overwhelm")
	} else {
		vulnerabilities = append(vulnerabilities, "May underreport difficulties until they accumulate")
	}
	return vulnerabilities
}

func recommendedApproach(coping CopingMechanism) string {
	switch coping {
	case CopingAnalytical:
		return "CBT-based cognitive restructuring"
	case CopingAffective:
		return "Emotion-focused validation and expression"
	default:
		return "Integrative approach mixing CBT tools with emotion-focused support"
	}
}

func chatbotTone(style CommunicationStyle) string {
	switch style {
	case CommunicationLogical:
		return "calm, clear, and structured"
	case CommunicationEmotional:
		return "warm and empathetic"
	default:
		return "supportive and adaptable"
	}
}

func chatbotMethodology(coping CopingMechanism) string {
	switch coping {
	case CopingAnalytical:
		return "CBT-based step-by-step problem solving"
	case CopingAffective:
		return "reflective listening and emotional validation"
	default:
		return "blended validation-first guidance"
	}
}

func proactiveTriggers(stressor PrimaryStressor, social SocialProfile, analysis quizAnalysis) []string {
	triggers := []string{"User mentions a crisis or self-harm"}
	switch stressor {
	case StressorAcademics:
		triggers = append(triggers, "Upcoming exams or deadlines mentioned")
	case StressorSocial:
		triggers = append(triggers, "Social comparison or loneliness mentioned")
	case StressorSleep:
		triggers = append(triggers, "Poor sleep or fatigue mentioned")
	}
	if social == SocialIntroverted {
		triggers = append(triggers, "Signs of social withdrawal beyond normal recharge time")
	}
	if len(analysis.burnoutSignals) > 0 {
		triggers = append(triggers, "Signs of burnout or loss of motivation")
	}
	return triggers
}

// modelProfilePatch is what the refinement prompt asks the model for.
type modelProfilePatch struct {
	Strengths       []string `json:"strengths"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

func (a *Architect) refineWithModel(ctx context.Context, profile *PersonalityProfile, quiz QuizAnswers) error {
	quizJSON, err := json.Marshal(quiz)
	if err != nil {
		return err
	}

	systemPrompt := "You are a clinical psychologist reviewing a personality assessment for a college-age user of a mental wellness app. " +
		"Respond with a JSON object containing two keys: \"strengths\" and \"vulnerabilities\", each a list of 2-5 short phrases. Respond with JSON only."
	userPrompt := fmt.Sprintf(
		"Quiz answers (question number to answer letter): %s\nDerived dimensions: communication=%s stressor=%s social=%s coping=%s stress=%s",
		quizJSON, profile.CommunicationStyle, profile.PrimaryStressor, profile.SocialProfile, profile.CopingMechanism, profile.StressLevel,
	)

	response, err := a.completions.Completions(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	}, a.model)
	if err != nil {
		return err
	}

	var patch modelProfilePatch
	if err := json.Unmarshal([]byte(strings.Trim(response.Content, "` \n")), &patch); err != nil {
		return fmt.Errorf("unmarshaling profile refinement: %w", err)
	}

	if len(patch.Strengths) >= 2 {
		profile.Strengths = patch.Strengths
	}
	if len(patch.Vulnerabilities) >= 2 {
		profile.Vulnerabilities = patch.Vulnerabilities
	}
	return nil
}
