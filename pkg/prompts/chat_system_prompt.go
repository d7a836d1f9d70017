package prompts

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed templates/chat_system_prompt.tmpl
var chatSystemPromptTemplate string

// InsightLine is one long-term memory entry rendered into the prompt.
type InsightLine struct {
	Type     string
	Content  string
	Original string
	When     string
}

type ChatSystemPrompt struct {
	PersonaPrompt string

	CommunicationStyle string
	PrimaryStressor    string
	SocialProfile      string
	CopingMechanism    string
	StressLevel        string

	Strengths           []string
	Vulnerabilities     []string
	RecommendedApproach string
	ChatbotTone         string
	ChatbotMethodology  string

	CurrentMood         string
	LastInteraction     string
	LastInteractionTime string
	ChatMessageCount    int
	ToolUsageCount      int
	SleepLogsCount      int
	RecentStressors     []string
	CopingSuccesses     []string
	NeedsCheckIn        bool

	Insights []InsightLine
}

func BuildChatSystemPrompt(data ChatSystemPrompt) (string, error) {
	systemPromptTmpl := template.Must(template.New("chat_system_prompt").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(chatSystemPromptTemplate))
	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
