package prompts

import "strings"

// agentKeywords mark a request to build a conversational agent.
var agentKeywords = []string{
	"agent", "chatbot", "chat bot", "assistant", "ai assistant", "virtual assistant",
	"conversational", "conversation bot", "support bot", "customer service",
	"help desk", "voice assistant", "ai companion", "digital assistant",
	"automated agent", "intelligent agent", "bot", "persona", "character ai",
}

// DetectAgentIntent reports whether input asks for an agent or chatbot. It
// is a case-insensitive substring match.
func DetectAgentIntent(input string) bool {
	lower := strings.ToLower(input)
	for _, kw := range agentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// EnhancedSystemPrompt builds the system prompt for an enhanced-prompt
// request: the base template for the detected intent (or the master prompt
// when one is active), the task context and the generation instructions.
func (l *Library) EnhancedSystemPrompt(userInput, systemContext string) (prompt string, agent bool) {
	agent = DetectAgentIntent(userInput)

	baseName, instructionsName := Meta, MetaInstructions
	if agent {
		baseName, instructionsName = Agent, AgentInstructions
	}

	base, err := l.Get(Master)
	if err != nil || base == "" {
		base, _ = l.Get(baseName)
	}
	instructions, _ := l.Get(instructionsName)

	if strings.TrimSpace(systemContext) == "" {
		systemContext = "No additional context provided"
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n---\n\n## CURRENT TASK CONTEXT\n")
	sb.WriteString(systemContext)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)
	return sb.String(), agent
}
