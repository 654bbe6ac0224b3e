package agent

import (
	"strings"

	"github.com/seattleguide/seattleguide/internal/tools"
)

const guidePersona = `You are a friendly local guide helping visitors make the most of Seattle.

Answer questions about neighborhoods, food, sights, getting around, weather and
seasonal events. Be concise and practical. Prefer specific recommendations with
neighborhood names over generic advice. Match the user's language.`

const toolInstructions = `You can look things up with the tools listed below.

RULES:
1. Only call a tool when the answer depends on live or specific data: places, addresses, routes, or the curated travel writing
2. Never invent addresses, opening hours, ratings or travel times; use a tool or say you don't know
3. When you use curated travel writing, mention which source a tip comes from
4. If a tool result starts with "error:" or is marked as an error, apologise briefly, say that the lookup failed, and answer as well as you can without it
5. Do not repeat a failed call with the same arguments

Available tools:
`

const noToolInstructions = `No lookup tools are available for this message. Answer from your own knowledge,
and say so if the user needs live information such as opening hours or routes.`

const forceFinalPrompt = "You have enough information. Please give your final answer now without calling any more tools."

// SystemPrompt assembles persona, tool rules and any caller-supplied system text.
func SystemPrompt(available []tools.Tool, extra []string) string {
	var b strings.Builder
	b.WriteString(guidePersona)
	b.WriteString("\n\n")

	if len(available) == 0 {
		b.WriteString(noToolInstructions)
	} else {
		b.WriteString(toolInstructions)
		for _, t := range available {
			b.WriteString("- ")
			b.WriteString(string(t.Name))
			b.WriteString(": ")
			b.WriteString(t.Description)
			b.WriteString("\n")
		}
	}

	for _, e := range extra {
		if e = strings.TrimSpace(e); e != "" {
			b.WriteString("\n\n")
			b.WriteString(e)
		}
	}
	return b.String()
}
