package synthesis

import (
	"fmt"
	"strings"
)

// summarySystemPrompt drives the cross-agent executive summary call.
const summarySystemPrompt = `You are synthesizing the final outputs of several independent research agents.

Write a concise executive summary of the engagement as a whole. Weigh the
agents' conclusions against each other; where they reinforce one another,
say so once.`

// contradictionSystemPrompt drives the contradiction scan. Input is the
// flattened data points, not the full deliverable texts.
const contradictionSystemPrompt = `You are checking a set of discrete claims from independent research agents for contradictions.

List only genuine contradictions, one per line. If there are none, respond
with "No contradictions found."`

// buildSummaryPrompt renders the user message for the summary call:
// every deliverable's text plus the deduplicated cross-agent insights.
func buildSummaryPrompt(texts, insights []string) string {
	var sb strings.Builder

	sb.WriteString("# Agent Deliverables\n\n")
	for _, t := range texts {
		sb.WriteString(t)
		sb.WriteString("\n\n")
	}
	if len(insights) > 0 {
		sb.WriteString("# Cross-Agent Insights\n")
		for _, ins := range insights {
			fmt.Fprintf(&sb, "- %s\n", ins)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Write the executive summary now.")
	return sb.String()
}

// buildContradictionPrompt renders the user message for the
// contradiction scan over the flattened data points.
func buildContradictionPrompt(dataPoints []string) string {
	var sb strings.Builder

	sb.WriteString("# Claims\n")
	for _, p := range dataPoints {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	sb.WriteString("\nList the contradictions now.")
	return sb.String()
}
