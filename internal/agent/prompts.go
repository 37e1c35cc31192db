package agent

import (
	"fmt"
	"strings"
)

// planningSystemPrompt guides the completion service to decompose an
// objective into a short, actionable numbered plan.
const planningSystemPrompt = `You are a senior analyst planning a research engagement.

Decompose the objective into 5-8 actionable steps. Respond with a numbered
list only, one step per line, each step a short imperative title. Do not
include commentary before or after the list.`

// clarifyingSystemPrompt asks for a small set of scoping questions.
const clarifyingSystemPrompt = `You are reviewing a research plan before execution.

Ask 2-3 clarifying questions that would most improve the quality of the
work. Respond with a numbered list of questions only.`

// stepSystemPrompt frames individual step execution.
const stepSystemPrompt = `You are executing one step of an approved research plan.
Use the conversation so far as context. Produce a thorough, self-contained
result for the current step only.`

// insightsSystemPrompt drives the holistic cross-step synthesis.
const insightsSystemPrompt = `You are reviewing the complete output of a finished research plan.

Identify 6-10 cross-cutting findings that emerge from the steps taken
together rather than from any single step. Respond with a numbered list,
one finding per line.`

// deliverableSystemPrompt produces the final executive takeaway.
const deliverableSystemPrompt = `You are writing the executive takeaway for a completed research engagement.

Summarize the most important conclusions in 5-8 bullet points. Lead with
the single most consequential finding. Respond with the bullet list only.`

// chatSystemPrompt frames ad-hoc conversation with a live agent.
const chatSystemPrompt = `You are a research agent in the middle of an engagement.
Answer the operator's message using the conversation so far as context.`

// buildPlanningPrompt renders the user message for the planning call.
func buildPlanningPrompt(r *Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Objective\n%s\n", r.Objective)
	if r.Description != "" {
		fmt.Fprintf(&sb, "\n## Background\n%s\n", r.Description)
	}
	if len(r.Tools) > 0 {
		fmt.Fprintf(&sb, "\n## Available Tools\n%s\n", strings.Join(r.Tools, ", "))
	}
	if len(r.MCPEndpoints) > 0 {
		fmt.Fprintf(&sb, "\n## External Endpoints\n%s\n", strings.Join(r.MCPEndpoints, ", "))
	}
	sb.WriteString("\nProduce the step plan now.")
	return sb.String()
}

// buildClarifyingPrompt renders the user message for the question call.
func buildClarifyingPrompt(r *Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Objective\n%s\n\n## Plan\n%s\n", r.Objective, r.Plan.Outline())
	sb.WriteString("\nWhat should be clarified before execution begins?")
	return sb.String()
}

// buildStepPrompt renders the user message for one step execution call.
// It seeds the call with the step's immediate neighbors and any
// clarifying answers, so each step is executed with local context even
// when the history is long.
func buildStepPrompt(r *Record, index int) string {
	step := r.Plan.Steps[index]
	prev, next := r.Plan.NeighborTitles(index)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Current Step (%d of %d)\n%s\n", index+1, r.Plan.Len(), step.Title)

	if prev != "" {
		fmt.Fprintf(&sb, "\nPreceding step (already done): %s\n", prev)
	}
	if next != "" {
		fmt.Fprintf(&sb, "Following step (not yet started): %s\n", next)
	}

	if len(r.ClarifyingAnswers) > 0 {
		sb.WriteString("\n## Clarifications from the operator\n")
		for q, a := range r.ClarifyingAnswers {
			fmt.Fprintf(&sb, "- Q: %s\n  A: %s\n", q, a)
		}
	}

	sb.WriteString("\nExecute this step now.")
	return sb.String()
}

// buildInsightsPrompt renders the user message for the holistic-insight
// call, concatenating every completed step's output.
func buildInsightsPrompt(r *Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Objective\n%s\n\n## Step Outputs\n", r.Objective)
	for _, block := range r.Plan.CompletedOutputs() {
		sb.WriteString(block)
		sb.WriteString("\n\n")
	}
	sb.WriteString("List the cross-cutting findings now.")
	return sb.String()
}

// buildDeliverablePrompt renders the user message for the final
// deliverable call.
func buildDeliverablePrompt(r *Record) string {
	return fmt.Sprintf("## Objective\n%s\n\nWrite the executive takeaway for the work above.", r.Objective)
}
