package agent

import (
	"regexp"
	"strings"
)

// listItemRe matches one numbered or bulleted list item.
var listItemRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+(.+)$`)

// fallbackKeywords are the markers the heuristic extractor looks for when
// the completion service's response does not parse as a list. A
// formatting slip from the model should degrade the result, not abort a
// multi-minute run.
var fallbackKeywords = []string{"finding", "recommend", "insight", "suggest", "conclusion", "takeaway"}

// fencedBlockRe matches fenced code blocks in model output.
var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n(.*?)```")

// parseListItems extracts numbered or bulleted items from model output,
// stripping markdown emphasis.
func parseListItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(strings.Trim(m[1], "*_"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ParsePlanSteps parses model output into step titles. It expects a
// numbered list; when none is present it falls back to treating every
// non-empty, non-heading line as a step. Returns nil when nothing usable
// remains.
func ParsePlanSteps(text string) []string {
	steps := parseListItems(text)
	if len(steps) > 0 {
		return steps
	}

	// Fallback: a model that ignored the format still usually emits one
	// step per line.
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		steps = append(steps, line)
	}
	return steps
}

// ParseQuestions parses clarifying questions from model output, capped at
// three. Lines ending in a question mark are accepted when no list
// structure is present.
func ParseQuestions(text string) []string {
	questions := parseListItems(text)
	if len(questions) == 0 {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasSuffix(line, "?") {
				questions = append(questions, line)
			}
		}
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions
}

// ParseFindings parses holistic findings from model output. It expects a
// numbered list; when the response does not parse, it falls back to a
// line-pattern heuristic keyed on finding/recommend/insight vocabulary.
func ParseFindings(text string) []string {
	findings := parseListItems(text)
	if len(findings) > 0 {
		return findings
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range fallbackKeywords {
			if strings.Contains(lower, kw) {
				findings = append(findings, line)
				break
			}
		}
	}
	return findings
}

// ExtractDataPoints pulls the discrete claims out of a deliverable:
// every bulleted or numbered line. The synthesis orchestrator feeds
// these, not the full text, to the contradiction scan.
func ExtractDataPoints(text string) []string {
	return parseListItems(text)
}

// ExtractArtifacts collects the contents of fenced code blocks from a
// step's output. Tables, queries, and generated snippets ride along as
// step artifacts.
func ExtractArtifacts(text string) []string {
	var artifacts []string
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(m[1])
		if block != "" {
			artifacts = append(artifacts, block)
		}
	}
	return artifacts
}
