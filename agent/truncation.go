package agent

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized tool output is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Character limits per tool before output is cut. Keys absent here fall
// back to defaultCharLimit.
var toolCharLimits = map[string]int{
	"read_file":  50000,
	"run_code":   30000,
	"list_files": 20000,
	"write_file": 1000,
}

// Truncation modes per tool.
var toolTruncationModes = map[string]TruncationMode{
	"read_file":  TruncateHeadTail,
	"run_code":   TruncateHeadTail,
	"list_files": TruncateTail,
	"write_file": TruncateTail,
}

// Line limits per tool, applied after character truncation.
var toolLineLimits = map[string]int{
	"run_code":   256,
	"list_files": 500,
}

const defaultCharLimit = 30000

// TruncateOutput applies character-based truncation.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	default:
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need the rest.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateToolOutput runs the full pipeline for one tool's output:
// character truncation first to handle pathological sizes, then line
// truncation for readability.
func TruncateToolOutput(output, toolName string) string {
	maxChars, ok := toolCharLimits[toolName]
	if !ok {
		maxChars = defaultCharLimit
	}
	mode, ok := toolTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, maxChars, mode)

	if maxLines, ok := toolLineLimits[toolName]; ok && maxLines > 0 {
		result = TruncateLines(result, maxLines)
	}
	return result
}
