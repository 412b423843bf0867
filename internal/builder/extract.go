package builder

import "strings"

const maxDiagnosticLines = 60

// ExtractError pulls a diagnostic summary out of raw build output.
// It looks for the failure block of the common toolchains (Gradle, Xcode,
// bare compiler errors) and falls back to the trailing output. The result
// is an opaque text blob for the fix prompt; no structure is promised
// beyond "non-empty for non-empty input".
func ExtractError(raw string) string {
	lines := strings.Split(raw, "\n")

	// Gradle failure block
	for i, line := range lines {
		if strings.Contains(line, "FAILURE:") || strings.Contains(line, "BUILD FAILED") {
			return joinWindow(lines, i, maxDiagnosticLines)
		}
	}

	// Xcode errors, with a little leading context
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "error:") || strings.Contains(line, "** BUILD FAILED **") {
			start := i - 5
			if start < 0 {
				start = 0
			}
			return joinWindow(lines, start, i-start+maxDiagnosticLines)
		}
	}

	// Bare compiler error lines (Kotlin "e:", generic "error:")
	var errLines []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "e:") || strings.Contains(strings.ToLower(line), "error:") {
			errLines = append(errLines, line)
			if len(errLines) == maxDiagnosticLines {
				break
			}
		}
	}
	if len(errLines) > 0 {
		return strings.Join(errLines, "\n")
	}

	// Fallback: trailing output
	start := len(lines) - maxDiagnosticLines
	if start < 0 {
		start = 0
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func joinWindow(lines []string, start, count int) string {
	end := start + count
	if end > len(lines) {
		end = len(lines)
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}
