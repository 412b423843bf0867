package agent

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// streamEvent is one line of the agent's stream-json output. Only the
// fields the orchestrator cares about are decoded.
type streamEvent struct {
	Type         string  `json:"type"`
	Result       string  `json:"result"`
	SessionID    string  `json:"session_id"`
	IsError      bool    `json:"is_error"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	DurationMS   int64   `json:"duration_ms"`
	Message      struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Name  string `json:"name"`
	Input struct {
		FilePath string `json:"file_path"`
		Command  string `json:"command"`
	} `json:"input"`
}

func parseStreamEvent(line []byte) (streamEvent, bool) {
	var ev streamEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return ev, false
	}
	return ev, ev.Type != ""
}

// File extensions worth narrating when the agent edits them.
var codeExtensions = map[string]bool{
	".kt": true, ".kts": true, ".swift": true, ".xml": true,
	".gradle": true, ".java": true, ".py": true, ".js": true, ".ts": true,
	".go": true,
}

// Commands that are pure investigation, skipped entirely.
var noiseCommands = map[string]bool{
	"find": true, "ls": true, "cat": true, "head": true, "tail": true,
	"grep": true, "rg": true, "wc": true, "file": true, "tree": true,
	"pwd": true, "echo": true, "which": true, "type": true, "stat": true,
	"du": true, "diff": true, "sort": true, "uniq": true, "awk": true,
	"sed": true, "tr": true, "cut": true, "test": true, "[": true,
}

// Known commands mapped to friendly progress labels. An empty label means
// "recognized but not worth narrating" (navigation).
var friendlyBashLabels = map[string]string{
	"gradlew":    "Building project…",
	"./gradlew":  "Building project…",
	"gradle":     "Building project…",
	"xcodebuild": "Building for iOS…",
	"swift":      "Compiling Swift…",
	"npm":        "Running npm…",
	"npx":        "Running npx…",
	"yarn":       "Running yarn…",
	"pnpm":       "Running pnpm…",
	"pip":        "Installing dependencies…",
	"pod":        "Installing CocoaPods…",
	"cargo":      "Building with Cargo…",
	"go":         "Building Go code…",
	"make":       "Building…",
	"cmake":      "Configuring build…",
	"adb":        "Communicating with device…",
	"xcrun":      "Running Xcode tool…",
	"git":        "Updating repository…",
	"mkdir":      "Setting up folders…",
	"cp":         "Copying files…",
	"mv":         "Moving files…",
	"rm":         "Cleaning up…",
	"chmod":      "Setting permissions…",
	"curl":       "Downloading…",
	"wget":       "Downloading…",
	"cd":         "",
}

// friendlyBash turns a raw bash command into a progress message, or ""
// when the command is noise.
func friendlyBash(cmd, lastText string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	base := first
	if strings.Contains(first, "/") {
		base = filepath.Base(first)
	}

	if noiseCommands[base] {
		return ""
	}

	if label, ok := friendlyBashLabels[first]; ok {
		return label
	}
	if label, ok := friendlyBashLabels[base]; ok {
		return label
	}

	// Unknown command: use the agent's preceding narration if any.
	if lastText != "" {
		return truncateLine(lastText, 120)
	}
	return "Running a command…"
}

// progressFromEvent extracts a human-readable progress message from an
// assistant event, or "" when the event is investigation noise. The
// agent's own text blocks are tracked as explanations for the tool calls
// that follow them, not emitted directly.
func progressFromEvent(ev streamEvent) string {
	if ev.Type != "assistant" {
		return ""
	}

	lastText := ""
	result := ""
	for _, block := range ev.Message.Content {
		switch block.Type {
		case "text":
			lastText = strings.TrimSpace(block.Text)
		case "tool_use":
			switch block.Name {
			case "Read", "Glob", "Grep":
				// investigation noise
			case "Write", "Edit":
				short := filepath.Base(block.Input.FilePath)
				ext := strings.ToLower(filepath.Ext(short))
				if codeExtensions[ext] && lastText != "" {
					result = short + " — " + truncateLine(lastText, 120)
				} else if block.Name == "Write" {
					result = "Writing " + short
				} else {
					result = "Editing " + short
				}
			case "Bash":
				result = friendlyBash(block.Input.Command, lastText)
			default:
				result = "Using " + block.Name
			}
		}
	}
	return result
}

func truncateLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		for max > 0 && !utf8.RuneStart(s[max]) {
			max--
		}
		s = s[:max]
	}
	return s
}
