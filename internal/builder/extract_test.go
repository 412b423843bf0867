package builder

import (
	"strings"
	"testing"
)

func TestExtractError(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		contains string
	}{
		{
			name: "gradle failure block",
			output: "> Task :app:compileDebugKotlin\n" +
				"some progress output\n" +
				"FAILURE: Build failed with an exception.\n" +
				"* What went wrong:\n" +
				"Compilation error. See log for details",
			contains: "FAILURE: Build failed with an exception.",
		},
		{
			name: "gradle build failed marker",
			output: "lots of output\n" +
				"BUILD FAILED in 12s\n" +
				"2 actionable tasks",
			contains: "BUILD FAILED in 12s",
		},
		{
			name: "xcode error with context",
			output: "CompileSwift normal arm64\n" +
				"ContentView.swift:10:5: error: cannot find 'foo' in scope\n" +
				"** BUILD FAILED **",
			contains: "error: cannot find 'foo' in scope",
		},
		{
			name: "kotlin compiler error lines",
			output: "w: some warning\n" +
				"e: file.kt:3:1 unresolved reference: Foo\n" +
				"w: another warning",
			contains: "unresolved reference: Foo",
		},
		{
			name:     "fallback to trailing output",
			output:   "line one\nline two\nsomething went wrong at the end",
			contains: "something went wrong at the end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractError(tt.output)
			if got == "" {
				t.Fatal("ExtractError returned empty diagnostic")
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("ExtractError() = %q, want substring %q", got, tt.contains)
			}
		})
	}
}

func TestExtractErrorBoundsOutput(t *testing.T) {
	var b strings.Builder
	b.WriteString("FAILURE: Build failed with an exception.\n")
	for i := 0; i < 500; i++ {
		b.WriteString("trace line\n")
	}

	got := ExtractError(b.String())
	lines := strings.Split(got, "\n")
	if len(lines) > maxDiagnosticLines {
		t.Errorf("diagnostic has %d lines, want at most %d", len(lines), maxDiagnosticLines)
	}
}
