package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestCompletionCommand(t *testing.T) {
	for _, shell := range completionShells {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.ExecuteContext(context.Background()); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), "dotstim") {
				t.Errorf("%s script does not mention dotstim", shell)
			}
		})
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("unknown shell should fail")
	}
}

func TestFlagValueCompletion(t *testing.T) {
	tests := []struct {
		flag string
		want []string
	}{
		{"--shape", []string{"circle", "square"}},
		{"--filter", []string{"box", "catmullrom"}},
		{"--format", []string{"png", "json"}},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			var out bytes.Buffer
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetOut(&out)
			root.SetArgs([]string{"__complete", "generate", tt.flag, ""})
			if err := root.ExecuteContext(context.Background()); err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w+"\n") {
					t.Errorf("completions %q missing %q", out.String(), w)
				}
			}
		})
	}
}
