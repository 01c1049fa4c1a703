package gateway

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

const (
	maxReadFileBytes  = 100_000
	maxBashOutputByte = 50_000
	bashTimeout       = 30 * time.Second
)

// ReadFileInput is the input to the read_file tool.
type ReadFileInput struct {
	Path string `json:"path"`
}

// ReadFileOutput is the output of the read_file tool.
type ReadFileOutput struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

func defineReadFileTool(g *genkit.Genkit) ai.ToolRef {
	return genkit.DefineTool(g, "read_file",
		"Read a file's contents from disk. Reads at most 100000 bytes.",
		func(ctx *ai.ToolContext, input ReadFileInput) (ReadFileOutput, error) {
			data, err := os.ReadFile(input.Path)
			if err != nil {
				return ReadFileOutput{}, fmt.Errorf("read_file: %w", err)
			}
			if len(data) > maxReadFileBytes {
				return ReadFileOutput{Content: string(data[:maxReadFileBytes]), Truncated: true}, nil
			}
			return ReadFileOutput{Content: string(data)}, nil
		},
	)
}

// BashInput is the input to the bash tool.
type BashInput struct {
	Command string `json:"command"`
}

// BashOutput is the output of the bash tool.
type BashOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

func defineBashTool(g *genkit.Genkit) ai.ToolRef {
	return genkit.DefineTool(g, "bash",
		"Execute a shell command. Runs under a 30 second wall clock; stdout and stderr are each truncated to 50000 bytes.",
		func(ctx *ai.ToolContext, input BashInput) (BashOutput, error) {
			execCtx, cancel := context.WithTimeout(ctx, bashTimeout)
			defer cancel()

			cmd := exec.CommandContext(execCtx, "sh", "-c", input.Command)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			exitCode := 0
			if err := cmd.Run(); err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					exitCode = exitErr.ExitCode()
				} else if execCtx.Err() == context.DeadlineExceeded {
					return BashOutput{Stderr: "command timed out after 30s", ExitCode: -1}, nil
				} else {
					return BashOutput{}, fmt.Errorf("bash: %w", err)
				}
			}

			return BashOutput{
				Stdout:   truncateBytes(stdout.String(), maxBashOutputByte),
				Stderr:   truncateBytes(stderr.String(), maxBashOutputByte),
				ExitCode: exitCode,
			}, nil
		},
	)
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// defaultTools returns this gateway's built-in read_file/bash catalogue,
// gating bash on readOnly per spec.md §4.2.
func (gw *GenkitGateway) defaultTools(readOnly bool) []ai.ToolRef {
	if readOnly {
		return []ai.ToolRef{gw.readFile}
	}
	return []ai.ToolRef{gw.readFile, gw.bash}
}
