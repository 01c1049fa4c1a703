// Package explorer implements the filetype-aware file explorer (spec.md
// §4.9): deterministic schema extraction for structured data formats,
// LLM-driven signature/import extraction for source files, and a short
// LLM descriptive summary for everything else. Grounded on
// internal/tools/file.go's suffix-dispatch and size-capped-read idiom.
package explorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/basket/go-claw/internal/gateway"
	"github.com/basket/go-claw/internal/tokens"
)

const (
	maxDeterministicBytes = 50_000
	maxCodeBytes          = 30_000
	maxGenericBytes       = 20_000
)

var structuredExtensions = map[string]bool{
	".json": true, ".csv": true, ".tsv": true, ".jsonl": true, ".ndjson": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".go": true, ".rs": true, ".java": true, ".rb": true,
}

const codeExtractionPrompt = `Extract the structure of this source file: top-level
function/method signatures, class or type names, import statements, and
any top-level constants. Respond with a short plain-text listing, not
prose.`

const genericSummaryPrompt = `Write a short bullet-point summary of what this file
contains. Three bullets at most.`

// Result is the outcome of AnalyzeFile. FileType and SizeBytes are nil
// when the file could not be found, matching the null fields spec.md §4.9
// mandates for that case.
type Result struct {
	FilePath      string  `json:"file_path"`
	FileType      *string `json:"file_type"`
	SizeBytes     *int64  `json:"size"`
	Summary       string  `json:"summary"`
	TokenEstimate int     `json:"token_estimate"`
}

// AnalyzeFile inspects the file at path and returns a Result describing
// its shape. Deterministic suffixes (.json/.csv/.tsv/.jsonl/.ndjson)
// never use gw; code and generic paths use it to produce their summary
// and fall back to a degraded-but-non-error summary if gw is nil or the
// call fails.
func AnalyzeFile(ctx context.Context, gw gateway.Gateway, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{FilePath: path, Summary: fmt.Sprintf("File not found: %s", path)}
	}

	ext := strings.ToLower(filepath.Ext(path))
	size := info.Size()
	ft := strings.TrimPrefix(ext, ".")

	var summary string
	switch {
	case structuredExtensions[ext]:
		summary = analyzeStructured(path, ext, size)
	case codeExtensions[ext]:
		summary = analyzeWithLLM(ctx, gw, path, size, maxCodeBytes, codeExtractionPrompt, ft)
	default:
		summary = analyzeWithLLM(ctx, gw, path, size, maxGenericBytes, genericSummaryPrompt, ft)
	}

	return Result{
		FilePath:      path,
		FileType:      &ft,
		SizeBytes:     &size,
		Summary:       summary,
		TokenEstimate: tokens.Estimate(summary),
	}
}

func analyzeWithLLM(ctx context.Context, gw gateway.Gateway, path string, size int64, capBytes int, prompt, suffix string) string {
	data, err := readCapped(path, capBytes)
	if err != nil {
		return fmt.Sprintf("%s file: read failed: %s", suffix, err)
	}
	lineCount := strings.Count(string(data), "\n") + 1

	if gw == nil {
		return fmt.Sprintf("%s file: %d lines (LLM analysis failed: no gateway configured)", suffix, lineCount)
	}

	res, err := gw.AgentTurn(ctx, string(data), prompt, gateway.AgentTurnOptions{ReadOnly: true, MaxTurns: 1})
	if err != nil {
		return fmt.Sprintf("%s file: %d lines (LLM analysis failed: %s)", suffix, lineCount, err)
	}
	return res.Result
}

func readCapped(path string, capBytes int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, capBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}
