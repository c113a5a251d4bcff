package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/email-guardian/internal/adapters/mailfilter"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errSuspicious signals exit status 2 when --fail-on-suspicious is set
var errSuspicious = errors.New("suspicious email detected")

var (
	scanText         string
	scanRequester    string
	scanAsEmail      bool
	scanJSON         bool
	scanPretty       bool
	scanConcurrency  int
	failOnSuspicious bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [file...]",
	Short: "Classify email text from --text, files, or stdin",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := collectInputs(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		return invoke(func(scans *core.ScanService, tp *utils.TextProcessor, logger *zap.Logger) error {
			outputs := scanAll(cmd.Context(), scans, tp, logger, inputs)
			return report(cmd.OutOrStdout(), outputs)
		})
	},
}

func init() {
	f := scanCmd.Flags()
	f.StringVarP(&scanText, "text", "t", "", "text to scan instead of files")
	f.StringVar(&scanRequester, "requester", "cli", "requester id recorded with each scan")
	f.BoolVar(&scanAsEmail, "email", false, "parse inputs as RFC 5322 messages and scan subject and text parts")
	f.BoolVar(&scanJSON, "json", false, "print results as JSON lines")
	f.BoolVar(&scanPretty, "pretty", false, "indent JSON output")
	f.IntVar(&scanConcurrency, "concurrency", 4, "files scanned in parallel")
	f.BoolVar(&failOnSuspicious, "fail-on-suspicious", false, "exit with status 2 when any input is suspicious")
}

type scanInput struct {
	source string
	data   []byte
}

type scanOutput struct {
	Source           string                `json:"source"`
	ScanID           string                `json:"scan_id,omitempty"`
	Classification   string                `json:"classification,omitempty"`
	Confidence       float64               `json:"confidence"`
	RiskTier         string                `json:"risk_tier,omitempty"`
	Explanation      string                `json:"explanation,omitempty"`
	Findings         []core.PatternFinding `json:"findings,omitempty"`
	AIUsed           bool                  `json:"ai_used"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	Persisted        bool                  `json:"persisted"`
	Error            string                `json:"error,omitempty"`
}

func collectInputs(stdin io.Reader, files []string) ([]scanInput, error) {
	if scanText != "" {
		if len(files) > 0 {
			return nil, fmt.Errorf("--text cannot be combined with file arguments")
		}
		return []scanInput{{source: "text", data: []byte(scanText)}}, nil
	}
	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []scanInput{{source: "stdin", data: data}}, nil
	}

	inputs := make([]scanInput, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		inputs = append(inputs, scanInput{source: name, data: data})
	}
	return inputs, nil
}

// scanAll scans inputs concurrently; outputs keep the input order
func scanAll(ctx context.Context, scans *core.ScanService, tp *utils.TextProcessor, logger *zap.Logger, inputs []scanInput) []scanOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	outputs := make([]scanOutput, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if scanConcurrency > 0 {
		g.SetLimit(scanConcurrency)
	}
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			outputs[i] = scanOne(ctx, scans, tp, logger, in)
			return nil
		})
	}
	_ = g.Wait()

	return outputs
}

func scanOne(ctx context.Context, scans *core.ScanService, tp *utils.TextProcessor, logger *zap.Logger, in scanInput) scanOutput {
	out := scanOutput{Source: in.source}

	text := string(in.data)
	if scanAsEmail {
		extracted, err := mailfilter.ExtractText(bytes.NewReader(in.data))
		if err != nil {
			logger.Warn("Failed to parse message", zap.String("source", in.source), zap.Error(err))
			out.Error = "malformed message"
			return out
		}
		text = tp.TruncateChars(extracted, core.MaxTextLength)
	}

	res, err := scans.Scan(ctx, core.ScanRequest{Text: text, RequesterID: scanRequester})
	if err != nil && !core.IsPersistence(err) {
		out.Error = err.Error()
		return out
	}

	out.ScanID = res.ScanID
	out.Classification = string(res.Verdict.Classification)
	out.Confidence = res.Verdict.Confidence
	out.RiskTier = string(res.Verdict.RiskTier)
	out.Explanation = res.Verdict.Explanation
	out.Findings = res.Verdict.Findings
	out.AIUsed = res.Verdict.AIUsed
	out.ProcessingTimeMs = res.ProcessingTimeMs
	out.Persisted = res.Persisted
	return out
}

func report(w io.Writer, outputs []scanOutput) error {
	failed, suspicious := 0, false
	for _, out := range outputs {
		if out.Error != "" {
			failed++
		}
		if out.Classification == string(core.ClassificationSuspicious) {
			suspicious = true
		}

		if scanJSON {
			if err := writeJSON(w, out, scanPretty); err != nil {
				return err
			}
			continue
		}
		printText(w, out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs could not be scanned", failed, len(outputs))
	}
	if failOnSuspicious && suspicious {
		return errSuspicious
	}
	return nil
}

func printText(w io.Writer, out scanOutput) {
	fmt.Fprintf(w, "=== %s ===\n", out.Source)
	if out.Error != "" {
		fmt.Fprintf(w, "Error: %s\n\n", out.Error)
		return
	}
	fmt.Fprintf(w, "Classification: %s\n", out.Classification)
	fmt.Fprintf(w, "Confidence: %.2f\n", out.Confidence)
	fmt.Fprintf(w, "Risk: %s\n", out.RiskTier)
	fmt.Fprintf(w, "Explanation: %s\n", out.Explanation)
	if len(out.Findings) > 0 {
		rules := make([]string, 0, len(out.Findings))
		for _, f := range out.Findings {
			rules = append(rules, f.RuleID)
		}
		fmt.Fprintf(w, "Findings: %s\n", strings.Join(rules, ", "))
	}
	fmt.Fprintf(w, "AI used: %t\n", out.AIUsed)
	fmt.Fprintf(w, "Scan ID: %s\n", out.ScanID)
	if !out.Persisted {
		fmt.Fprintf(w, "Warning: result was not saved to history\n")
	}
	fmt.Fprintf(w, "Processing time: %dms\n\n", out.ProcessingTimeMs)
}
