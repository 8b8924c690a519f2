// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// protocheck verifies properties of composed protocol state machines.
//
// A run composes a set of protocols (built-in scenarios or JSONC
// definition files), explores the reachable joint state space, and
// checks the requested properties, writing a JSON report.
//
// Exit codes: 0 when every property holds, 1 when any property is
// violated, 2 on usage errors, construction failures, or inconclusive
// results.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/protocheck-foundation/protocheck/lib/compose"
	"github.com/protocheck-foundation/protocheck/lib/fingerprint"
	"github.com/protocheck-foundation/protocheck/lib/property"
	"github.com/protocheck-foundation/protocheck/lib/protocol"
	"github.com/protocheck-foundation/protocheck/lib/scenario"
	"github.com/protocheck-foundation/protocheck/lib/verify"
	"github.com/protocheck-foundation/protocheck/lib/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// options holds the parsed command line.
type options struct {
	suite       string
	scenarios   []string
	definitions []string
	priority    []string
	maxStates   int
	workers     int
	output      string
	verbose     bool
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	flags := pflag.NewFlagSet("protocheck", pflag.ContinueOnError)
	flags.StringVar(&opts.suite, "suite", "", "YAML suite file describing protocols and properties")
	flags.StringArrayVar(&opts.scenarios, "scenario", nil, "built-in protocol to compose (trust, security, budget, sink); repeatable")
	flags.StringArrayVar(&opts.definitions, "definition", nil, "JSONC protocol definition file; repeatable")
	flags.StringSliceVar(&opts.priority, "priority", nil, "conflict-resolution order over protocol names, highest first")
	flags.IntVar(&opts.maxStates, "max-states", 0, "exploration bound (0 means the default)")
	flags.IntVar(&opts.workers, "workers", 0, "parallel expansion workers (0 or 1 means sequential)")
	flags.StringVar(&opts.output, "output", "", "write the JSON report to this file instead of stdout (.zst compresses)")
	flags.BoolVar(&opts.verbose, "verbose", false, "log exploration progress to stderr")
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", flags.Arg(0))
	}
	return opts, nil
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Printf("protocheck %s\n", version.Info())
		return 0
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	report, code, err := execute(opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := writeReport(opts.output, report); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return code
}

// runReport is the JSON envelope written by a verification run.
type runReport struct {
	// Suite is the suite name, for suite-driven runs.
	Suite string `json:"suite,omitempty"`

	// Fingerprint identifies the exact composed model checked.
	Fingerprint string `json:"fingerprint"`

	// Protocols are the composed protocol names in order.
	Protocols []string `json:"protocols"`

	// Priority is the resolved conflict-resolution order.
	Priority []string `json:"priority"`

	// MaxStates is the exploration bound that applied.
	MaxStates int `json:"max_states"`

	// Reports are the per-property outcomes, in property order.
	Reports []propertyReport `json:"reports"`
}

// propertyReport is the JSON form of one verify.Report.
type propertyReport struct {
	Property       string               `json:"property"`
	Holds          *bool                `json:"holds,omitempty"`
	RecordsChecked int                  `json:"records_checked,omitempty"`
	Violations     []property.Violation `json:"violations,omitempty"`
	Error          string               `json:"error,omitempty"`
	ErrorKind      string               `json:"error_kind,omitempty"`
}

// execute resolves the run inputs, verifies, and assembles the report.
// The returned exit code is 0 when every property holds and 1 when any
// is violated or inconclusive.
func execute(opts options, logger *slog.Logger) (*runReport, int, error) {
	suiteName := ""
	protocols, policy, specs, err := resolveInputs(&opts, &suiteName)
	if err != nil {
		return nil, 0, err
	}

	m, err := compose.Compose(protocols, policy)
	if err != nil {
		return nil, 0, err
	}
	hash, err := fingerprint.Model(m)
	if err != nil {
		return nil, 0, err
	}

	verifier := &verify.Verifier{
		MaxStates: opts.maxStates,
		Workers:   opts.workers,
		Logger:    logger,
	}
	reports, err := verifier.Verify(m, specs)
	if err != nil {
		return nil, 0, err
	}

	out := &runReport{
		Suite:       suiteName,
		Fingerprint: fingerprint.Format(hash),
		Protocols:   m.Names(),
		Priority:    m.Priority(),
		MaxStates:   verifierBound(opts.maxStates),
	}
	code := 0
	for _, r := range reports {
		pr := propertyReport{Property: r.Spec.Name()}
		if r.Err != nil {
			pr.Error = r.Err.Detail
			pr.ErrorKind = r.Err.Kind.String()
			code = 1
		} else {
			holds := r.Result.Holds
			pr.Holds = &holds
			pr.RecordsChecked = r.Result.RecordsChecked
			pr.Violations = r.Result.Violations
			if !holds {
				code = 1
			}
		}
		out.Reports = append(out.Reports, pr)
	}
	return out, code, nil
}

func verifierBound(maxStates int) int {
	if maxStates > 0 {
		return maxStates
	}
	return verify.DefaultMaxStates
}

// resolveInputs builds the protocol list, policy, and specs from
// either a suite file or the ad-hoc flags. Ad-hoc runs check deadlock
// freedom, plus priority ordering when --priority is given.
func resolveInputs(opts *options, suiteName *string) ([]*protocol.Protocol, compose.Policy, []property.Spec, error) {
	if opts.suite != "" {
		if len(opts.scenarios) > 0 || len(opts.definitions) > 0 {
			return nil, compose.Policy{}, nil, fmt.Errorf("--suite cannot be combined with --scenario or --definition")
		}
		suite, err := scenario.LoadSuite(opts.suite)
		if err != nil {
			return nil, compose.Policy{}, nil, err
		}
		*suiteName = suite.Name
		if opts.maxStates == 0 {
			opts.maxStates = suite.MaxStates
		}
		if opts.workers == 0 {
			opts.workers = suite.Workers
		}
		return suite.Build()
	}

	if len(opts.scenarios) == 0 && len(opts.definitions) == 0 {
		return nil, compose.Policy{}, nil, fmt.Errorf("nothing to verify: pass --suite, --scenario, or --definition")
	}

	var protocols []*protocol.Protocol
	for _, name := range opts.scenarios {
		p, err := scenario.Builtin(name)
		if err != nil {
			return nil, compose.Policy{}, nil, err
		}
		protocols = append(protocols, p)
	}
	for _, path := range opts.definitions {
		def, err := scenario.ReadFile(path)
		if err != nil {
			return nil, compose.Policy{}, nil, err
		}
		if issues := scenario.Validate(def); len(issues) > 0 {
			return nil, compose.Policy{}, nil, fmt.Errorf("%s: %s", path, strings.Join(issues, "; "))
		}
		p, err := protocol.New(*def)
		if err != nil {
			return nil, compose.Policy{}, nil, err
		}
		protocols = append(protocols, p)
	}

	policy := compose.Policy{Priority: opts.priority}
	specs := []property.Spec{property.DeadlockFreedom()}
	if len(opts.priority) > 0 {
		spec, err := property.PriorityOrdering(opts.priority)
		if err != nil {
			return nil, compose.Policy{}, nil, err
		}
		specs = append(specs, spec)
	}
	return protocols, policy, specs, nil
}

// writeReport writes the report as indented JSON to stdout or to the
// given file. A .zst suffix compresses the output with zstd.
func writeReport(path string, report *runReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	var w io.Writer = file
	var encoder *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		encoder, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("initializing zstd writer: %w", err)
		}
		w = encoder
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("finishing %s: %w", path, err)
		}
	}
	return file.Close()
}
