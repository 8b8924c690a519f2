// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a protocol definition. The input format
// is the definition's JSON form extended with // line comments,
// /* block comments */, and trailing commas.
func Parse(data []byte) (*protocol.Definition, error) {
	stripped := jsonc.ToJSON(data)

	var def protocol.Definition
	if err := json.Unmarshal(stripped, &def); err != nil {
		return nil, fmt.Errorf("parsing protocol definition: %w", err)
	}

	return &def, nil
}

// ReadFile reads a JSONC protocol definition from disk and parses it.
// Returns a descriptive error if the file cannot be read or the JSON
// is malformed.
func ReadFile(path string) (*protocol.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

// Validate checks a definition for structural issues before the
// stricter semantic validation in protocol.New. Returns a list of
// human-readable problems, or nil if the definition is structurally
// sound.
//
// This catches authoring mistakes with friendlier messages than the
// constructor: missing names, dangling state references, and empty
// transitions. protocol.New still performs the full semantic checks
// (metadata uniformity, effect consistency, guard overlap).
func Validate(def *protocol.Definition) []string {
	var issues []string

	if def.Name == "" {
		issues = append(issues, "protocol has no name")
	}
	if len(def.States) == 0 {
		issues = append(issues, "protocol declares no states")
	}

	declared := make(map[string]bool, len(def.States))
	for i, state := range def.States {
		if state.Name == "" {
			issues = append(issues, fmt.Sprintf("state %d has no name", i))
			continue
		}
		if declared[state.Name] {
			issues = append(issues, fmt.Sprintf("state %q declared twice", state.Name))
		}
		declared[state.Name] = true
	}

	if def.Initial == "" {
		issues = append(issues, "protocol has no initial state")
	} else if len(declared) > 0 && !declared[def.Initial] {
		issues = append(issues, fmt.Sprintf("initial state %q is not declared", def.Initial))
	}

	for i, t := range def.Transitions {
		if t.Action == "" {
			issues = append(issues, fmt.Sprintf("transition %d has no action", i))
		}
		if !declared[t.From] {
			issues = append(issues, fmt.Sprintf("transition %d references undeclared source state %q", i, t.From))
		}
		if !declared[t.To] {
			issues = append(issues, fmt.Sprintf("transition %d references undeclared target state %q", i, t.To))
		}
	}

	for i, action := range def.Alphabet {
		if action == "" {
			issues = append(issues, fmt.Sprintf("alphabet entry %d is empty", i))
		}
	}

	return issues
}
