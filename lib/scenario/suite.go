// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/protocheck-foundation/protocheck/lib/compose"
	"github.com/protocheck-foundation/protocheck/lib/property"
	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// Suite is a verification suite file: the protocols to compose, the
// composition policy, and the properties to check. Suites are authored
// as YAML.
type Suite struct {
	// Name identifies the suite in reports.
	Name string `yaml:"name"`

	// Protocols are the protocols to compose, in composition order.
	Protocols []ProtocolRef `yaml:"protocols"`

	// Priority is the conflict-resolution order over protocol names,
	// highest first. Empty means composition order.
	Priority []string `yaml:"priority,omitempty"`

	// DisableDeferral makes blocked synchronizing proposals a hard
	// error instead of deferring them.
	DisableDeferral bool `yaml:"disable_deferral,omitempty"`

	// Properties are the property specs to verify.
	Properties []PropertyRef `yaml:"properties"`

	// MaxStates bounds exploration; zero means the verifier default.
	MaxStates int `yaml:"max_states,omitempty"`

	// Workers sets the verifier's expansion parallelism.
	Workers int `yaml:"workers,omitempty"`

	// dir is the suite file's directory, for resolving relative
	// definition paths. Empty for suites not loaded from disk.
	dir string
}

// ProtocolRef names one protocol: either a built-in scenario or a
// JSONC definition file. Exactly one field must be set.
type ProtocolRef struct {
	// Scenario is a built-in name: trust, security, budget, or sink.
	Scenario string `yaml:"scenario,omitempty"`

	// File is a JSONC protocol definition path, relative to the suite
	// file.
	File string `yaml:"file,omitempty"`
}

// PropertyRef is the YAML form of a property spec.
type PropertyRef struct {
	// Kind is the property kind name: deadlock_freedom,
	// monotonic_restriction, or priority_ordering.
	Kind string `yaml:"kind"`

	// Field is the metadata field for monotonic_restriction.
	Field string `yaml:"field,omitempty"`

	// Direction is non_increasing or non_decreasing, for
	// monotonic_restriction.
	Direction string `yaml:"direction,omitempty"`

	// Order is the expected priority order for priority_ordering.
	// Empty falls back to the suite's priority.
	Order []string `yaml:"order,omitempty"`
}

// Builtin returns a fresh instance of a built-in scenario protocol.
func Builtin(name string) (*protocol.Protocol, error) {
	switch name {
	case "trust":
		return Trust(), nil
	case "security":
		return Security(), nil
	case "budget":
		return Budget(), nil
	case "sink":
		return DeadlockSink(), nil
	default:
		return nil, fmt.Errorf("unknown scenario %q (want trust, security, budget, or sink)", name)
	}
}

// LoadSuite reads and parses a YAML suite file. Definition file paths
// inside the suite resolve relative to the suite file's directory.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parsing suite %s: %w", path, err)
	}
	suite.dir = filepath.Dir(path)

	if len(suite.Protocols) == 0 {
		return nil, fmt.Errorf("suite %s: no protocols", path)
	}
	if len(suite.Properties) == 0 {
		return nil, fmt.Errorf("suite %s: no properties", path)
	}
	for i, ref := range suite.Protocols {
		if (ref.Scenario == "") == (ref.File == "") {
			return nil, fmt.Errorf("suite %s: protocol %d must set exactly one of scenario or file", path, i)
		}
	}

	return &suite, nil
}

// Build resolves the suite into the inputs of a verification run: the
// composed protocols, the composition policy, and the property specs.
func (s *Suite) Build() ([]*protocol.Protocol, compose.Policy, []property.Spec, error) {
	policy := compose.Policy{Priority: s.Priority, DisableDeferral: s.DisableDeferral}

	protocols := make([]*protocol.Protocol, 0, len(s.Protocols))
	for i, ref := range s.Protocols {
		p, err := s.resolve(ref)
		if err != nil {
			return nil, policy, nil, fmt.Errorf("protocol %d: %w", i, err)
		}
		protocols = append(protocols, p)
	}

	specs := make([]property.Spec, 0, len(s.Properties))
	for i, ref := range s.Properties {
		spec, err := s.spec(ref)
		if err != nil {
			return nil, policy, nil, fmt.Errorf("property %d: %w", i, err)
		}
		specs = append(specs, spec)
	}

	return protocols, policy, specs, nil
}

func (s *Suite) resolve(ref ProtocolRef) (*protocol.Protocol, error) {
	if ref.Scenario != "" {
		return Builtin(ref.Scenario)
	}

	path := ref.File
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	def, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if issues := Validate(def); len(issues) > 0 {
		return nil, fmt.Errorf("%s: %s", path, issues[0])
	}
	p, err := protocol.New(*def)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Suite) spec(ref PropertyRef) (property.Spec, error) {
	kind, err := property.ParseKind(ref.Kind)
	if err != nil {
		return property.Spec{}, err
	}

	switch kind {
	case property.KindDeadlockFreedom:
		return property.DeadlockFreedom(), nil

	case property.KindMonotonicRestriction:
		direction, err := property.ParseDirection(ref.Direction)
		if err != nil {
			return property.Spec{}, err
		}
		return property.MonotonicRestriction(ref.Field, direction)

	case property.KindPriorityOrdering:
		order := ref.Order
		if len(order) == 0 {
			order = s.Priority
		}
		return property.PriorityOrdering(order)

	default:
		return property.Spec{}, fmt.Errorf("unknown property kind %q", ref.Kind)
	}
}
