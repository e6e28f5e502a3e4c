package simulate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenarioFile describes a what-if batch: a baseline config and the
// scenarios to compare against it.
//
//	mode: fba
//	baseline:
//	  pathway_id: hsa00010
//	scenarios:
//	  - name: hk-knockout
//	    enzyme_knockouts: [enz:kegg:hsa:3098]
type ScenarioFile struct {
	Mode      Mode             `json:"mode" yaml:"mode"`
	Baseline  SimulationConfig `json:"baseline" yaml:"baseline"`
	Scenarios []WhatIfScenario `json:"scenarios" yaml:"scenarios"`
}

// LoadScenarioFile reads a scenario file. Files ending in .json are decoded
// as JSON and everything else as YAML. Unset baseline fields keep the values
// from NewConfig and an unset mode means FBA.
func LoadScenarioFile(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sf, err := ParseScenarioFile(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sf, nil
}

// ParseScenarioFile decodes and validates scenario file contents.
func ParseScenarioFile(data []byte, isJSON bool) (*ScenarioFile, error) {
	sf := &ScenarioFile{Mode: ModeFBA, Baseline: NewConfig()}
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(sf); err != nil {
			return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(sf); err != nil {
			return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
		}
	}

	mode, err := ParseMode(string(sf.Mode))
	if err != nil {
		return nil, err
	}
	sf.Mode = mode
	if len(sf.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: file defines no scenarios", ErrInvalidScenario)
	}
	for _, sc := range sf.Scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	return sf, nil
}
