package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/profile"
	"github.com/spigell/prospectiq/internal/prospect"
)

// readYAML decodes a YAML or JSON file into v.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func loadICP(path string) (*prospect.ICP, error) {
	var icp prospect.ICP
	if err := readYAML(path, &icp); err != nil {
		return nil, err
	}
	return &icp, nil
}

// loadProfile accepts either a bare compiled profile or the full output of the compile command.
// The profile is normalized the same way compiler output is.
func loadProfile(path string) (*prospect.CompiledProfile, error) {
	var doc map[string]any
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}

	// Round-trip through JSON so values are typed like decoded model output.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	obj, err := ai.DecodeObject(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	compiled := obj
	if nested, ok := obj["compiled"].(map[string]any); ok {
		compiled = nested
	}

	p, err := profile.NormalizeCompiled(compiled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func loadFeatures(path string) (*prospect.Features, error) {
	var f prospect.Features
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// loadProspects reads a prospects file. Items without an ID get a random one.
func loadProspects(path string) (*prospect.Prospects, error) {
	var p prospect.Prospects
	if err := readYAML(path, &p); err != nil {
		return nil, err
	}
	for _, item := range p.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
	}
	return &p, nil
}
