package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	"github.com/roach88/eventsheet/internal/ir"
)

// LoadFile reads a project or bare scene document. Files ending in .cue are
// compiled with LoadCUE; anything else is decoded as JSON.
func LoadFile(path string) (*ir.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if filepath.Ext(path) == ".cue" {
		return LoadCUE(path, data)
	}
	p, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// DecodeDocument decodes a JSON project or bare scene with go-json. A
// top-level object with "events" and no "layouts" is a bare scene, see
// ir.IsBareScene. LoadCUE decodes through it too.
func DecodeDocument(data []byte) (*ir.Project, error) {
	var fields map[string]json.RawMessage
	if err := gojson.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if ir.IsBareScene(fields) {
		var s ir.Scene
		if err := gojson.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode scene: %w", err)
		}
		return ir.ProjectFromScene(s), nil
	}
	var p ir.Project
	if err := gojson.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}
