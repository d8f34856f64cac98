//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 The csvmorph authors
//
// This file is part of csvmorph.
//
// csvmorph is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// csvmorph is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with csvmorph. If not, see https://www.gnu.org/licenses/.

package plan

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Wire types carry the serialization tags so the public description types stay
// format-agnostic. Column names are the keys of the cols mapping, so the
// stock map decoding cannot be used: it would lose declaration order.

type defaultColWire struct {
	Visible   *bool `json:"visible" yaml:"visible"`
	Normalize *bool `json:"normalize" yaml:"normalize"`
}

type colWire struct {
	Type    string `json:"type" yaml:"type"`
	Filter  string `json:"filter" yaml:"filter"`
	Map     string `json:"map" yaml:"map"`
	Rename  string `json:"rename" yaml:"rename"`
	Visible *bool  `json:"visible" yaml:"visible"`
	Agg     string `json:"agg" yaml:"agg"`
}

func (w colWire) spec(name string) ColumnSpec {
	return ColumnSpec{
		Name:    name,
		Type:    w.Type,
		Filter:  w.Filter,
		Map:     w.Map,
		Rename:  w.Rename,
		Visible: w.Visible,
		Agg:     w.Agg,
	}
}

// DecodeJSON reads a JSON transformation description, preserving the
// declaration order of the cols object.
func DecodeJSON(r io.Reader) (*Description, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	desc := &Description{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "entity_filter":
			if err := dec.Decode(&desc.EntityFilter); err != nil {
				return nil, fmt.Errorf("plan: entity_filter: %w", err)
			}
		case "default_col":
			var w defaultColWire
			if err := dec.Decode(&w); err != nil {
				return nil, fmt.Errorf("plan: default_col: %w", err)
			}
			desc.DefaultCol = DefaultColumnSpec{Visible: w.Visible, Normalize: w.Normalize}
		case "cols":
			if err := decodeJSONCols(dec, desc); err != nil {
				return nil, err
			}
		case "group_by":
			if err := dec.Decode(&desc.GroupBy); err != nil {
				return nil, fmt.Errorf("plan: group_by: %w", err)
			}
		default:
			return nil, fmt.Errorf("plan: unknown field %q", key)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return desc, nil
}

func decodeJSONCols(dec *json.Decoder, desc *Description) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return err
		}
		var w colWire
		if err := dec.Decode(&w); err != nil {
			return fmt.Errorf("plan: cols.%s: %w", name, err)
		}
		desc.Cols = append(desc.Cols, w.spec(name))
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("plan: malformed description: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("plan: malformed description: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("plan: malformed description: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("plan: malformed description: expected object key, got %v", tok)
	}
	return key, nil
}

// DecodeYAML reads a YAML transformation description. The document is
// walked as a node tree so the cols mapping keeps declaration order.
func DecodeYAML(r io.Reader) (*Description, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("plan: malformed description: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) != 1 {
			return nil, fmt.Errorf("plan: malformed description: expected one document")
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("plan: malformed description: expected a mapping at top level")
	}

	desc := &Description{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "entity_filter":
			if err := val.Decode(&desc.EntityFilter); err != nil {
				return nil, fmt.Errorf("plan: entity_filter: %w", err)
			}
		case "default_col":
			var w defaultColWire
			if err := val.Decode(&w); err != nil {
				return nil, fmt.Errorf("plan: default_col: %w", err)
			}
			desc.DefaultCol = DefaultColumnSpec{Visible: w.Visible, Normalize: w.Normalize}
		case "cols":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("plan: cols: expected a mapping")
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				name, spec := val.Content[j], val.Content[j+1]
				var w colWire
				if err := spec.Decode(&w); err != nil {
					return nil, fmt.Errorf("plan: cols.%s: %w", name.Value, err)
				}
				desc.Cols = append(desc.Cols, w.spec(name.Value))
			}
		case "group_by":
			if err := val.Decode(&desc.GroupBy); err != nil {
				return nil, fmt.Errorf("plan: group_by: %w", err)
			}
		default:
			return nil, fmt.Errorf("plan: unknown field %q", key.Value)
		}
	}
	return desc, nil
}
