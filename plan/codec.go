// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
	"github.com/vmihailenco/msgpack/v5"
)

// MarshalMsgpack encodes p for a structured corpus.
func MarshalMsgpack(p *Plan) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("plan: msgpack encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes a plan written by MarshalMsgpack.
// The result is not fixed up.
func UnmarshalMsgpack(b []byte) (*Plan, error) {
	var p Plan
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("plan: msgpack decode: %w", err)
	}
	return &p, nil
}

// ParseJSON decodes a plan from JSON. Comments and trailing commas are
// accepted so plans can be written by hand.
// The result is not fixed up.
func ParseJSON(b []byte) (*Plan, error) {
	std, err := hujson.Standardize(bytes.Clone(b))
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	var p Plan
	dec := json.NewDecoder(bytes.NewReader(std))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("plan: json decode: %w", err)
	}
	return &p, nil
}

// MarshalJSON returns p as indented JSON.
func MarshalJSON(p *Plan) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("plan: json encode: %w", err)
	}
	return append(b, '\n'), nil
}
