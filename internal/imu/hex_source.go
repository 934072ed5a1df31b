// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedLine marks a line that is not valid hex. The source stays
// usable; callers may log and call Next again.
var ErrMalformedLine = errors.New("malformed payload line")

// ParseHexPayload decodes one hex-framed payload line as printed by the
// BLE bridge firmware, e.g. "f0ff0a00...". Spaces and colons between
// bytes are ignored. The length is not checked here; Decode does that.
func ParseHexPayload(line string) ([]byte, error) {
	line = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.TrimSpace(line))
	payload, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("hex payload %q: %w", line, err)
	}
	return payload, nil
}

type hexLineSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewHexLineSource returns a PayloadSource reading one hex payload per line
// from r. Empty lines and lines starting with '#' are skipped. Next returns
// io.EOF once r is exhausted.
func NewHexLineSource(r io.Reader) PayloadSource {
	return &hexLineSource{scanner: bufio.NewScanner(r)}
}

func (s *hexLineSource) Next() ([]byte, error) {
	for s.scanner.Scan() {
		s.line++
		line := strings.TrimSpace(s.scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		payload, err := ParseHexPayload(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", s.line, ErrMalformedLine, err)
		}
		return payload, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading payload lines: %w", err)
	}
	return nil, io.EOF
}
