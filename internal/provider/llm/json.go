package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// StripCodeFence removes a surrounding markdown code fence (``` or ```json)
// and trims whitespace.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// LooksLikeObject reports whether text, once unfenced, starts a JSON object.
func LooksLikeObject(raw string) bool {
	return strings.HasPrefix(StripCodeFence(raw), "{")
}

// DecodeObject parses raw as exactly one JSON object into dst. Text around
// the object, arrays and scalars are rejected with a malformed output error.
func DecodeObject(raw string, dst any) error {
	s := StripCodeFence(raw)
	if !strings.HasPrefix(s, "{") {
		return errors.MalformedOutput(serviceName, "response is not a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(dst); err != nil {
		return errors.MalformedOutput(serviceName, err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.MalformedOutput(serviceName, "trailing data after JSON object")
	}
	return nil
}
