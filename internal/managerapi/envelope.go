// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// parseBody returns the decoded JSON value of raw, the raw text when it is
// not JSON, or nil when it is empty.
func parseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil || decoder.More() {
		return string(raw)
	}
	return value
}

// unwrap returns data for {code, data} envelopes and the payload otherwise.
func unwrap(payload any) any {
	object, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	_, hasCode := object[constants.FieldCode]
	data, hasData := object[constants.FieldData]
	if hasCode && hasData {
		return data
	}
	return payload
}

// # Error Messages

// messageRule extracts a message from one envelope shape.
type messageRule func(payload any) (string, bool)

// messageRules are tried in order; the first match wins.
var messageRules = []messageRule{
	plainText,
	objectField(constants.FieldMessage),
	nestedField(constants.FieldData, constants.FieldMessage),
	objectField(constants.FieldError),
}

// ExtractMessage picks a human-readable message out of an error payload.
//
// Recognised shapes, in order: a plain string, {message}, {data: {message}}
// and {error}. Anything else yields a generic message naming status.
func ExtractMessage(payload any, status int) string {
	for _, rule := range messageRules {
		if message, ok := rule(payload); ok {
			return message
		}
	}
	return fmt.Sprintf("요청에 실패했습니다. (%d)", status)
}

func plainText(payload any) (string, bool) {
	text, ok := payload.(string)
	return text, ok && strings.TrimSpace(text) != ""
}

func objectField(name string) messageRule {
	return func(payload any) (string, bool) {
		object, ok := payload.(map[string]any)
		if !ok {
			return "", false
		}
		return plainText(object[name])
	}
}

func nestedField(parent, name string) messageRule {
	inner := objectField(name)
	return func(payload any) (string, bool) {
		object, ok := payload.(map[string]any)
		if !ok {
			return "", false
		}
		return inner(object[parent])
	}
}

// stringField returns the first non-empty string among the named fields of payload.
func stringField(payload any, names ...string) string {
	object, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, name := range names {
		if value, ok := object[name].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
