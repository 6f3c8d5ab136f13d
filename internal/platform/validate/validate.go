// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// The manager API client validates credentials locally so that an obviously
// incomplete login or signup never costs a round trip.
package validate

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/apperr"
)

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every operation.
type Validator struct {
	errs []FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value, message string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
	return v
}

// Email fails if a non-empty value is not a valid RFC 5322 email address.
func (v *Validator) Email(field, value, message string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, message)
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a 400 [apperr.AppError] if any rule failed, or nil.
//
// The message is the first failure; every failure is kept in Payload.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.New(http.StatusBadRequest, v.errs[0].Message, v.errs)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}
