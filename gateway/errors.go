// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
)

// GatewayError is a structured error response from the gateway.
// Callers use errors.As to extract it:
//
//	var gatewayErr *gateway.GatewayError
//	if errors.As(err, &gatewayErr) {
//	    if gatewayErr.Code == gateway.ErrCodeRateLimited { ... }
//	}
type GatewayError struct {
	// Code is the gateway error code (e.g., "RATE_LIMITED").
	Code string `json:"code"`
	// Message is the human-readable description from the gateway.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Gateway error codes.
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInvalidEvent = "INVALID_EVENT"
)

// IsGatewayError checks whether err is a *GatewayError with the given code.
func IsGatewayError(err error, code string) bool {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Code == code
	}
	return false
}
