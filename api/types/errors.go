/*
 * Copyright 2024 The Herd Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a dispatch failure.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindRouteNotFound
	KindMethodNotAllowed
	KindFilterRejected
	KindAuthenticationFailed
	KindValidationFailed
	KindUploadOversize
	KindInvalidServiceAction
	KindInvalidViewResponse
)

var kindNames = map[ErrorKind]string{
	KindInternal:             "Internal",
	KindRouteNotFound:        "RouteNotFound",
	KindMethodNotAllowed:     "MethodNotAllowed",
	KindFilterRejected:       "FilterRejected",
	KindAuthenticationFailed: "AuthenticationFailed",
	KindValidationFailed:     "ValidationFailed",
	KindUploadOversize:       "UploadOversize",
	KindInvalidServiceAction: "InvalidServiceAction",
	KindInvalidViewResponse:  "InvalidViewResponse",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Status maps the kind to the HTTP status code a transport should answer with.
func (k ErrorKind) Status() int {
	switch k {
	case KindRouteNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed, KindFilterRejected, KindAuthenticationFailed:
		return http.StatusForbidden
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindUploadOversize:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal error"}
	ErrRouteNotFound        = &Error{Kind: KindRouteNotFound, Message: "route not found"}
	ErrMethodNotAllowed     = &Error{Kind: KindMethodNotAllowed, Message: "method not allowed"}
	ErrFilterRejected       = &Error{Kind: KindFilterRejected, Message: "filter rejected the request"}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed, Message: "authentication failed"}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed, Message: "validation failed"}
	ErrUploadOversize       = &Error{Kind: KindUploadOversize, Message: "upload oversize"}
	ErrInvalidServiceAction = &Error{Kind: KindInvalidServiceAction, Message: "invalid service action"}
	ErrInvalidViewResponse  = &Error{Kind: KindInvalidViewResponse, Message: "invalid view response"}
)

// Error is the typed failure produced by every stage of a dispatch.
type Error struct {
	Kind    ErrorKind
	Message string
	// Param is the offending parameter name for ValidationFailed, or the file name for UploadOversize.
	Param string
	// Validator names the validator that rejected Value.
	Validator string
	Value     interface{}
	// Stack is captured for Internal errors raised by panics.
	Stack []byte
	Err   error
}

// NewError creates an error of kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err as kind. A nil err returns nil.
func WrapError(kind ErrorKind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewValidationError reports a parameter rejected by a validator.
func NewValidationError(param, validator string, value interface{}) *Error {
	return &Error{
		Kind:      KindValidationFailed,
		Message:   fmt.Sprintf("parameter %s rejected by %s", param, validator),
		Param:     param,
		Validator: validator,
		Value:     value,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so errors.Is(err, ErrRouteNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Status is the HTTP status code of the error's kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// KindOf classifies err. Untyped errors are Internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
