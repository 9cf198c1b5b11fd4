/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the save/load/export boundary.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindCancelledByUser is a dismissed dialog; callers treat it as a no-op.
	KindCancelledByUser
	// KindResourceUnavailable is a missing or unreadable optional resource (header image, font).
	// It is recovered locally and never aborts an export.
	KindResourceUnavailable
	// KindRenderBackendFailure is a missing or failing output backend.
	KindRenderBackendFailure
	KindIOFailure
	KindPersistenceFormatError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCancelledByUser:
		return "cancelled"
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindRenderBackendFailure:
		return "render_backend_failure"
	case KindIOFailure:
		return "io_failure"
	case KindPersistenceFormatError:
		return "persistence_format_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrCancelled is returned when the user dismisses a file dialog.
var ErrCancelled = &OpError{Kind: KindCancelledByUser, Op: "dialog", Err: errors.New("cancelled by user")}

// OpError carries a classification together with the failing operation and path.
type OpError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *OpError) Unwrap() error { return e.Err }

// Errorf builds an OpError with a formatted cause.
func Errorf(kind ErrorKind, op, path, format string, args ...any) error {
	return &OpError{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err; it returns nil when err is nil and keeps an existing
// classification of err intact.
func Wrap(kind ErrorKind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the classification of err, KindIOFailure for unclassified errors
// and KindNone for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindIOFailure
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool { return KindOf(err) == KindCancelledByUser }
