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

package csvmorph

import (
	"context"

	"github.com/csvmorph/csvmorph/core"
)

// ErrorStrategy defines how row-level errors are handled during execution.
// Plan-level errors (syntax, unknown functions, dependency order) are always
// fatal regardless of strategy.
type ErrorStrategy int

const (
	// FailFast stops processing on the first row error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing; failing cells become null and the
	// errors are dropped.
	SkipErrors
	// CollectErrors continues processing like SkipErrors but records every
	// row error for inspection after the run.
	CollectErrors
)

// ErrorHandler observes row errors under SkipErrors and CollectErrors.
// Returning a non-nil error stops the pipeline; returning nil continues.
type ErrorHandler interface {
	HandleError(ctx context.Context, rowErr *core.RowError) error
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
type ErrorHandlerFunc func(ctx context.Context, rowErr *core.RowError) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, rowErr *core.RowError) error {
	return f(ctx, rowErr)
}
