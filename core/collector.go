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

package core

import (
	"sync"

	"github.com/google/uuid"
)

// ErrorCollector accumulates RowErrors during a run. It is safe for
// concurrent use so the parallel transform path can share one collector.
// Every run gets its own collector and a fresh run ID.
type ErrorCollector struct {
	runID uuid.UUID
	mu    sync.Mutex
	errs  []RowError
}

// NewErrorCollector creates an empty collector with a new run ID.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{runID: uuid.New()}
}

// RunID identifies the run this collector belongs to.
func (c *ErrorCollector) RunID() uuid.UUID { return c.runID }

// Collect records a failure for the given input row and column. A column of
// "" means the failure concerns the whole row.
func (c *ErrorCollector) Collect(row int, column string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, RowError{Row: row, Column: column, Err: err})
}

// Len returns the number of collected errors.
func (c *ErrorCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Errors returns a copy of the collected errors in collection order.
func (c *ErrorCollector) Errors() []RowError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RowError, len(c.errs))
	copy(out, c.errs)
	return out
}
