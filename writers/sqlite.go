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

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csvmorph/csvmorph/core"
)

// SQLiteWriterError wraps SQLite-specific write errors.
type SQLiteWriterError struct {
	Op  string
	Err error
}

func (e *SQLiteWriterError) Error() string {
	return fmt.Sprintf("sqlite writer %s: %v", e.Op, e.Err)
}

func (e *SQLiteWriterError) Unwrap() error {
	return e.Err
}

// SQLiteWriterOptions configures the SQLite writer.
type SQLiteWriterOptions struct {
	Path        string // Database file path, ":memory:" for in-memory
	TableName   string // Target table name
	BatchSize   int    // Rows per insert transaction
	CreateTable bool   // Create table if not exists
	DropTable   bool   // Drop and recreate the table first
}

// SQLiteWriterOption configures a SQLiteWriter.
type SQLiteWriterOption func(*SQLiteWriterOptions)

func WithSQLitePath(path string) SQLiteWriterOption {
	return func(opts *SQLiteWriterOptions) { opts.Path = path }
}

func WithSQLiteTable(table string) SQLiteWriterOption {
	return func(opts *SQLiteWriterOptions) { opts.TableName = table }
}

func WithSQLiteBatchSize(size int) SQLiteWriterOption {
	return func(opts *SQLiteWriterOptions) { opts.BatchSize = size }
}

func WithSQLiteCreateTable(create bool) SQLiteWriterOption {
	return func(opts *SQLiteWriterOptions) { opts.CreateTable = create }
}

func WithSQLiteDropTable(drop bool) SQLiteWriterOption {
	return func(opts *SQLiteWriterOptions) { opts.DropTable = drop }
}

// SQLiteWriter implements core.RowSink for SQLite output. Rows land as TEXT
// columns; empty cells become NULL. Batches are committed in transactions,
// which is where SQLite insert throughput comes from.
type SQLiteWriter struct {
	mu          sync.Mutex
	db          *sql.DB
	options     SQLiteWriterOptions
	columns     []string
	insertSQL   string
	rowBuf      [][]interface{}
	initialized bool
}

// NewSQLiteWriter opens (or creates) the database file. Path and TableName
// are required.
func NewSQLiteWriter(opts ...SQLiteWriterOption) (*SQLiteWriter, error) {
	options := SQLiteWriterOptions{
		BatchSize:   500,
		CreateTable: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Path == "" || options.TableName == "" {
		return nil, &SQLiteWriterError{Op: "validate", Err: fmt.Errorf("path and table name are required")}
	}
	if options.BatchSize <= 0 {
		options.BatchSize = 500
	}

	db, err := sql.Open("sqlite3", options.Path)
	if err != nil {
		return nil, &SQLiteWriterError{Op: "open", Err: err}
	}

	return &SQLiteWriter{
		db:      db,
		options: options,
		rowBuf:  make([][]interface{}, 0, options.BatchSize),
	}, nil
}

// Write implements the core.RowSink interface.
func (w *SQLiteWriter) Write(ctx context.Context, header []string, row core.TextRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		if err := w.initializeUnsafe(ctx, header); err != nil {
			return &SQLiteWriterError{Op: "initialize", Err: err}
		}
	}

	values := make([]interface{}, len(w.columns))
	for i, col := range w.columns {
		if cell, ok := row[col]; ok && cell != "" {
			values[i] = cell
		} else {
			values[i] = nil
		}
	}
	w.rowBuf = append(w.rowBuf, values)

	if len(w.rowBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			return &SQLiteWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements the core.RowSink interface.
func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushBufferUnsafe(context.Background()); err != nil {
		return &SQLiteWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements the core.RowSink interface.
func (w *SQLiteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db.Close()
}

func (w *SQLiteWriter) initializeUnsafe(ctx context.Context, header []string) error {
	w.columns = append([]string(nil), header...)

	if w.options.DropTable {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteSQLite(w.options.TableName))
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	if w.options.CreateTable || w.options.DropTable {
		defs := make([]string, len(w.columns))
		for i, col := range w.columns {
			defs[i] = quoteSQLite(col) + " TEXT"
		}
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			quoteSQLite(w.options.TableName), strings.Join(defs, ", "))
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	quoted := make([]string, len(w.columns))
	placeholders := make([]string, len(w.columns))
	for i, col := range w.columns {
		quoted[i] = quoteSQLite(col)
		placeholders[i] = "?"
	}
	w.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteSQLite(w.options.TableName),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	w.initialized = true
	return nil
}

func (w *SQLiteWriter) flushBufferUnsafe(ctx context.Context) error {
	if len(w.rowBuf) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, w.insertSQL)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, values := range w.rowBuf {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return err
	}
	w.rowBuf = w.rowBuf[:0]
	return nil
}

// quoteSQLite quotes an identifier with double quotes, doubling embedded
// quotes.
func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
