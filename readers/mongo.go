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

package readers

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/csvmorph/csvmorph/core"
)

// MongoReaderError provides structured error information for MongoDB reader operations
type MongoReaderError struct {
	Op         string // Operation that failed (e.g., "connect", "query", "decode")
	Collection string // Collection being accessed when error occurred
	Err        error  // Underlying error
}

func (e *MongoReaderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo reader %s [%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo reader %s: %v", e.Op, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReaderStats holds statistics about the MongoDB reader's performance
type MongoReaderStats struct {
	RowsRead     int64
	ReadDuration time.Duration
	LastReadTime time.Time
	DecodeErrors int64
}

// MongoReaderOptions configures the MongoDB reader
type MongoReaderOptions struct {
	URI        string        // MongoDB connection URI
	Database   string        // Database name
	Collection string        // Collection name
	Fields     []string      // Document fields to project, in column order
	Filter     bson.M        // Query filter
	Sort       bson.D        // Sort specification
	BatchSize  int32         // Batch size for cursor
	Limit      int64         // Maximum number of documents to read
	Timeout    time.Duration // Connect timeout
}

// ReaderOptionMongo is a functional option for MongoReaderOptions
type ReaderOptionMongo func(*MongoReaderOptions)

func WithMongoURI(uri string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.URI = uri
	}
}

func WithMongoDB(database string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Collection = collection
	}
}

// WithMongoFields names the document fields to expose as columns. The order
// given here becomes the header order. Required.
func WithMongoFields(fields ...string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Fields = fields
	}
}

func WithMongoFilter(filter bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Filter = filter
	}
}

func WithMongoSort(sort bson.D) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Sort = sort
	}
}

func WithMongoBatchSize(size int32) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.BatchSize = size
	}
}

func WithMongoLimit(limit int64) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Limit = limit
	}
}

func WithMongoTimeout(timeout time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Timeout = timeout
	}
}

// MongoReader streams documents from a collection as a core.RowSource.
// Scalar field values are rendered to raw text, so declared columns get
// typed by the plan exactly as CSV cells would.
type MongoReader struct {
	client     *mongo.Client
	cursor     *mongo.Cursor
	collection string
	fields     []string
	stats      MongoReaderStats
}

// NewMongoReader connects and opens the query cursor. URI, Database,
// Collection and Fields are required.
func NewMongoReader(ctx context.Context, opts ...ReaderOptionMongo) (*MongoReader, error) {
	cfg := MongoReaderOptions{
		Filter:  bson.M{},
		Timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URI == "" || cfg.Database == "" || cfg.Collection == "" {
		return nil, &MongoReaderError{Op: "configure", Err: fmt.Errorf("uri, database and collection are required")}
	}
	if len(cfg.Fields) == 0 {
		return nil, &MongoReaderError{Op: "configure", Err: fmt.Errorf("at least one field is required")}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &MongoReaderError{Op: "connect", Err: err}
	}

	projection := bson.M{"_id": 0}
	for _, field := range cfg.Fields {
		projection[field] = 1
	}
	findOpts := options.Find().SetProjection(projection)
	if cfg.Sort != nil {
		findOpts.SetSort(cfg.Sort)
	}
	if cfg.BatchSize > 0 {
		findOpts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.Limit > 0 {
		findOpts.SetLimit(cfg.Limit)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	cursor, err := coll.Find(ctx, cfg.Filter, findOpts)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, &MongoReaderError{Op: "query", Collection: cfg.Collection, Err: err}
	}

	return &MongoReader{
		client:     client,
		cursor:     cursor,
		collection: cfg.Collection,
		fields:     append([]string(nil), cfg.Fields...),
	}, nil
}

// Header implements the core.RowSource interface.
func (r *MongoReader) Header() []string {
	return r.fields
}

// Read implements the core.RowSource interface.
func (r *MongoReader) Read(ctx context.Context) (core.TextRow, error) {
	start := time.Now()

	if !r.cursor.Next(ctx) {
		if err := r.cursor.Err(); err != nil {
			return nil, &MongoReaderError{Op: "read", Collection: r.collection, Err: err}
		}
		return nil, io.EOF
	}

	var doc bson.M
	if err := r.cursor.Decode(&doc); err != nil {
		r.stats.DecodeErrors++
		return nil, &MongoReaderError{Op: "decode", Collection: r.collection, Err: err}
	}

	row := make(core.TextRow, len(r.fields))
	for _, field := range r.fields {
		row[field] = renderScalar(doc[field])
	}

	r.stats.RowsRead++
	r.stats.LastReadTime = time.Now()
	r.stats.ReadDuration += time.Since(start)

	return row, nil
}

// Close implements the core.RowSource interface.
func (r *MongoReader) Close() error {
	ctx := context.Background()
	cursorErr := r.cursor.Close(ctx)
	if err := r.client.Disconnect(ctx); err != nil {
		return &MongoReaderError{Op: "disconnect", Err: err}
	}
	if cursorErr != nil {
		return &MongoReaderError{Op: "close_cursor", Err: cursorErr}
	}
	return nil
}

// Stats returns MongoDB reader performance stats.
func (r *MongoReader) Stats() MongoReaderStats {
	return r.stats
}

// renderScalar turns a BSON scalar into raw text. Missing and null fields
// become the empty string, dates render ISO so a date_iso column picks them
// up directly.
func renderScalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case primitive.DateTime:
		return val.Time().UTC().Format("2006-01-02")
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
