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
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/csvmorph/csvmorph/core"
)

// S3ReaderError provides structured error information for S3 reader operations
type S3ReaderError struct {
	Op  string // Operation that failed (e.g., "load_config", "get_object", "read")
	Err error  // Underlying error
}

func (e *S3ReaderError) Error() string {
	return fmt.Sprintf("s3 reader %s: %v", e.Op, e.Err)
}

func (e *S3ReaderError) Unwrap() error {
	return e.Err
}

// S3ReaderStats holds statistics about the S3 reader's performance
type S3ReaderStats struct {
	Bucket       string
	Key          string
	ObjectSize   int64
	RowsRead     int64
	ReadDuration time.Duration
	LastReadTime time.Time
}

// S3ReaderOptions configures the S3 reader behavior
type S3ReaderOptions struct {
	Bucket         string          // S3 bucket name
	Key            string          // Object key of the CSV file
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
	CSVOptions     []ReaderOptionCSV
}

// ReaderOptionS3 represents a configuration function for S3Reader
type ReaderOptionS3 func(*S3ReaderOptions)

func WithS3Bucket(bucket string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Bucket = bucket
	}
}

func WithS3Key(key string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Key = key
	}
}

func WithS3Region(region string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3ForcePathStyle(force bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.ForcePathStyle = force
	}
}

// WithS3CSVOptions forwards CSV parsing options to the underlying reader.
func WithS3CSVOptions(options ...ReaderOptionCSV) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.CSVOptions = append(opts.CSVOptions, options...)
	}
}

// S3Reader streams one CSV object from S3 as a core.RowSource. The object
// body is decoded by CSVReader, so parsing options and header repair match
// local files exactly.
type S3Reader struct {
	csv   *CSVReader
	stats S3ReaderStats
}

// NewS3Reader opens the configured object and prepares it for row reads.
// Bucket and Key are required.
func NewS3Reader(ctx context.Context, options ...ReaderOptionS3) (*S3Reader, error) {
	opts := S3ReaderOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Bucket == "" || opts.Key == "" {
		return nil, &S3ReaderError{Op: "configure", Err: fmt.Errorf("bucket and key are required")}
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Credentials.AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(
			opts.Credentials.AccessKeyID,
			opts.Credentials.SecretAccessKey,
			opts.Credentials.SessionToken,
		)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &S3ReaderError{Op: "load_config", Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(opts.Bucket),
		Key:    aws.String(opts.Key),
	})
	if err != nil {
		return nil, &S3ReaderError{Op: "get_object", Err: err}
	}

	csvReader, err := NewCSVReader(obj.Body, opts.CSVOptions...)
	if err != nil {
		obj.Body.Close()
		return nil, err
	}

	r := &S3Reader{csv: csvReader}
	r.stats.Bucket = opts.Bucket
	r.stats.Key = opts.Key
	if obj.ContentLength != nil {
		r.stats.ObjectSize = *obj.ContentLength
	}
	return r, nil
}

// Header implements the core.RowSource interface.
func (r *S3Reader) Header() []string {
	return r.csv.Header()
}

// Read implements the core.RowSource interface.
func (r *S3Reader) Read(ctx context.Context) (core.TextRow, error) {
	start := time.Now()
	row, err := r.csv.Read(ctx)
	if err != nil {
		return nil, err
	}
	r.stats.RowsRead++
	r.stats.LastReadTime = time.Now()
	r.stats.ReadDuration += time.Since(start)
	return row, nil
}

// Close implements the core.RowSource interface.
func (r *S3Reader) Close() error {
	return r.csv.Close()
}

// Stats returns S3 reader performance stats.
func (r *S3Reader) Stats() S3ReaderStats {
	return r.stats
}
