// Package store loads snapshot documents from local files and S3.
//
// Locations are plain paths, file:// URIs or s3://bucket/key URIs. The
// document format follows the extension (.json, .yaml, .yml).
package store
