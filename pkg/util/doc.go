// Package util provides common utility functions and data structures
//
// This package includes a generic set implementation and, in the call
// subpackage, helpers for sequencing deferred error-returning calls
package util
