//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package errors

import (
	stderrors "errors"
	"fmt"
)

// DecodeError reports a rank file that could not be decoded, either because
// the document is malformed or because a field is semantically invalid
// (negative peer, bad range, peer beyond the communicator size).
type DecodeError struct {
	Path string // file that failed to decode, empty when decoding raw data
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unable to decode rank data: %s", e.Err)
	}
	return fmt.Sprintf("unable to decode %s: %s", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecode wraps err into a DecodeError for the given file
func NewDecode(path string, err error) *DecodeError {
	return &DecodeError{Path: path, Err: err}
}

// ValidationError reports data that is well formed but inconsistent across
// the dataset, e.g., a rank file declaring the wrong rank or two ranks
// disagreeing about a locality group. Ranks identifies the rank(s) involved.
type ValidationError struct {
	Ranks []int
	Msg   string
}

func (e *ValidationError) Error() string {
	switch len(e.Ranks) {
	case 0:
		return e.Msg
	case 1:
		return fmt.Sprintf("rank %d: %s", e.Ranks[0], e.Msg)
	default:
		return fmt.Sprintf("ranks %v: %s", e.Ranks, e.Msg)
	}
}

// Validationf creates a ValidationError naming the given ranks
func Validationf(ranks []int, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Ranks: ranks, Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports malformed filter text. It is recoverable: interactive
// callers are expected to fall back to a BadFilter instead of aborting.
type ParseError struct {
	Text string // the text that failed to parse
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse filter %q: %s", e.Text, e.Msg)
}

// Parsef creates a ParseError for the given filter text
func Parsef(text string, format string, args ...interface{}) *ParseError {
	return &ParseError{Text: text, Msg: fmt.Sprintf(format, args...)}
}

// LookupError reports a query for something the dataset does not have, e.g.,
// an unknown component, an out-of-range rank or a locality grouping that
// could not be resolved. The caller decides the fallback.
type LookupError struct {
	Msg string
}

func (e *LookupError) Error() string {
	return e.Msg
}

// Lookupf creates a LookupError
func Lookupf(format string, args ...interface{}) *LookupError {
	return &LookupError{Msg: fmt.Sprintf(format, args...)}
}

// IsDecode checks whether any error in err's chain is a DecodeError
func IsDecode(err error) bool {
	var e *DecodeError
	return stderrors.As(err, &e)
}

// IsValidation checks whether any error in err's chain is a ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return stderrors.As(err, &e)
}

// IsParse checks whether any error in err's chain is a ParseError
func IsParse(err error) bool {
	var e *ParseError
	return stderrors.As(err, &e)
}

// IsLookup checks whether any error in err's chain is a LookupError
func IsLookup(err error) bool {
	var e *LookupError
	return stderrors.As(err, &e)
}
