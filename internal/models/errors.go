package models

import (
	"errors"
	"fmt"
)

// ErrDealExists is returned when attempting to create a deal that already exists.
var ErrDealExists = errors.New("deal already exists")

// ErrDealNotFound is returned when an edit or lookup targets an unknown id.
var ErrDealNotFound = errors.New("deal not found")

// ErrUnknownSelector is returned when a run selector names no known source or category.
var ErrUnknownSelector = errors.New("unknown source selector")

// ErrBelowMinDiscount marks candidates dropped by the quality filter.
var ErrBelowMinDiscount = errors.New("discount below source minimum")

// FetchError reports a failed retrieval of a source URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a document that could not be parsed as a whole.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError reports a candidate whose required field is missing or unusable.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }
