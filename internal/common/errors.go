// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Capture-layer errors. The user can usually correct these by trying again.
var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrDeviceBusy        = errors.New("capture device already in use")
	ErrEmptyRecording    = errors.New("recording is empty")
	ErrInvalidFileType   = errors.New("file is not an image")
	ErrNoFileChosen      = errors.New("no file chosen")
	ErrEmptyText         = errors.New("text input is empty")
)

// Classification-layer errors. These originate on the service side.
var (
	ErrServiceUnavailable  = errors.New("classification service unavailable")
	ErrRateLimited         = errors.New("classification service rate limited")
	ErrTimeout             = errors.New("classification timed out")
	ErrMalformedResponse   = errors.New("malformed classification response")
	ErrTranscriptionFailed = errors.New("audio transcription failed")
)

// Validation-layer errors.
var (
	ErrInvalidContract = errors.New("classification result violates contract")
)

// Finalize-layer errors. These are the only failures that block a session.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrSubmissionFailed     = errors.New("transaction submission failed")
)

// State machine misuse.
var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrAnalysisInFlight   = errors.New("analysis already in progress")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrWrongMode          = errors.New("operation does not match input mode")
)

// Store and configuration errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorLayer names the pipeline layer an error belongs to.
type ErrorLayer string

// Error layers, ordered as the pipeline runs.
const (
	LayerUnknown        ErrorLayer = "unknown"
	LayerCapture        ErrorLayer = "capture"
	LayerClassification ErrorLayer = "classification"
	LayerValidation     ErrorLayer = "validation"
	LayerFinalize       ErrorLayer = "finalize"
	LayerSession        ErrorLayer = "session"
)

var layers = []struct {
	layer ErrorLayer
	errs  []error
}{
	{LayerCapture, []error{ErrPermissionDenied, ErrDeviceUnavailable, ErrDeviceBusy, ErrEmptyRecording, ErrInvalidFileType, ErrNoFileChosen, ErrEmptyText}},
	{LayerClassification, []error{ErrServiceUnavailable, ErrRateLimited, ErrTimeout, ErrMalformedResponse, ErrTranscriptionFailed}},
	{LayerValidation, []error{ErrInvalidContract}},
	{LayerFinalize, []error{ErrMissingRequiredField, ErrSubmissionFailed}},
	{LayerSession, []error{ErrInvalidTransition, ErrAnalysisInFlight, ErrSubmissionInFlight, ErrWrongMode}},
}

// Layer reports which layer of the taxonomy err belongs to.
func Layer(err error) ErrorLayer {
	if err == nil {
		return LayerUnknown
	}
	for _, l := range layers {
		for _, target := range l.errs {
			if errors.Is(err, target) {
				return l.layer
			}
		}
	}
	return LayerUnknown
}

// IsTransient reports whether a failure is service-side and worth a manual retry.
// Nothing retries automatically; this only informs what the user is shown.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the message a person should see for err.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	switch Layer(err) {
	case LayerCapture:
		switch {
		case errors.Is(err, ErrPermissionDenied):
			return "Could not access the microphone. Check the permissions."
		case errors.Is(err, ErrInvalidFileType):
			return "Please select an image file."
		case errors.Is(err, ErrNoFileChosen):
			return "No file chosen."
		case errors.Is(err, ErrEmptyRecording):
			return "Nothing was recorded. Try again."
		default:
			return "Capture failed. Try again or fill in the fields manually."
		}
	case LayerClassification, LayerValidation:
		return "Could not analyze the input. Fill in the fields manually."
	case LayerFinalize:
		if errors.Is(err, ErrMissingRequiredField) {
			return "Please fill in all required fields."
		}
		return "Could not save the transaction. Try again."
	default:
		return err.Error()
	}
}
