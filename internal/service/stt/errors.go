package stt

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Severity classifies an STT error for the session's recovery policy.
type Severity int

const (
	// SeverityTransient - transcription degrades, the call continues.
	SeverityTransient Severity = iota
	// SeverityFatal - the stream is permanently gone, the call should end.
	SeverityFatal
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityTransient:
		return "transient"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps a provider error to a severity. Streaming providers surface
// gRPC status codes; a closed or canceled stream is fatal, everything else
// is treated as transient so one bad result does not tear down the call.
func Classify(err error) Severity {
	if err == nil {
		return SeverityTransient
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return SeverityFatal
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled, codes.Unauthenticated, codes.PermissionDenied, codes.FailedPrecondition:
			return SeverityFatal
		}
	}
	return SeverityTransient
}
