// Package errors provides structured error codes shared by capture, encoding and OCR.
// Codes travel over gRPC as google.rpc.ErrorInfo reasons so an OCR service can report them back.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the ErrorInfo domain attached to gRPC statuses.
const Domain = "screenlog"

// Code identifies a failure class.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInternal        Code = "INTERNAL"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeCancelled       Code = "CANCELLED"

	CodeCaptureFailed    Code = "CAPTURE_FAILED"
	CodeNoDisplays       Code = "NO_DISPLAYS"
	CodeDisplayMismatch  Code = "DISPLAY_MISMATCH"
	CodeEncoderFailed    Code = "ENCODER_FAILED"
	CodeFocusUnavailable Code = "FOCUS_UNAVAILABLE"
	CodeCropOutOfBounds  Code = "CROP_OUT_OF_BOUNDS"
	CodeImageMismatch    Code = "IMAGE_MISMATCH"
	CodeOCRExtractFailed Code = "OCR_EXTRACT_FAILED"
	CodeOCRUnavailable   Code = "OCR_UNAVAILABLE"
	CodeOutputDirFailed  Code = "OUTPUT_DIR_FAILED"
	CodeTextWriteFailed  Code = "TEXT_WRITE_FAILED"
	CodeConfigInvalid    Code = "CONFIG_INVALID"
	CodeNotSupported     Code = "NOT_SUPPORTED"
)

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:          codes.Unknown,
	CodeInternal:         codes.Internal,
	CodeInvalidArgument:  codes.InvalidArgument,
	CodeUnavailable:      codes.Unavailable,
	CodeTimeout:          codes.DeadlineExceeded,
	CodeCancelled:        codes.Canceled,
	CodeCaptureFailed:    codes.Internal,
	CodeNoDisplays:       codes.FailedPrecondition,
	CodeDisplayMismatch:  codes.OutOfRange,
	CodeEncoderFailed:    codes.Internal,
	CodeFocusUnavailable: codes.Unavailable,
	CodeCropOutOfBounds:  codes.OutOfRange,
	CodeImageMismatch:    codes.InvalidArgument,
	CodeOCRExtractFailed: codes.Internal,
	CodeOCRUnavailable:   codes.Unavailable,
	CodeOutputDirFailed:  codes.FailedPrecondition,
	CodeTextWriteFailed:  codes.Internal,
	CodeConfigInvalid:    codes.InvalidArgument,
	CodeNotSupported:     codes.Unimplemented,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status carrying an ErrorInfo detail.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	withDetail, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(e.Code),
		Domain:   Domain,
		Metadata: e.Metadata,
	})
	if err != nil {
		return st
	}
	return withDetail
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError converts a gRPC error into an AppError, preferring an attached ErrorInfo.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return &AppError{
				Code:     Code(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
				Cause:    err,
			}
		}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

// grpcToCode maps gRPC codes back to our codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidArgument
	case codes.Unavailable:
		return CodeOCRUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeOCRExtractFailed
	case codes.Unimplemented:
		return CodeNotSupported
	default:
		return CodeUnknown
	}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeUnavailable, CodeTimeout, CodeOCRUnavailable, CodeCaptureFailed:
		return true
	default:
		return false
	}
}
