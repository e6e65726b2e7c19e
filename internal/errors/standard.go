// Package errors provides standardized error messaging for memtrace's cold
// path (export, merge, analysis). Hot-path failures never construct one of
// these; they increment a dropped-event counter instead (see tracer/recorder).
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryMemory     ErrorCategory = "MEMORY"
	CategorySecurity   ErrorCategory = "SECURITY"
	CategoryBounds     ErrorCategory = "BOUNDS"
	CategoryOverflow   ErrorCategory = "OVERFLOW"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategorySystem     ErrorCategory = "SYSTEM"
	CategoryTracking   ErrorCategory = "TRACKING"
	CategoryMerge      ErrorCategory = "MERGE"
)

// StandardError provides a consistent error format across every cold-path
// package: category, a stable code, a message, free-form context, and the
// caller that raised it.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// NewStandardError creates a new standardized error, capturing the immediate
// caller for diagnostics.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Common error constructors used by the cold path.

func InvalidPointer(ptr uintptr, op string) *StandardError {
	return NewStandardError(CategoryMemory, "INVALID_POINTER",
		fmt.Sprintf("pointer %#x is not a tracked allocation in %s", ptr, op),
		map[string]interface{}{"ptr": ptr, "operation": op})
}

func MemoryCorruption(ptr uintptr, details string) *StandardError {
	return NewStandardError(CategoryMemory, "MEMORY_CORRUPTION",
		fmt.Sprintf("double free detected for pointer %#x: %s", ptr, details),
		map[string]interface{}{"ptr": ptr, "details": details})
}

func MergeDecodeError(file string, offset int64, cause error) *StandardError {
	return NewStandardError(CategoryMerge, "MERGE_DECODE_ERROR",
		fmt.Sprintf("malformed frame in %s at offset %d: %v", file, offset, cause),
		map[string]interface{}{"file": file, "offset": offset})
}

func ValidationError(path, jsonPath string, cause error) *StandardError {
	return NewStandardError(CategoryValidation, "VALIDATION_ERROR",
		fmt.Sprintf("export %s failed schema validation at %s: %v", path, jsonPath, cause),
		map[string]interface{}{"path": path, "json_path": jsonPath})
}

func InvalidSize(size uint64, context string) *StandardError {
	return NewStandardError(CategoryValidation, "INVALID_SIZE",
		fmt.Sprintf("invalid size %d in %s", size, context),
		map[string]interface{}{"size": size, "context": context})
}

func TrackingDisabled(op string) *StandardError {
	return NewStandardError(CategoryTracking, "TRACKING_DISABLED",
		fmt.Sprintf("recorder not initialized for %s", op),
		map[string]interface{}{"operation": op})
}
