package cleaner

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/fenilsonani/media-dedup/internal/scanner"
)

// ErrorReason categorizes why a filesystem mutation failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorAlreadyExists
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorVerifyFailed
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorAlreadyExists:
		return "Target already exists"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorVerifyFailed:
		return "Copy verification failed"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// Operation names the filesystem step that failed
type Operation string

const (
	OpMkdir  Operation = "mkdir"
	OpCopy   Operation = "copy"
	OpVerify Operation = "verify"
	OpDelete Operation = "delete"
	OpCheck  Operation = "check"
)

// MutationError is the fatal failure of a copy, verify or delete step.
// Removals completed before it are not rolled back.
type MutationError struct {
	Path      string // the victim being removed
	Target    string // trash target, empty in permanent mode
	Op        Operation
	Reason    ErrorReason
	Original  error
	Retryable bool
}

// Error implements the error interface
func (e *MutationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s -> %s: %s (%v)", e.Op, e.Path, e.Target, e.Reason, e.Original)
	}
	return fmt.Sprintf("%s %s: %s (%v)", e.Op, e.Path, e.Reason, e.Original)
}

// Unwrap returns the underlying error
func (e *MutationError) Unwrap() error { return e.Original }

// UserMessage returns a user-friendly error message
func (e *MutationError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		return fmt.Sprintf("⚠️  Permission denied during %s: %s", e.Op, e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("⚠️  File is being used: %s (close the application and try again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("⚠️  File disappeared before %s: %s", e.Op, e.Path)
	case ErrorAlreadyExists:
		return fmt.Sprintf("⚠️  Trash already holds %s; refusing to overwrite it", e.Target)
	case ErrorInvalidPath:
		return fmt.Sprintf("❌ Invalid or unsafe path: %s", e.Path)
	case ErrorVerifyFailed:
		return fmt.Sprintf("❌ Trash copy of %s does not match the original; original kept", e.Path)
	default:
		return fmt.Sprintf("❌ Error during %s of %s: %v", e.Op, e.Path, e.Original)
	}
}

// CategorizeError analyzes an error from operation op on path
func CategorizeError(op Operation, path string, err error) *MutationError {
	if err == nil {
		return nil
	}

	mutErr := &MutationError{
		Path:     path,
		Op:       op,
		Original: err,
		Reason:   ErrorUnknown,
	}

	// Check if file not found
	if os.IsNotExist(err) {
		mutErr.Reason = ErrorFileNotFound
		return mutErr
	}

	if os.IsExist(err) {
		mutErr.Reason = ErrorAlreadyExists
		return mutErr
	}

	// Check if permission error
	if os.IsPermission(err) {
		mutErr.Reason = ErrorPermissionDenied
		return mutErr
	}

	// Check syscall errors
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			mutErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			mutErr.Reason = ErrorFileInUse
			mutErr.Retryable = true
		case syscall.ENOENT:
			mutErr.Reason = ErrorFileNotFound
		case syscall.EEXIST:
			mutErr.Reason = ErrorAlreadyExists
		case syscall.EISDIR:
			mutErr.Reason = ErrorIsDirectory
		default:
			mutErr.Reason = ErrorUnknown
		}
		return mutErr
	}

	return mutErr
}

// ConsistencyError means the duplicate registry references a group that is
// missing or has fewer than two members. Nothing is modified.
type ConsistencyError struct {
	Fingerprint scanner.Fingerprint
	Members     int
}

// Error implements the error interface
func (e *ConsistencyError) Error() string {
	if e.Members == 0 {
		return fmt.Sprintf("duplicate registry references unknown group %s", e.Fingerprint)
	}
	return fmt.Sprintf("duplicate group %s has %d member(s), expected at least 2", e.Fingerprint, e.Members)
}

// ErrPromptAborted is returned by a Confirmer when input ends before a yes/no answer
var ErrPromptAborted = errors.New("confirmation aborted")
