package run

import "fmt"

// FailureKind classifies infrastructure-level faults. Metric parse
// problems are deliberately absent: they degrade to missing metrics and
// never propagate as failures.
type FailureKind string

const (
	// KindProvider means the target list could not be read or was empty.
	// This is the only fault that aborts a run before any dispatch.
	KindProvider FailureKind = "provider-failed"
	// KindRemoteUnreachable means the target could not be contacted.
	KindRemoteUnreachable FailureKind = "remote-unreachable"
	// KindDirectoryCreate means the remote artifact directory could not be created.
	KindDirectoryCreate FailureKind = "directory-creation-failed"
	// KindLaunch means the load generator process could not be started.
	KindLaunch FailureKind = "generator-launch-failed"
	// KindSampling means the performance counter sampler failed.
	KindSampling FailureKind = "sampling-failed"
	// KindArtifactMissing means no result directory was found during collection.
	KindArtifactMissing FailureKind = "no-test-results-found"
)

// Error is a target-scoped classified failure. It keeps the wrapped cause
// available through Cause so callers can still unwrap with pkg/errors.
type Error struct {
	Kind   FailureKind
	Target string
	cause  error
}

// NewError wraps cause with a failure classification for given target.
func NewError(kind FailureKind, target string, cause error) *Error {
	return &Error{Kind: kind, Target: target, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Target, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Target, e.Kind, e.cause.Error())
}

// Cause returns the underlying error. Compatible with errors.Cause.
func (e *Error) Cause() error {
	return e.cause
}

// KindOf extracts the failure classification from err. Unclassified
// errors report an empty kind.
func KindOf(err error) FailureKind {
	for err != nil {
		if classified, ok := err.(*Error); ok {
			return classified.Kind
		}
		causer, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = causer.Cause()
	}
	return ""
}
