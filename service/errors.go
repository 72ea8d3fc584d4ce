// Package service holds the reconciliation and conversion core. Everything
// here is called by the HTTP layer as plain functions and talks only to the
// metadata store and the remote command channel
package service

import "errors"

// Reason is the machine-readable classification of a domain failure. The
// HTTP layer maps reasons to status codes, the message stays human
type Reason string

const (
	ReasonInvalidQuality     Reason = "invalid_quality"
	ReasonInvalidName        Reason = "invalid_name"
	ReasonExceedsCeiling     Reason = "exceeds_ceiling"
	ReasonDuplicateName      Reason = "duplicate_name"
	ReasonFolderNotEmpty     Reason = "folder_not_empty"
	ReasonSourceNotFound     Reason = "source_not_found"
	ReasonConversionExists   Reason = "conversion_already_exists"
	ReasonRemoteCreateFailed Reason = "remote_create_failed"
	ReasonRemoteRenameFailed Reason = "remote_rename_failed"
	ReasonRemoteChannel      Reason = "remote_channel_error"
	ReasonNotFound           Reason = "not_found"
	ReasonNoHostAvailable    Reason = "no_host_available"
)

type Error struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ", " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. cause may be nil
func E(reason Reason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Err:     cause,
	}
}

// ReasonOf extracts the classification, or "" for unclassified errors
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
