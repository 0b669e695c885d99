// Error codes reference.
//
// This file maps errors to operator-facing messages with a code and a
// remediation. The CLI prints the mapped message; the technical error is
// logged alongside it.
//
// # Locale Errors (LOC001-LOC099)
//
//	LOC001 - Locale not found: A source row names a locale absent from main.locale
//	         Action: Load main reference data first, or correct the source row
//	         Match: *LocaleNotFoundError
//
//	LOC002 - Locale integrity: More than one locale row matches a unique key
//	         Action: Reload main reference data; the locale table is corrupted
//	         Match: *LocaleIntegrityError
//
// # Transform Errors (ETL001-ETL099)
//
//	ETL001 - Ambiguous row: A source row resolved to zero or several locales
//	         Action: Inspect the reported row and add a correction for it
//	         Match: *ETLError
//
// # Prerequisites (PRE001-PRE099)
//
//	PRE001 - Prerequisite missing: Dataset depends on data not yet loaded
//	         Action: Run the named prerequisite load first
//	         Match: *PrerequisiteError
//
// # Fetch Errors (FETCH001-FETCH099)
//
//	FETCH001 - Download failed: Source could not be retrieved after retries
//	           Action: Check connectivity and the source URL, then rerun
//	           Match: *FetchError (transient)
//
//	FETCH002 - Source missing: Source returned 404 or an empty payload
//	           Action: Verify the source URL or file path in configuration
//	           Match: *FetchError (permanent)
//
// # Load Notices (LOAD001-LOAD099)
//
//	LOAD001 - Already loaded: Every row of the batch is already present
//	          Action: None; the rerun was a no-op
//	          Match: ErrAlreadyLoaded
//
// # Database Errors (DB001-DB099)
//
// Matched by pattern against the error text, as raised by the driver.
//
//	DB001 duplicate key, DB002 unique constraint, DB003 foreign key,
//	DB004 connection refused, DB005 connection reset, DB006 timeout,
//	DB007 deadlock, DB008 missing relation (schema not created).
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps driver error text (case-insensitive) to messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check the source for duplicate natural keys",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the source for duplicate natural keys",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Load the referenced dataset first; locale reloads must keep existing ids",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check the connection parameters and that the server is running",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Rerun the load",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Rerun the load or raise the statement timeout",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Make sure no other load is running, then rerun",
			Code:    "DB007",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "A schema, table or column is missing",
			Action:  "Run the schema command to create the database layout",
			Code:    "DB008",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message.
// Typed errors are matched first with errors.As, then driver text patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		notFound  *LocaleNotFoundError
		integrity *LocaleIntegrityError
		etl       *ETLError
		prereq    *PrerequisiteError
		fetch     *FetchError
	)

	switch {
	case errors.Is(err, ErrAlreadyLoaded):
		return UserMessage{
			Message: "Dataset already loaded",
			Action:  "None; the rerun was a no-op",
			Code:    "LOAD001",
		}, true
	case errors.As(err, &prereq):
		action := fmt.Sprintf("Load %s first", prereq.Requires)
		if prereq.Hint != "" {
			action = prereq.Hint
		}
		return UserMessage{
			Message: fmt.Sprintf("%s requires %s, which is not loaded", prereq.Dataset, prereq.Requires),
			Action:  action,
			Code:    "PRE001",
		}, true
	case errors.As(err, &etl):
		return UserMessage{
			Message: fmt.Sprintf("Row %d of %s could not be resolved unambiguously", etl.Ordinal, etl.Dataset),
			Action:  "Inspect the reported row and add a correction for it",
			Code:    "ETL001",
		}, true
	case errors.As(err, &integrity):
		return UserMessage{
			Message: "More than one locale matches " + integrity.Key.String(),
			Action:  "Reload main reference data; the locale table is corrupted",
			Code:    "LOC002",
		}, true
	case errors.As(err, &notFound):
		return UserMessage{
			Message: "No locale matches " + notFound.Key.String(),
			Action:  "Load main reference data first, or correct the source row",
			Code:    "LOC001",
		}, true
	case errors.As(err, &fetch):
		if fetch.Permanent {
			return UserMessage{
				Message: "Source is missing: " + fetch.URL,
				Action:  "Verify the source URL or file path in configuration",
				Code:    "FETCH002",
			}, true
		}
		return UserMessage{
			Message: "Could not download " + fetch.URL,
			Action:  "Check connectivity and the source URL, then rerun",
			Code:    "FETCH001",
		}, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its operator-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
