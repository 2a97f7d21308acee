package core

// # Error Codes Reference
//
// This file maps technical errors to operator-facing messages with codes.
// The CLI prints the code next to the failure so a run can be diagnosed from
// its exit output and the logs.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: A value that must be unique was repeated
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//	DB008 - Authentication: Database rejected the credentials
//	        Patterns: "password authentication failed"
//	DB009 - Missing database: The configured database does not exist
//	        Patterns: "does not exist"
//	DB010 - Check constraint: A value violated a table check
//	        Patterns: "violates check constraint"
//
// # Input Errors (FILE001-FILE099, VAL001-VAL099)
//
//	FILE001 - Missing input: A raw input file was not found
//	          Patterns: "missing input file"
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Patterns: "invalid csv"
//	FILE003 - Empty file: A raw input file has no header row
//	          Patterns: "empty file"
//	VAL001  - Missing column: Required column is missing from a raw file
//	          Patterns: "missing required column"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was interrupted
//	         Patterns: "context canceled"
//	RUN002 - Deadline: The run exceeded its time limit
//	         Patterns: "context deadline exceeded"
//	RUN003 - Unreconciled: Counts did not add up after the load
//	         Patterns: "counts do not reconcile"
//	RUN004 - Mapping miss: A sale referenced a key absent from the load maps
//	         Patterns: "no surrogate id"
//	CFG001 - Configuration: The configuration is invalid
//	         Patterns: "config "
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check that the target tables were truncated before the load",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A value that must be unique was repeated",
			Action:  "Review the raw customers file for repeated emails",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review the raw customers file for repeated emails",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check the raw sales file against customers and products",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check the raw sales file against customers and products",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value violated a table check",
			Action:  "Inspect prices, stock and quantities in the raw files",
			Code:    "DB010",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check FLEXIMART_DB_HOST and FLEXIMART_DB_PORT, then retry",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check FLEXIMART_DB_USER and FLEXIMART_DB_PASSWORD",
			Code:    "DB008",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Raise FLEXIMART_LOAD_TIMEOUT or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Make sure no other load is running and try again",
			Code:    "DB007",
		},
	},

	// Input errors
	{
		pattern: "missing input file",
		msg: UserMessage{
			Message: "A raw input file was not found",
			Action:  "Place customers, products and sales files in the data directory",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with balanced quotes",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "A raw input file has no header row",
			Action:  "Export the file again with its header",
			Code:    "FILE003",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from a raw file",
			Action:  "Check that all required columns are present in the file",
			Code:    "VAL001",
		},
	},

	// Run errors
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was interrupted",
			Action:  "Start the run again; nothing was committed",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run exceeded its time limit",
			Action:  "Raise FLEXIMART_LOAD_TIMEOUT or try again later",
			Code:    "RUN002",
		},
	},
	{
		pattern: "counts do not reconcile",
		msg: UserMessage{
			Message: "Row counts did not add up after the load",
			Action:  "Check the logs for the entity that failed reconciliation",
			Code:    "RUN003",
		},
	},
	{
		pattern: "no surrogate id",
		msg: UserMessage{
			Message: "A sale referenced a record that was not loaded",
			Action:  "Check the logs for the offending transaction",
			Code:    "RUN004",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The configured database or table does not exist",
			Action:  "Create the database or enable FLEXIMART_ENSURE_SCHEMA",
			Code:    "DB009",
		},
	},
	{
		pattern: "config ",
		msg: UserMessage{
			Message: "The configuration is invalid",
			Action:  "Fix the settings named in the error and run again",
			Code:    "CFG001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Check the logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := fmt.Errorf("open customers_raw.csv: %w", ErrMissingInput)
//	msg := MapError(err)
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
