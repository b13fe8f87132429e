package ingest

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Users can quote the code to support staff for faster diagnosis.
//
// # Ingestion Errors (ING001-ING099)
//
// Matched with errors.Is against the sentinel errors:
//
//	ING001 - Corrupt archive: The .zip file could not be opened
//	ING002 - Entry not found: The selected file is not inside the archive
//	ING003 - Unsupported workbook: The workbook could not be opened
//	ING004 - Decode exhausted: The file's text encoding could not be read
//	ING005 - No tabular content: No CSV or spreadsheet data was found
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV             Sentinel: ErrInvalidCSV
//	FILE004 - No file                 Patterns: "no file provided"
//	FILE005 - Empty file              Sentinel: ErrEmptyFile
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy              Patterns: "too many concurrent"
//	UPL004 - Request cancelled        Patterns: "context canceled"
//	UPL005 - Request timeout          Patterns: "context deadline exceeded"
//
// # Session and Question Errors (SES001, ASK001-ASK099)
//
//	SES001 - No table loaded          Patterns: "no table loaded"
//	ASK001 - Analyst unavailable      Patterns: "analyst not configured"
//	ASK002 - Query rejected           Patterns: "read-only"
//	ASK003 - Empty question           Patterns: "empty question"
//	ASK004 - No answer                Patterns: "no answer"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited            Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages are checked first, in order, with errors.Is.
var sentinelMessages = []sentinelMessage{
	{
		err: ErrCorruptArchive,
		msg: UserMessage{
			Message: "The .zip file could not be opened",
			Action:  "Re-create the archive and upload it again",
			Code:    "ING001",
		},
	},
	{
		err: ErrEntryNotFound,
		msg: UserMessage{
			Message: "The selected file is not inside the archive",
			Action:  "Pick one of the listed CSV files",
			Code:    "ING002",
		},
	},
	{
		err: ErrUnsupportedWorkbookFormat,
		msg: UserMessage{
			Message: "The workbook could not be opened",
			Action:  "Save the workbook as .xlsx or export the sheet as CSV",
			Code:    "ING003",
		},
	},
	{
		err: ErrDecodeExhausted,
		msg: UserMessage{
			Message: "The file's text encoding could not be read",
			Action:  "Save the file as UTF-8",
			Code:    "ING004",
		},
	},
	{
		err: ErrNoTabularContent,
		msg: UserMessage{
			Message: "No CSV or spreadsheet data was found",
			Action:  "Upload a .zip with CSV files, a .csv or an .xlsx workbook",
			Code:    "ING005",
		},
	},
	{
		err: ErrInvalidCSV,
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with properly closed quotes",
			Code:    "FILE002",
		},
	},
	{
		err: ErrEmptyFile,
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages
// for errors that do not wrap a sentinel. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a simpler question or a smaller file",
			Code:    "UPL005",
		},
	},
	{
		pattern: "no table loaded",
		msg: UserMessage{
			Message: "No data has been loaded yet",
			Action:  "Upload a file before asking questions",
			Code:    "SES001",
		},
	},
	{
		pattern: "analyst not configured",
		msg: UserMessage{
			Message: "Question answering is not available",
			Action:  "Configure ANALYST_PROVIDER and its API key",
			Code:    "ASK001",
		},
	},
	{
		pattern: "read-only",
		msg: UserMessage{
			Message: "The generated query was rejected",
			Action:  "Rephrase the question",
			Code:    "ASK002",
		},
	},
	{
		pattern: "empty question",
		msg: UserMessage{
			Message: "The question is empty",
			Action:  "Type a question about the data",
			Code:    "ASK003",
		},
	},
	{
		pattern: "no answer",
		msg: UserMessage{
			Message: "The model did not return an answer",
			Action:  "Please try again",
			Code:    "ASK004",
		},
	},
	{
		pattern: "no archive loaded",
		msg: UserMessage{
			Message: "No archive is active",
			Action:  "Upload a .zip file to choose between its CSV files",
			Code:    "SES002",
		},
	},
	{
		pattern: "run query",
		msg: UserMessage{
			Message: "The generated query failed",
			Action:  "Rephrase the question using the column names shown",
			Code:    "ASK005",
		},
	},
	{
		pattern: "generate query",
		msg: UserMessage{
			Message: "The model could not be reached",
			Action:  "Please try again in a moment",
			Code:    "ASK006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Sentinel errors are matched with errors.Is, everything else by substring.
// Returns an empty UserMessage for nil errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns a formatted user-friendly error string.
// Format: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing returns true if the error maps to a specific message
// rather than the default.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
