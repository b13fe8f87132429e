package analyst

import "errors"

var (
	// ErrNotConfigured means no LLM provider is configured.
	ErrNotConfigured = errors.New("analyst not configured")

	// ErrNoTable means a question was asked before any table was loaded.
	ErrNoTable = errors.New("no table loaded")

	// ErrEmptyQuestion means the question was blank.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrReadOnly means a generated statement was not a single read-only query.
	ErrReadOnly = errors.New("only read-only queries are allowed")

	// ErrNoAnswer means the provider returned no usable text.
	ErrNoAnswer = errors.New("no answer from model")
)
