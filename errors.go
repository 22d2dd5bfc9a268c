package ctcdecode

import (
	"errors"
	"fmt"
)

// Configuration errors returned by New. They are fatal: nothing decodes
// until the decoder is constructed with valid parameters.
var (
	// ErrVocabSize is returned when the vocabulary cannot hold a blank
	// class and at least one label.
	ErrVocabSize = errors.New("ctcdecode: vocabulary size must be at least 2")
	// ErrBeamWidth is returned for beam widths below 1.
	ErrBeamWidth = errors.New("ctcdecode: beam width must be at least 1")
	// ErrBlankIndex is returned when the blank index falls outside the
	// vocabulary.
	ErrBlankIndex = errors.New("ctcdecode: blank index outside vocabulary")
	// ErrWorkers is returned for worker counts below 1.
	ErrWorkers = errors.New("ctcdecode: worker count must be at least 1")
)

// SequenceError reports one sequence's failure inside a batch. Other
// sequences keep their results; callers locate the bad input by Index and,
// when the producer assigned one, by ID.
type SequenceError struct {
	Index int
	ID    string
	Err   error
}

func (e *SequenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("sequence %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("sequence %d: %v", e.Index, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }
