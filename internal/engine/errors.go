package engine

import "errors"

// ===== COMMON ENGINE ERRORS =====

var (
	// Session / persistence errors
	ErrSubmissionNotFound   = errors.New("no in-progress submission found")
	ErrSubmissionUnresolved = errors.New("submission id not resolved yet")
	ErrSessionViewOnly      = errors.New("session is view-only")
	ErrSessionSubmitted     = errors.New("session already submitted")
	ErrSessionClosed        = errors.New("session has been torn down")

	// Widget errors
	ErrQuestionNotFound        = errors.New("question not found in session")
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	ErrCaptureActive           = errors.New("an audio capture is already active")
	ErrNoCaptureActive         = errors.New("no audio capture is active")
	ErrItemUnavailable         = errors.New("no remaining copy of item in pool")
	ErrUnknownSlot             = errors.New("unknown slot for question")
	ErrSequenceMismatch        = errors.New("sequence does not match the word pool")
)
