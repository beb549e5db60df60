package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy (sentinels). Adapters wrap these; the typed kinds below unwrap to them.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInternal        = errors.New("internal error")
)

// Kind identifies a request failure the transport layer must distinguish.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindNoQuestionsAvailable
	KindQuotaExceeded
	KindInterviewNotFound
	KindAssignmentMissing
	KindInterviewNotActive
	KindQuestionMismatch
	KindPersistenceFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNoQuestionsAvailable:
		return "no_questions_available"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindInterviewNotFound:
		return "interview_not_found"
	case KindAssignmentMissing:
		return "assignment_missing"
	case KindInterviewNotActive:
		return "interview_not_active"
	case KindQuestionMismatch:
		return "question_mismatch"
	case KindPersistenceFailure:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

type kinded interface{ Kind() Kind }

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// InvalidRequestError rejects malformed input before any persistence is touched.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}
func (e *InvalidRequestError) Kind() Kind    { return KindInvalidRequest }
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidArgument }

// NoQuestionsAvailableError means the subject inventory is empty.
type NoQuestionsAvailableError struct{ SubjectID string }

func (e *NoQuestionsAvailableError) Error() string {
	return fmt.Sprintf("no questions available for subject %q", e.SubjectID)
}
func (e *NoQuestionsAvailableError) Kind() Kind    { return KindNoQuestionsAvailable }
func (e *NoQuestionsAvailableError) Unwrap() error { return ErrInvalidArgument }

// QuotaExceededError carries what the caller needs for a come-back-tomorrow message.
type QuotaExceededError struct {
	Used      int
	Remaining int
	Limit     int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Daily question limit reached. Remaining today: %d of %d.", e.Remaining, e.Limit)
}
func (e *QuotaExceededError) Kind() Kind    { return KindQuotaExceeded }
func (e *QuotaExceededError) Unwrap() error { return ErrRateLimited }

// InterviewNotFoundError is returned for unknown ids and for interviews owned by
// another user.
type InterviewNotFoundError struct{ InterviewID string }

func (e *InterviewNotFoundError) Error() string {
	return fmt.Sprintf("interview %q not found", e.InterviewID)
}
func (e *InterviewNotFoundError) Kind() Kind    { return KindInterviewNotFound }
func (e *InterviewNotFoundError) Unwrap() error { return ErrNotFound }

// AssignmentMissingError is a data integrity gap: no question at the position.
type AssignmentMissingError struct {
	InterviewID string
	Position    int
}

func (e *AssignmentMissingError) Error() string {
	return fmt.Sprintf("interview %q has no question assigned at position %d", e.InterviewID, e.Position)
}
func (e *AssignmentMissingError) Kind() Kind    { return KindAssignmentMissing }
func (e *AssignmentMissingError) Unwrap() error { return ErrNotFound }

// InterviewNotActiveError rejects answers to a completed interview.
type InterviewNotActiveError struct{ InterviewID string }

func (e *InterviewNotActiveError) Error() string {
	return fmt.Sprintf("interview %q is not active", e.InterviewID)
}
func (e *InterviewNotActiveError) Kind() Kind    { return KindInterviewNotActive }
func (e *InterviewNotActiveError) Unwrap() error { return ErrConflict }

// QuestionMismatchError means the client answered something other than the
// question at the current position.
type QuestionMismatchError struct {
	Expected string
	Got      string
}

func (e *QuestionMismatchError) Error() string {
	return "questionId does not match the current interview question"
}
func (e *QuestionMismatchError) Kind() Kind    { return KindQuestionMismatch }
func (e *QuestionMismatchError) Unwrap() error { return ErrConflict }

// PersistenceError wraps any unexpected store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("op=%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Kind() Kind    { return KindPersistenceFailure }

// Unwrap exposes both the cause and ErrInternal.
func (e *PersistenceError) Unwrap() []error { return []error{e.Err, ErrInternal} }

// Persistence wraps err as a PersistenceError unless it already carries a kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
