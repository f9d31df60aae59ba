package bot

import "fmt"

// ValidationError is a user mistake: bad category, missing query, page or
// ordinal out of range. The message is shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SessionExpiredError means a reply command arrived after the user's
// session lapsed (or before any search happened). The user gets the
// configured expiry message.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string { return "session expired" }

// WrongContextError means the replied-to message could not be matched to
// any track of the live session. Silent marks the mismatched-domain case,
// where the command is dropped without a reply.
type WrongContextError struct {
	Silent bool
}

func (e *WrongContextError) Error() string {
	if e.Silent {
		return "reply targets a different command's message"
	}
	return "reply does not match any session message"
}

// CollaboratorError wraps a failure from the catalog, the file store, or
// the transport itself. UserMessage is the reply shown to the user, with
// the underlying error appended. The session is left untouched.
type CollaboratorError struct {
	UserMessage string
	Err         error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
