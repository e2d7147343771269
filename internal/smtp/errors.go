package smtp

import (
	"fmt"
	"strings"
)

// Step identifies a point in the relay session at which a failure occurred.
type Step string

// Session steps, in protocol order.
const (
	StepConnect       Step = "connect"
	StepGreeting      Step = "greeting"
	StepStartTLS      Step = "starttls"
	StepTLSHandshake  Step = "tls-handshake"
	StepAuthMechanism Step = "auth-mechanism"
	StepAuthUsername  Step = "auth-username"
	StepAuthPassword  Step = "auth-password"
	StepMailFrom      Step = "sender"
	StepRcptTo        Step = "recipient"
	StepData          Step = "data"
	StepMessage       Step = "message"
)

// StepError reports a failed relay session. Every failure is terminal:
// the session is aborted at the failing step and the connection closed.
// Reply carries the server's raw response when the failure was a rejected
// command; Err carries the underlying error for transport-level failures.
type StepError struct {
	Step  Step
	Reply Reply
	Err   error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("smtp %s: %v", e.Step, e.Err)
	}
	if len(e.Reply.Lines) > 0 {
		return fmt.Sprintf("smtp %s: server responded %d %s", e.Step, e.Reply.Code, strings.Join(e.Reply.Lines, " / "))
	}
	return fmt.Sprintf("smtp %s failed", e.Step)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// rejected builds a StepError for a command the server answered with an
// unexpected reply code.
func rejected(step Step, reply Reply) *StepError {
	return &StepError{Step: step, Reply: reply}
}

// transport builds a StepError for an I/O failure (including read deadline
// expiry) at the given step.
func transport(step Step, err error) *StepError {
	return &StepError{Step: step, Err: err}
}
