package domain

// Kind separates "try the next thing" from "stop crawling entirely".
type Kind int

const (
	Success Kind = iota
	Retryable
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of every fetch: a payload on Success, a reason otherwise.
type Outcome[T any] struct {
	Kind   Kind
	Value  T
	Reason string
	// Status is the HTTP status code when a response was received, 0 otherwise.
	Status int
}

func Succeeded[T any](v T, status int) Outcome[T] {
	return Outcome[T]{Kind: Success, Value: v, Status: status}
}

func Retry[T any](reason string, status int) Outcome[T] {
	return Outcome[T]{Kind: Retryable, Reason: reason, Status: status}
}

func Halt[T any](reason string, status int) Outcome[T] {
	return Outcome[T]{Kind: Fatal, Reason: reason, Status: status}
}

// OK reports whether the outcome carries a payload.
func (o Outcome[T]) OK() bool {
	return o.Kind == Success
}

// Recast carries a non-success outcome over to another payload type.
func Recast[T, U any](o Outcome[T]) Outcome[U] {
	return Outcome[U]{Kind: o.Kind, Reason: o.Reason, Status: o.Status}
}
