package summarize

// Outcome is the classified result of one remote call: Success,
// SizeLimitExceeded or Failure.
type Outcome interface {
	isOutcome()
}

// Success carries the summary text.
type Success struct {
	Text string
}

// SizeLimitExceeded reports that the service rejected the payload as too
// large. It is the only retryable outcome.
type SizeLimitExceeded struct {
	Message string
}

// Failure is any other error: transport, parse or provider-side.
type Failure struct {
	Message string
}

func (Success) isOutcome()           {}
func (SizeLimitExceeded) isOutcome() {}
func (Failure) isOutcome()           {}

// Kind names an outcome for logs and transition tables.
func Kind(o Outcome) string {
	switch o.(type) {
	case Success:
		return "success"
	case SizeLimitExceeded:
		return "size_limit"
	case Failure:
		return "failure"
	}
	return "unknown"
}
