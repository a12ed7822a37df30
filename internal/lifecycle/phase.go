package lifecycle

// Phase is the step of a one-shot user action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// Terminal reports whether the action has finished.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

func message(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
