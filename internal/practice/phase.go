package practice

// Phase is a state of the depth progression machine.
type Phase int

const (
	AwaitingAnswers Phase = iota
	Evaluating
	ShowingResults
	Advancing
	Retrying
	Completed
	Closed
)

var phaseNames = [...]string{
	AwaitingAnswers: "awaiting_answers",
	Evaluating:      "evaluating",
	ShowingResults:  "showing_results",
	Advancing:       "advancing",
	Retrying:        "retrying",
	Completed:       "completed",
	Closed:          "closed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further progress is possible.
func (p Phase) Terminal() bool {
	return p == Completed || p == Closed
}

// editable reports whether answers may be changed and submitted.
func (p Phase) editable() bool {
	return p == AwaitingAnswers || p == Retrying
}
