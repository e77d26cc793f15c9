package types

// Alternative is one recognition hypothesis for a result.
type Alternative struct {
	Transcript string
	Confidence float64
}

// RecognitionResult is a span of recognized speech. Final results will not be
// revised by the engine; interim ones may be.
type RecognitionResult struct {
	Alternatives []Alternative
	Final        bool
}

// Best returns the top hypothesis text, or "" when there is none.
func (r RecognitionResult) Best() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// EventKind discriminates recognizer events.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// RecognitionEvent is emitted by a recognizer session. For results, only
// Results[ResultIndex:] changed since the previous event.
type RecognitionEvent struct {
	Kind        EventKind
	ResultIndex int
	Results     []RecognitionResult
	Err         error
}

// ResultEvent builds a result event carrying a single result.
func ResultEvent(text string, confidence float64, final bool) RecognitionEvent {
	return RecognitionEvent{
		Kind: EventResult,
		Results: []RecognitionResult{{
			Alternatives: []Alternative{{Transcript: text, Confidence: confidence}},
			Final:        final,
		}},
	}
}

// ErrorEvent wraps a recognizer failure.
func ErrorEvent(err error) RecognitionEvent {
	return RecognitionEvent{Kind: EventError, Err: err}
}

// EndEvent marks the end of a recognizer session.
func EndEvent() RecognitionEvent {
	return RecognitionEvent{Kind: EventEnd}
}
