package intake

import "strings"

// Stage is a state of one extraction request.
type Stage string

const (
	StageReceived        Stage = "received"
	StageFormatDetected  Stage = "format_detected"
	StageTextExtracted   Stage = "text_extracted"
	StageOCRAttempted    Stage = "ocr_attempted"
	StageFieldsExtracted Stage = "fields_extracted"
	StageDateNormalized  Stage = "date_normalized"
	StageDone            Stage = "done"
	StageRejected        Stage = "rejected"
)

// Step is one recorded transition. Detail qualifies the stage, e.g. the text
// source for StageTextExtracted or the reason for StageRejected.
type Step struct {
	Stage  Stage
	Detail string
}

// Trace is the ordered list of stages a request went through.
type Trace []Step

func (t *Trace) add(stage Stage, detail string) {
	*t = append(*t, Step{Stage: stage, Detail: detail})
}

// Has reports whether the request reached stage.
func (t Trace) Has(stage Stage) bool {
	for _, s := range t {
		if s.Stage == stage {
			return true
		}
	}
	return false
}

// Last returns the final step, or the zero Step for an empty trace.
func (t Trace) Last() Step {
	if len(t) == 0 {
		return Step{}
	}
	return t[len(t)-1]
}

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		if s.Detail != "" {
			parts[i] = string(s.Stage) + "(" + s.Detail + ")"
		} else {
			parts[i] = string(s.Stage)
		}
	}
	return strings.Join(parts, " -> ")
}
