package resources

import "github.com/unimrcp-go/core/mrcp"

// Recognizer method ids (RFC 6787 §9), in method-name-table order.
const (
	RecogSetParams = iota
	RecogGetParams
	RecogDefineGrammar
	RecogRecognize
	RecogInterpret
	RecogGetResult
	RecogStartPhraseEnrollment
	RecogEnrollmentRollback
	RecogEndPhraseEnrollment
	RecogModifyPhrase
	RecogDeletePhrase
	RecogStop
)

var recogMethodNames = []string{
	RecogSetParams:             "SET-PARAMS",
	RecogGetParams:             "GET-PARAMS",
	RecogDefineGrammar:         "DEFINE-GRAMMAR",
	RecogRecognize:             "RECOGNIZE",
	RecogInterpret:             "INTERPRET",
	RecogGetResult:             "GET-RESULT",
	RecogStartPhraseEnrollment: "START-PHRASE-ENROLLMENT",
	RecogEnrollmentRollback:    "ENROLLMENT-ROLLBACK",
	RecogEndPhraseEnrollment:   "END-PHRASE-ENROLLMENT",
	RecogModifyPhrase:          "MODIFY-PHRASE",
	RecogDeletePhrase:          "DELETE-PHRASE",
	RecogStop:                  "STOP",
}

// Recognizer event ids.
const (
	RecogStartOfInput = iota
	RecogRecognitionComplete
	RecogInterpretationComplete
)

var recogEventNames = []string{
	RecogStartOfInput:           "START-OF-INPUT",
	RecogRecognitionComplete:    "RECOGNITION-COMPLETE",
	RecogInterpretationComplete: "INTERPRETATION-COMPLETE",
}

// Recognizer resource-specific header ids — the subset spec.md's Scenario D
// and this package's state machine reference directly (Confidence-Threshold
// is named explicitly in spec.md as an example resource-specific field).
const (
	RecogHeaderConfidenceThreshold = iota + 1
	RecogHeaderSensitivityLevel
	RecogHeaderSpeedVsAccuracy
	RecogHeaderNBestListLength
	RecogHeaderNoInputTimeout
	RecogHeaderRecognitionTimeout
	RecogHeaderWaveformURI
	RecogHeaderCompletionCause
	RecogHeaderRecognizerContextBlock
	RecogHeaderStartInputTimers
	RecogHeaderSpeechCompleteTimeout
	RecogHeaderSpeechIncompleteTimeout
	RecogHeaderDTMFInterdigitTimeout
	RecogHeaderDTMFTermTimeout
	RecogHeaderDTMFTermChar
	RecogHeaderFailedURI
	RecogHeaderFailedURICause
	RecogHeaderSaveWaveform
	RecogHeaderSpeechLanguage
	RecogHeaderInputType
	RecogHeaderCompletionReason
	RecogHeaderClearDTMFBuffer
)

var recogHeaderNames = map[int]string{
	RecogHeaderConfidenceThreshold:     "Confidence-Threshold",
	RecogHeaderSensitivityLevel:        "Sensitivity-Level",
	RecogHeaderSpeedVsAccuracy:         "Speed-Vs-Accuracy",
	RecogHeaderNBestListLength:         "N-Best-List-Length",
	RecogHeaderNoInputTimeout:          "No-Input-Timeout",
	RecogHeaderRecognitionTimeout:      "Recognition-Timeout",
	RecogHeaderWaveformURI:             "Waveform-URI",
	RecogHeaderCompletionCause:         "Completion-Cause",
	RecogHeaderRecognizerContextBlock:  "Recognizer-Context-Block",
	RecogHeaderStartInputTimers:        "Start-Input-Timers",
	RecogHeaderSpeechCompleteTimeout:   "Speech-Complete-Timeout",
	RecogHeaderSpeechIncompleteTimeout: "Speech-Incomplete-Timeout",
	RecogHeaderDTMFInterdigitTimeout:   "DTMF-Interdigit-Timeout",
	RecogHeaderDTMFTermTimeout:         "DTMF-Term-Timeout",
	RecogHeaderDTMFTermChar:            "DTMF-Term-Char",
	RecogHeaderFailedURI:               "Failed-URI",
	RecogHeaderFailedURICause:          "Failed-URI-Cause",
	RecogHeaderSaveWaveform:            "Save-Waveform",
	RecogHeaderSpeechLanguage:          "Speech-Language",
	RecogHeaderInputType:               "Input-Type",
	RecogHeaderCompletionReason:        "Completion-Reason",
	RecogHeaderClearDTMFBuffer:         "Clear-DTMF-Buffer",
}

var recogHeaderIDsByName = reverseNames(recogHeaderNames)

type recogHeaderVTable struct{}

func (recogHeaderVTable) Name() string { return "speechrecog" }

func (recogHeaderVTable) FieldID(version mrcp.Version, name string) (int, bool) {
	id, ok := recogHeaderIDsByName[lowerASCII(name)]
	return id, ok
}

func (recogHeaderVTable) FieldName(version mrcp.Version, id int) (string, bool) {
	name, ok := recogHeaderNames[id]
	return name, ok
}

// NewRecognizerResource returns the speechrecog resource record ready for
// mrcp.Registry.Register.
func NewRecognizerResource(id mrcp.ResourceID) *mrcp.Resource {
	return &mrcp.Resource{
		ID:      id,
		Name:    "speechrecog",
		Methods: mrcp.MethodTable{V2: recogMethodNames},
		Events:  mrcp.EventTable{V2: recogEventNames},
		Header:  recogHeaderVTable{},
	}
}
