package resources

import "github.com/unimrcp-go/core/mrcp"

// Synthesizer method ids (RFC 6787 §8), in the same order as the method
// name table below — the id a request resolves to is just the name's index
// in that table (mrcp.MethodTable.IDOf).
const (
	SynthSetParams = iota
	SynthGetParams
	SynthSpeak
	SynthStop
	SynthPause
	SynthResume
	SynthBargeInOccurred
	SynthControl
	SynthDefineLexicon
)

var synthMethodNames = []string{
	SynthSetParams:       "SET-PARAMS",
	SynthGetParams:       "GET-PARAMS",
	SynthSpeak:           "SPEAK",
	SynthStop:            "STOP",
	SynthPause:           "PAUSE",
	SynthResume:          "RESUME",
	SynthBargeInOccurred: "BARGE-IN-OCCURRED",
	SynthControl:         "CONTROL",
	SynthDefineLexicon:   "DEFINE-LEXICON",
}

// Synthesizer event ids.
const (
	SynthSpeechMarker = iota
	SynthSpeakComplete
)

var synthEventNames = []string{
	SynthSpeechMarker:  "SPEECH-MARKER",
	SynthSpeakComplete: "SPEAK-COMPLETE",
}

// Synthesizer resource-specific header ids — a representative subset of RFC
// 6787 §8.3, covering the fields spec.md's scenarios and this package's
// state machine reference (Completion-Cause, Voice-*, barge-in control).
const (
	SynthHeaderJumpSize = iota + 1
	SynthHeaderKillOnBargeIn
	SynthHeaderSpeakerProfile
	SynthHeaderCompletionCause
	SynthHeaderCompletionReason
	SynthHeaderVoiceGender
	SynthHeaderVoiceAge
	SynthHeaderVoiceVariant
	SynthHeaderVoiceName
	SynthHeaderProsodyVolume
	SynthHeaderProsodyRate
	SynthHeaderSpeechLanguage
	SynthHeaderFetchHint
	SynthHeaderAudioFetchHint
	SynthHeaderFailedURI
	SynthHeaderFailedURICause
	SynthHeaderSpeakRestart
	SynthHeaderSpeakLength
	SynthHeaderLoadLexicon
)

var synthHeaderNames = map[int]string{
	SynthHeaderJumpSize:         "Jump-Size",
	SynthHeaderKillOnBargeIn:    "Kill-On-Barge-In",
	SynthHeaderSpeakerProfile:   "Speaker-Profile",
	SynthHeaderCompletionCause:  "Completion-Cause",
	SynthHeaderCompletionReason: "Completion-Reason",
	SynthHeaderVoiceGender:      "Voice-Gender",
	SynthHeaderVoiceAge:         "Voice-Age",
	SynthHeaderVoiceVariant:     "Voice-Variant",
	SynthHeaderVoiceName:        "Voice-Name",
	SynthHeaderProsodyVolume:    "Prosody-Volume",
	SynthHeaderProsodyRate:      "Prosody-Rate",
	SynthHeaderSpeechLanguage:   "Speech-Language",
	SynthHeaderFetchHint:        "Fetch-Hint",
	SynthHeaderAudioFetchHint:   "Audio-Fetch-Hint",
	SynthHeaderFailedURI:        "Failed-URI",
	SynthHeaderFailedURICause:   "Failed-URI-Cause",
	SynthHeaderSpeakRestart:     "Speak-Restart",
	SynthHeaderSpeakLength:      "Speak-Length",
	SynthHeaderLoadLexicon:      "Load-Lexicon",
}

var synthHeaderIDsByName = reverseNames(synthHeaderNames)

type synthHeaderVTable struct{}

func (synthHeaderVTable) Name() string { return "speechsynth" }

func (synthHeaderVTable) FieldID(version mrcp.Version, name string) (int, bool) {
	id, ok := synthHeaderIDsByName[lowerASCII(name)]
	return id, ok
}

func (synthHeaderVTable) FieldName(version mrcp.Version, id int) (string, bool) {
	name, ok := synthHeaderNames[id]
	return name, ok
}

// NewSynthesizerResource returns the speechsynth resource record ready for
// mrcp.Registry.Register.
func NewSynthesizerResource(id mrcp.ResourceID) *mrcp.Resource {
	return &mrcp.Resource{
		ID:      id,
		Name:    "speechsynth",
		Methods: mrcp.MethodTable{V2: synthMethodNames},
		Events:  mrcp.EventTable{V2: synthEventNames},
		Header:  synthHeaderVTable{},
	}
}
