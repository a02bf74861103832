package models

// Method identifies which strategy produced a transcript.
type Method string

const (
	MethodCaption    Method = "caption"
	MethodAICaption  Method = "ai_caption"
	MethodRecognized Method = "recognized"
)

// Utterance is a single timed span of spoken text. Immutable once built.
type Utterance struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the final product of one extraction. A new extraction
// produces a new Transcript; existing ones are never mutated.
type Transcript struct {
	BVID       string      `json:"bvid"`
	Title      string      `json:"title"`
	Duration   int         `json:"duration"`
	Method     Method      `json:"method"`
	Transcript string      `json:"transcript"`
	Utterances []Utterance `json:"utterances"`
}
