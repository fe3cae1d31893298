package queue

import "github.com/audioforge/ttsgate/internal/tts"

const (
	// TypeSynthesize renders one synthesis request in the background and
	// stores the result under its job id.
	TypeSynthesize = "tts:synthesize"
)

type SynthesizePayload struct {
	JobID    string      `json:"job_id"`
	Provider string      `json:"provider,omitempty"`
	Request  tts.Request `json:"request"`
}
