// Package tts defines the synthesis provider contract and the providers
// shipped with the gateway: the deterministic mock generator, the Kokoro
// engine adapter, and the OpenAI speech client.
package tts

import "context"

// Supported output encodings. Only wav is produced today; mp3 stays in the
// enum so requests for it fail with ErrUnsupportedFormat instead of a
// validation error.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// Formats lists the encodings a request may name, in catalog order.
func Formats() []string {
	return []string{FormatWAV, FormatMP3}
}

// FormatInfo pairs an encoding id with the MIME type responses carry.
type FormatInfo struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// FormatCatalog is the client-facing view of Formats.
func FormatCatalog() []FormatInfo {
	return []FormatInfo{
		{ID: FormatWAV, MimeType: "audio/" + FormatWAV},
		{ID: FormatMP3, MimeType: "audio/" + FormatMP3},
	}
}

// Request carries one synthesis call. Zero values mean "use the default":
// empty Voice and Lang resolve per provider, Speed 0 means 1.0, empty
// Format means wav, nil Seed leaves deterministic providers on seed 0.
type Request struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Lang   string  `json:"lang,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Format string  `json:"format,omitempty"`
	Seed   *int64  `json:"seed,omitempty"`
}

// normalized fills contract defaults so providers never see ambiguous
// zero values for speed or format.
func (r Request) normalized() Request {
	if r.Speed == 0 {
		r.Speed = 1.0
	}
	if r.Format == "" {
		r.Format = FormatWAV
	}
	return r
}

// Result is a finished synthesis: encoded audio plus the parameters the
// provider actually used, which may differ from the request after voice
// fallback and language normalization.
type Result struct {
	Audio       []byte
	ContentType string
	Voice       string
	Lang        string
	SampleRate  int
}

// Provider synthesizes speech audio from text. Implementations must be
// safe for concurrent use.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// VoiceLister is implemented by providers that can enumerate their voices.
type VoiceLister interface {
	Voices(ctx context.Context) ([]string, error)
}
