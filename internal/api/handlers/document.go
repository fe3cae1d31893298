package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/jobs"
	"github.com/audioforge/ttsgate/internal/queue"
	"github.com/audioforge/ttsgate/pkg/textextract"
)

type DocumentHandler struct {
	tts   *TTSHandler
	queue *queue.Client
	store *jobs.Store
	cfg   config.TTSConfig
}

func NewDocumentHandler(ttsH *TTSHandler, qc *queue.Client, store *jobs.Store, cfg config.TTSConfig) *DocumentHandler {
	return &DocumentHandler{
		tts:   ttsH,
		queue: qc,
		store: store,
		cfg:   cfg,
	}
}

// Speak extracts text from an uploaded document and synthesizes it.
// Voice, lang, speed, pitch, and format arrive as form fields. The
// response is audio, same as the text endpoint; an async=true field
// queues the work instead and returns a job id.
func (h *DocumentHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), ext)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error() + " (supported: " + strings.Join(textextract.SupportedTypes(), ", ") + ")",
		})
		return
	}
	if extracted.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document contains no extractable text"})
		return
	}

	body := synthesizeRequest{
		Text:   extracted.Content,
		Voice:  r.FormValue("voice"),
		Lang:   r.FormValue("lang"),
		Format: r.FormValue("format"),
	}
	if s := r.FormValue("speed"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid speed"})
			return
		}
		body.Speed = &f
	}
	if s := r.FormValue("pitch"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pitch"})
			return
		}
		body.Pitch = &f
	}

	req, msg := parseSynthesisBody(body, h.cfg.MaxTextLength)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	provider, err := h.tts.registry.Get(r.FormValue("provider"))
	if err != nil {
		writeTTSError(w, err)
		return
	}

	if async, _ := strconv.ParseBool(r.FormValue("async")); !async {
		h.tts.serveSynthesis(w, r, provider, req, "document")
		return
	}

	jobID := uuid.NewString()
	job, err := h.store.Create(r.Context(), jobID, provider.Name())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
		return
	}

	payload := queue.SynthesizePayload{
		JobID:    jobID,
		Provider: provider.Name(),
		Request:  req,
	}
	if err := h.queue.EnqueueDocumentSynthesize(payload); err != nil {
		h.store.Fail(r.Context(), jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"file":       header.Filename,
		"pages":      extracted.Pages,
		"text_chars": utf8.RuneCountInString(extracted.Content),
	})
}
