package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/jobs"
	"github.com/audioforge/ttsgate/internal/queue"
	"github.com/audioforge/ttsgate/internal/tts"
)

type JobsHandler struct {
	registry *tts.Registry
	queue    *queue.Client
	store    *jobs.Store
	cfg      config.TTSConfig
}

func NewJobsHandler(registry *tts.Registry, qc *queue.Client, store *jobs.Store, cfg config.TTSConfig) *JobsHandler {
	return &JobsHandler{
		registry: registry,
		queue:    qc,
		store:    store,
		cfg:      cfg,
	}
}

// Create validates the request, parks job state, and enqueues synthesis.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req, msg := parseSynthesisBody(body, h.cfg.MaxTextLength)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	provider, err := h.registry.Get(r.URL.Query().Get("provider"))
	if err != nil {
		writeTTSError(w, err)
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
	if err := h.queue.EnqueueSynthesize(payload); err != nil {
		h.store.Fail(r.Context(), jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// Get reports job status without the audio payload.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	job.Audio = nil
	writeJSON(w, http.StatusOK, job)
}

// Audio streams the finished result.
func (h *JobsHandler) Audio(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "job has no audio yet",
			"status": job.Status,
		})
		return
	}

	w.Header().Set("Content-Type", job.ContentType)
	w.Header().Set("X-TTS-Provider", job.Provider)
	w.Header().Set("X-TTS-Voice", job.Voice)
	w.Header().Set("X-TTS-Language", job.Lang)
	w.WriteHeader(http.StatusOK)
	w.Write(job.Audio)
}

// Delete drops job state and any stored audio.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete job"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JobsHandler) lookup(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	job, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return nil, false
	}
	return job, true
}
