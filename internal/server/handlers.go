package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/pipeline"
)

// ProcessResponse reports one record's processing run.
type ProcessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
}

// BatchResponse reports a batch processing run.
type BatchResponse struct {
	Status     string                  `json:"status"`
	Message    string                  `json:"message"`
	Processed  int                     `json:"processed"`
	Successful int                     `json:"successful"`
	Results    []pipeline.RecordResult `json:"results"`
}

// WebhookPayload is the body a record-store webhook posts at submission time.
type WebhookPayload struct {
	AssessmentID string `json:"assessment_id" validate:"required,uuid"`
}

// handleProcessPending runs the pipeline for all assessments awaiting analysis.
func (s *Server) handleProcessPending(w http.ResponseWriter, r *http.Request) {
	summary, err := s.processor.ProcessPending(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to process pending assessments: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, BatchResponse{
		Status:     "success",
		Message:    fmt.Sprintf("%d assessments processed, %d successful", summary.Processed, summary.Successful),
		Processed:  summary.Processed,
		Successful: summary.Successful,
		Results:    summary.Results,
	})
}

// handleProcessLatest runs the pipeline for the most recent assessment.
func (s *Server) handleProcessLatest(w http.ResponseWriter, r *http.Request) {
	res, latest, err := s.processor.ProcessLatest(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to process latest assessment: "+err.Error())
		return
	}
	if latest == nil {
		s.errorResponse(w, http.StatusNotFound, "No assessments found")
		return
	}

	s.writeResult(w, res, ProcessResponse{
		ID:      latest.ID.String(),
		Company: latest.CompanyName,
		Email:   latest.Email,
	})
}

// handleProcessByID runs the pipeline for one assessment.
func (s *Server) handleProcessByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid assessment ID format")
		return
	}

	s.writeResult(w, s.processor.ProcessOne(r.Context(), id), ProcessResponse{ID: id.String()})
}

// handleWebhook is the synchronous low-latency trigger fired by the record
// store at submission time. It races the poller; whichever runs first wins
// and the loser sees an already-complete record.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&payload); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid webhook payload: "+err.Error())
		return
	}

	id, err := uuid.Parse(payload.AssessmentID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid assessment ID format")
		return
	}

	s.writeResult(w, s.processor.ProcessOne(r.Context(), id), ProcessResponse{ID: id.String()})
}

// writeResult maps a pipeline result onto an HTTP response.
func (s *Server) writeResult(w http.ResponseWriter, res pipeline.Result, resp ProcessResponse) {
	switch res.Outcome {
	case pipeline.Succeeded:
		resp.Status = "success"
		if res.DeliveryPending {
			resp.Message = "Assessment processed, email delivery pending"
		} else {
			resp.Message = "Assessment processed and report delivered"
		}
		s.jsonResponse(w, http.StatusOK, resp)
	case pipeline.AlreadyComplete:
		resp.Status = "success"
		resp.Message = "Assessment already processed"
		s.jsonResponse(w, http.StatusOK, resp)
	case pipeline.NotFound:
		s.errorResponse(w, http.StatusNotFound, "Assessment not found")
	default:
		if errors.Is(res.Err, pipeline.ErrLeaseHeld) {
			s.errorResponse(w, http.StatusConflict, "Assessment is already being processed")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Processing failed at stage %q: %v", res.Stage, res.Err))
	}
}

func (s *Server) handleProcessorStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.lifecycle.Status())
}

func (s *Server) handleProcessorStart(w http.ResponseWriter, _ *http.Request) {
	// The poller outlives the request, so it runs on the background context.
	started := s.lifecycle.Start(context.Background())
	message := "Poller started"
	if !started {
		message = "Poller already running"
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": message,
		"started": started,
	})
}

func (s *Server) handleProcessorStop(w http.ResponseWriter, _ *http.Request) {
	stopped := s.lifecycle.Stop()
	message := "Poller stopping"
	if !stopped {
		message = "Poller not running"
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": message,
		"stopped": stopped,
	})
}
