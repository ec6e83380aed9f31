package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/ingestion"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/parsing"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/rendering"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/sirupsen/logrus"
)

var uploadExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// RunResponse is a stored run with its artifacts keyed by step
type RunResponse struct {
	Run       *db.Run                    `json:"run"`
	Artifacts map[string]json.RawMessage `json:"artifacts"`
}

// handleTailor runs the pipeline and returns the result
func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req TailorRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	client, in, err := s.prepare(ctx, r, req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defer client.Close() //nolint:errcheck

	result, err := pipeline.Run(ctx, client, in, s.pipelineOptions(nil))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleTailorStream runs the pipeline and streams progress as SSE. Failures before the
// run starts are returned as plain JSON errors.
func (s *Server) handleTailorStream(w http.ResponseWriter, r *http.Request) {
	var req TailorRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	client, in, err := s.prepare(ctx, r, req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defer client.Close() //nolint:errcheck

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	onProgress := func(e pipeline.ProgressEvent) {
		if err := sse.WriteData(streamEventFrom(e)); err != nil {
			s.log.WithError(err).Debug("Failed to write progress event")
		}
	}

	_, err = pipeline.Run(ctx, client, in, s.pipelineOptions(onProgress))
	if errors.Is(err, context.DeadlineExceeded) {
		// the run was abandoned without a final event
		sse.WriteError(fmt.Errorf("tailoring timed out after %s: %w", s.cfg.Timeout(), err), pipeline.TotalSteps(in.Options)) //nolint:errcheck
	}
}

// handleTailorUpload tailors an uploaded CV file
func (s *Server) handleTailorUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.errorResponse(w, &RequestError{Message: "invalid multipart form", Details: []string{err.Error()}})
		return
	}

	cvText, err := s.readUpload(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	req := TailorRequest{
		JobDescription: r.FormValue("job_description"),
		JobURL:         r.FormValue("job_url"),
		OriginalCV:     cvText,
		Options: OptionsRequest{
			Strictness:   r.FormValue("strictness_level"),
			OutputFormat: r.FormValue("output_format"),
			UserNotes:    firstNonEmpty(r.FormValue("user_notes"), r.FormValue("user_instructions")),
		},
	}
	if v := r.FormValue("generate_cover_letter"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.errorResponse(w, &RequestError{Message: "invalid request", Details: []string{"generate_cover_letter: boolean"}})
			return
		}
		req.Options.GenerateCoverLetter = &b
	}
	if err := s.validate(&req); err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	client, in, err := s.prepare(ctx, r, req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defer client.Close() //nolint:errcheck

	result, err := pipeline.Run(ctx, client, in, s.pipelineOptions(nil))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// readUpload extracts text from the cv_file form field
func (s *Server) readUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("cv_file")
	if err != nil {
		return "", &RequestError{Message: "invalid request", Details: []string{"cv_file: required"}}
	}
	defer file.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(uploadExtensions, ext) {
		return "", &ingestion.UnsupportedTypeError{Filename: header.Filename, MimeType: header.Header.Get("Content-Type")}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", &RequestError{Message: "failed to read upload", Details: []string{err.Error()}}
	}
	return ingestion.ExtractText(data, header.Filename, header.Header.Get("Content-Type"))
}

// handleExtractJob returns structured job requirements
func (s *Server) handleExtractJob(w http.ResponseWriter, r *http.Request) {
	var req ExtractJobRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	text, err := s.resolveJob(ctx, req.JobDescription, req.JobURL)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	client, err := s.client(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defer client.Close() //nolint:errcheck

	reqs, err := parsing.ExtractJobRequirements(ctx, client, text, s.log.WithField("endpoint", "extract-job"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, reqs)
}

// handleExtractCV returns structured CV facts
func (s *Server) handleExtractCV(w http.ResponseWriter, r *http.Request) {
	var req ExtractCVRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	client, err := s.client(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defer client.Close() //nolint:errcheck

	facts, err := experience.ExtractCVFacts(ctx, client, req.CVText, s.log.WithField("endpoint", "extract-cv"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, facts)
}

// handleExport renders a finished result in the requested format
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	doc, err := rendering.Render(r.Context(), req.TailoredCV, req.CoverLetter, types.OutputFormat(r.PathValue("format")))
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	if doc.Pages > 0 {
		w.Header().Set("X-Page-Count", strconv.Itoa(doc.Pages))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		s.log.WithError(err).Warn("Error writing export")
	}
}

// handleGetRun returns a stored run with its artifacts
// maxListedRuns caps the limit query parameter of GET /api/runs
const maxListedRuns = 200

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]ErrorBody{"error": {Code: codeNotFound, Message: "run storage is not configured"}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListedRuns {
			s.errorResponse(w, &RequestError{Message: "invalid limit", Details: []string{fmt.Sprintf("limit must be between 1 and %d", maxListedRuns)}})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string][]db.Run{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]ErrorBody{"error": {Code: codeNotFound, Message: "run storage is not configured"}})
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, &RequestError{Message: "invalid run ID", Details: []string{err.Error()}})
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if run == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]ErrorBody{"error": {Code: codeNotFound, Message: "run not found"}})
		return
	}

	artifacts, err := s.store.ListArtifacts(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	resp := RunResponse{Run: run, Artifacts: make(map[string]json.RawMessage, len(artifacts))}
	for _, a := range artifacts {
		resp.Artifacts[a.Step] = a.Content
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// decode reads a JSON body into dst and validates it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &RequestError{Message: "invalid JSON body", Details: []string{err.Error()}}
	}
	return s.validate(dst)
}

func (s *Server) validate(dst any) error {
	if err := s.validator.Struct(dst); err != nil {
		return newValidationError(err)
	}
	switch req := dst.(type) {
	case *TailorRequest:
		return requireJob(req.JobDescription, req.JobURL)
	case *ExtractJobRequest:
		return requireJob(req.JobDescription, req.JobURL)
	}
	return nil
}

func requireJob(description, url string) error {
	if strings.TrimSpace(description) == "" && url == "" {
		return &RequestError{Message: "invalid request", Details: []string{"JobDescription: required_without=JobURL"}}
	}
	return nil
}

// prepare resolves the job text and builds the client for a tailoring request
func (s *Server) prepare(ctx context.Context, r *http.Request, req TailorRequest) (llm.Client, pipeline.Input, error) {
	jobText, err := s.resolveJob(ctx, req.JobDescription, req.JobURL)
	if err != nil {
		return nil, pipeline.Input{}, err
	}
	client, err := s.client(r)
	if err != nil {
		return nil, pipeline.Input{}, err
	}
	return client, pipeline.Input{
		JobDescription: jobText,
		OriginalCV:     req.OriginalCV,
		Options:        req.Options.tailorOptions(s.cfg.DefaultStrictness),
	}, nil
}

// resolveJob returns the description, or fetches it from url
func (s *Server) resolveJob(ctx context.Context, description, url string) (string, error) {
	if strings.TrimSpace(description) != "" {
		return description, nil
	}
	if s.fetcher == nil {
		return "", &RequestError{Message: "job_url is not supported by this server", Details: []string{"JobDescription: required"}}
	}
	if err := fetch.ValidateURL(url); err != nil {
		return "", &RequestError{Message: "invalid request", Details: []string{"JobURL: url"}}
	}

	text, meta, err := ingestion.IngestFromURL(ctx, s.fetcher, url)
	if err != nil {
		var fetchErr *fetch.Error
		if !errors.As(err, &fetchErr) {
			err = &fetch.Error{URL: url, Message: "no usable job posting text", Cause: err}
		}
		return "", err
	}
	s.log.WithFields(logrus.Fields{"url": url, "platform": meta.Platform, "characters": meta.Characters}).Info("Fetched job posting")
	return text, nil
}

// pipelineOptions wires the server's store and logger into a run
func (s *Server) pipelineOptions(onProgress pipeline.ProgressCallback) pipeline.Options {
	opts := pipeline.Options{Logger: s.log, OnProgress: onProgress}
	if s.store != nil {
		opts.Store = s.store
	}
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
