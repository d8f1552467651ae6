package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/swaggo/swag"

	// registers the OpenAPI document read by handleSwagger
	_ "github.com/custodia-labs/sercha-rag/docs"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// queryFailedMessage hides provider details from callers.
const queryFailedMessage = "An error occurred processing your query. Please try again."

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports each dependency checked by /ready
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// QueryRequest is the body of POST /query
// @Description Question to answer from approved documents
type QueryRequest struct {
	Question   string `json:"question" example:"What is the travel reimbursement limit?"`
	Department string `json:"department,omitempty" example:"finance"`
	// Scope "owned" restricts retrieval to the caller's own documents
	Scope string `json:"scope,omitempty" example:"owned"`
}

// QueryResponse is the answer to a question
// @Description Answer with citations
type QueryResponse struct {
	ID              string                 `json:"id"`
	Answer          string                 `json:"answer"`
	Citations       []domain.Citation      `json:"citations"`
	TokensUsed      int                    `json:"tokens_used"`
	LatencyMs       int64                  `json:"response_time_ms"`
	Success         bool                   `json:"success"`
	ChunksRetrieved int                    `json:"num_chunks_retrieved"`
	AvgSimilarity   float64                `json:"avg_similarity_score"`
	SimilarityStats domain.SimilarityStats `json:"similarity_stats"`
	Message         string                 `json:"message,omitempty"`
}

// ApprovalRequest is the body of PUT /documents/{id}/approval
// @Description New approval state
type ApprovalRequest struct {
	State domain.ApprovalState `json:"state" example:"APPROVED"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database, index, queue and lock, and reports whether the AI providers passed their startup check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for name, check := range s.checks {
		if check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
		err := check.Ping(ctx)
		cancel()

		if err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Query endpoints

// handleQuery godoc
// @Summary      Ask a question
// @Description  Answers from approved documents visible to the caller. When nothing clears the similarity threshold a canned answer is stored and returned with a message.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      QueryRequest  true  "Question"
// @Success      200      {object}  QueryResponse
// @Failure      400      {object}  ErrorResponse  "Missing question or unknown scope"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Query failed"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	scope := caller.Scope()
	switch req.Scope {
	case "":
	case string(domain.ScopeOwned):
		scope.Kind = domain.ScopeOwned
	default:
		writeError(w, http.StatusBadRequest, "unknown scope")
		return
	}

	result, err := s.queryService.Answer(r.Context(), domain.QueryRequest{
		Question:   req.Question,
		Department: req.Department,
		Scope:      scope,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "question is required")
		default:
			s.logger.Error("query failed", "user_id", caller.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, queryFailedMessage)
		}
		return
	}

	rec := result.Record
	writeJSON(w, http.StatusOK, QueryResponse{
		ID:              rec.ID,
		Answer:          rec.Answer,
		Citations:       rec.Citations,
		TokensUsed:      rec.TokensUsed,
		LatencyMs:       rec.LatencyMs,
		Success:         rec.Success,
		ChunksRetrieved: rec.ChunksRetrieved,
		AvgSimilarity:   rec.AvgSimilarity,
		SimilarityStats: result.Stats,
		Message:         result.Message,
	})
}

// handleGetQuery godoc
// @Summary      Get a stored query
// @Description  Returns a query record to the user who asked it or an admin
// @Tags         Query
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Query ID"
// @Success      200  {object}  domain.QueryRecord
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Not the asker"
// @Failure      404  {object}  ErrorResponse  "Query not found"
// @Router       /queries/{id} [get]
func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	rec, err := s.queryService.Get(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "query")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleQueryHistory godoc
// @Summary      List my queries
// @Description  Lists the caller's own questions, newest first. Citations are omitted; fetch a query by ID for them.
// @Tags         Query
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Substring of the question or answer"
// @Param        limit   query     int     false  "Page size (default 50, max 200)"
// @Param        offset  query     int     false  "Rows to skip"
// @Success      200     {array}   domain.QueryRecord
// @Failure      400     {object}  ErrorResponse  "Invalid paging"
// @Failure      401     {object}  ErrorResponse  "Unauthorized"
// @Router       /queries [get]
func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	records, err := s.queryService.History(r.Context(), caller, driving.QueryHistoryRequest{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.writeServiceError(w, err, "query")
		return
	}
	if records == nil {
		records = []*domain.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSubmitFeedback godoc
// @Summary      Rate an answer
// @Description  Stores the caller's feedback on a query they asked. Each user rates a query once.
// @Tags         Feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Query ID"
// @Param        request  body      driving.SubmitFeedbackRequest  true  "Feedback"
// @Success      201      {object}  domain.QueryFeedback
// @Failure      400      {object}  ErrorResponse  "Unknown type, rating out of range or text too long"
// @Failure      403      {object}  ErrorResponse  "Not the asker"
// @Failure      404      {object}  ErrorResponse  "Query not found"
// @Failure      409      {object}  ErrorResponse  "Feedback already submitted"
// @Router       /queries/{id}/feedback [post]
func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req driving.SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.QueryID = r.PathValue("id")

	fb, err := s.feedbackService.Submit(r.Context(), caller, req)
	if err != nil {
		s.writeServiceError(w, err, "query")
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// Feedback review endpoints

// handleListFeedback godoc
// @Summary      List feedback
// @Description  Lists answer feedback for review, newest first (admin only)
// @Tags         Feedback
// @Produce      json
// @Security     BearerAuth
// @Param        feedback_type  query     string  false  "HELPFUL, NOT_HELPFUL, HALLUCINATION, MISSING_INFO or WRONG_SOURCE"
// @Param        is_reviewed    query     bool    false  "Filter by review status"
// @Param        limit          query     int     false  "Page size (default 50, max 200)"
// @Param        offset         query     int     false  "Rows to skip"
// @Success      200            {array}   domain.QueryFeedback
// @Failure      400            {object}  ErrorResponse  "Invalid filter"
// @Failure      403            {object}  ErrorResponse  "Admins only"
// @Router       /feedback [get]
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	req := driving.ListFeedbackRequest{
		Type:   domain.FeedbackType(r.URL.Query().Get("feedback_type")),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("is_reviewed"); v != "" {
		reviewed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_reviewed must be true or false")
			return
		}
		req.Reviewed = &reviewed
	}

	items, err := s.feedbackService.List(r.Context(), caller, req)
	if err != nil {
		s.writeServiceError(w, err, "feedback")
		return
	}
	if items == nil {
		items = []*domain.QueryFeedback{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleReviewFeedback godoc
// @Summary      Mark feedback reviewed
// @Tags         Feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback ID"
// @Success      200  {object}  domain.QueryFeedback
// @Failure      403  {object}  ErrorResponse  "Admins only"
// @Failure      404  {object}  ErrorResponse  "Feedback not found"
// @Router       /feedback/{id}/review [post]
func (s *Server) handleReviewFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	fb, err := s.feedbackService.Review(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "feedback")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// Document endpoints

// handleListDocuments godoc
// @Summary      List documents
// @Description  Lists the caller's own documents and every approved one, newest first. Admins see all documents.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "DRAFT, APPROVED or ARCHIVED"
// @Param        owner       query     string  false  "Owner user ID"
// @Param        department  query     string  false  "Department (case-insensitive)"
// @Param        search      query     string  false  "Substring of the title or description"
// @Param        limit       query     int     false  "Page size (default 50, max 200)"
// @Param        offset      query     int     false  "Rows to skip"
// @Success      200         {array}   domain.SourceDocument
// @Failure      400         {object}  ErrorResponse  "Unknown status or invalid paging"
// @Failure      401         {object}  ErrorResponse  "Unauthorized"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	docs, err := s.docService.List(r.Context(), caller, driving.ListDocumentsRequest{
		ApprovalState: domain.ApprovalState(strings.ToUpper(q.Get("status"))),
		OwnerID:       q.Get("owner"),
		Department:    q.Get("department"),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	if docs == nil {
		docs = []*domain.SourceDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleCreateDocument godoc
// @Summary      Create a document
// @Description  Creates a DRAFT document owned by the caller
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateDocumentRequest  true  "Document"
// @Success      201      {object}  domain.SourceDocument
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Viewers cannot upload"
// @Router       /documents [post]
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req driving.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := s.docService.Create(r.Context(), caller, req)
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// handleGetDocument godoc
// @Summary      Get a document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.SourceDocument
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	doc, err := s.docService.Get(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleSetApproval godoc
// @Summary      Set approval state
// @Description  Moves a document between DRAFT, APPROVED and ARCHIVED. Only approved documents are searchable.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Document ID"
// @Param        request  body      ApprovalRequest  true  "New state"
// @Success      200      {object}  domain.SourceDocument
// @Failure      400      {object}  ErrorResponse  "Unknown state"
// @Failure      403      {object}  ErrorResponse  "Not the owner or an admin"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/approval [put]
func (s *Server) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := s.docService.SetApproval(r.Context(), caller, r.PathValue("id"), req.State)
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleListRevisions godoc
// @Summary      List revisions
// @Description  Lists a document's revisions, newest first
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {array}   domain.DocumentRevision
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/revisions [get]
func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	revs, err := s.docService.ListRevisions(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	if revs == nil {
		revs = []*domain.DocumentRevision{}
	}
	writeJSON(w, http.StatusOK, revs)
}

// handleUploadRevision godoc
// @Summary      Upload a revision
// @Description  Stores a new file version and schedules its ingestion. Poll the returned revision for READY or FAILED.
// @Tags         Documents
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true  "Document ID"
// @Param        file       formData  file    true  "Document file"
// @Param        file_type  formData  string  false "txt, md, html, docx or pdf (defaults to the file extension)"
// @Success      202        {object}  domain.DocumentRevision
// @Failure      400        {object}  ErrorResponse  "Missing or empty file"
// @Failure      403        {object}  ErrorResponse  "Not the owner or an admin"
// @Failure      404        {object}  ErrorResponse  "Document not found"
// @Failure      413        {object}  ErrorResponse  "File too large"
// @Failure      415        {object}  ErrorResponse  "Unsupported file type"
// @Router       /documents/{id}/revisions [post]
func (s *Server) handleUploadRevision(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	// leave room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(content)) > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	declared := r.FormValue("file_type")
	if declared == "" {
		declared = fileExtension(header.Filename)
	}
	fileType, err := domain.ParseFileType(declared)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
		return
	}

	rev, err := s.docService.Upload(r.Context(), caller, driving.UploadRevisionRequest{
		DocumentID: r.PathValue("id"),
		FileType:   fileType,
		FileName:   header.Filename,
		Content:    content,
	})
	if err != nil {
		s.writeServiceError(w, err, "document")
		return
	}
	writeJSON(w, http.StatusAccepted, rev)
}

// Revision endpoints

// handleGetRevision godoc
// @Summary      Get a revision
// @Description  Returns the processing state of a revision
// @Tags         Revisions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Revision ID"
// @Success      200  {object}  domain.DocumentRevision
// @Failure      404  {object}  ErrorResponse  "Revision not found"
// @Router       /revisions/{id} [get]
func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	rev, err := s.docService.GetRevision(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "revision")
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// handleListChunks godoc
// @Summary      List chunks
// @Description  Returns the searchable chunks of a revision in document order
// @Tags         Revisions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Revision ID"
// @Success      200  {array}   domain.Chunk
// @Failure      404  {object}  ErrorResponse  "Revision not found"
// @Router       /revisions/{id}/chunks [get]
func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	chunks, err := s.docService.ListChunks(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "revision")
		return
	}
	if chunks == nil {
		chunks = []*domain.Chunk{}
	}
	writeJSON(w, http.StatusOK, chunks)
}

// handleReprocess godoc
// @Summary      Reprocess a revision
// @Description  Schedules another ingestion attempt for a FAILED revision
// @Tags         Revisions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Revision ID"
// @Success      202  {object}  domain.DocumentRevision
// @Failure      403  {object}  ErrorResponse  "Not the owner or an admin"
// @Failure      404  {object}  ErrorResponse  "Revision not found"
// @Failure      409  {object}  ErrorResponse  "Revision is not FAILED"
// @Router       /revisions/{id}/reprocess [post]
func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	rev, err := s.docService.Reprocess(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "revision")
		return
	}
	writeJSON(w, http.StatusAccepted, rev)
}

// Helper functions

// writeServiceError maps domain errors to status codes. resource names the
// entity in not-found messages.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "resource", resource, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pageParams reads limit and offset from the query string and answers 400
// when either is not a non-negative integer.
func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, p.name+" must be a non-negative integer")
			return 0, 0, false
		}
		*p.dst = n
	}
	return limit, offset, true
}

func fileExtension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// principal returns the caller stored by Authenticator.Require and answers
// 401 when there is none.
func principal(w http.ResponseWriter, r *http.Request) (*domain.AuthContext, bool) {
	p := Principal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return p, p != nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
