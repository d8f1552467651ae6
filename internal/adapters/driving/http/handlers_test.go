package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Mock services for testing

var testPrincipals = map[string]*domain.AuthContext{
	"admin-token":  {UserID: "admin-1", Role: domain.RoleAdmin},
	"member-token": {UserID: "member-1", Role: domain.RoleMember, Department: "finance"},
	"viewer-token": {UserID: "viewer-1", Role: domain.RoleViewer},
}

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	if p, ok := testPrincipals[token]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) IssueToken(ctx context.Context, principal domain.AuthContext, ttl time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

type mockDocumentService struct {
	createFn        func(ctx context.Context, p *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.SourceDocument, error)
	getFn           func(ctx context.Context, p *domain.AuthContext, id string) (*domain.SourceDocument, error)
	setApprovalFn   func(ctx context.Context, p *domain.AuthContext, id string, state domain.ApprovalState) (*domain.SourceDocument, error)
	uploadFn        func(ctx context.Context, p *domain.AuthContext, req driving.UploadRevisionRequest) (*domain.DocumentRevision, error)
	getRevisionFn   func(ctx context.Context, p *domain.AuthContext, id string) (*domain.DocumentRevision, error)
	listRevisionsFn func(ctx context.Context, p *domain.AuthContext, documentID string) ([]*domain.DocumentRevision, error)
	reprocessFn     func(ctx context.Context, p *domain.AuthContext, revisionID string) (*domain.DocumentRevision, error)
	listFn          func(ctx context.Context, p *domain.AuthContext, req driving.ListDocumentsRequest) ([]*domain.SourceDocument, error)
	listChunksFn    func(ctx context.Context, p *domain.AuthContext, revisionID string) ([]*domain.Chunk, error)
}

func (m *mockDocumentService) List(ctx context.Context, p *domain.AuthContext, req driving.ListDocumentsRequest) ([]*domain.SourceDocument, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ListChunks(ctx context.Context, p *domain.AuthContext, revisionID string) ([]*domain.Chunk, error) {
	if m.listChunksFn != nil {
		return m.listChunksFn(ctx, p, revisionID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Create(ctx context.Context, p *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.SourceDocument, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, p *domain.AuthContext, id string) (*domain.SourceDocument, error) {
	if m.getFn != nil {
		return m.getFn(ctx, p, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) SetApproval(ctx context.Context, p *domain.AuthContext, id string, state domain.ApprovalState) (*domain.SourceDocument, error) {
	if m.setApprovalFn != nil {
		return m.setApprovalFn(ctx, p, id, state)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Upload(ctx context.Context, p *domain.AuthContext, req driving.UploadRevisionRequest) (*domain.DocumentRevision, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) GetRevision(ctx context.Context, p *domain.AuthContext, id string) (*domain.DocumentRevision, error) {
	if m.getRevisionFn != nil {
		return m.getRevisionFn(ctx, p, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ListRevisions(ctx context.Context, p *domain.AuthContext, documentID string) ([]*domain.DocumentRevision, error) {
	if m.listRevisionsFn != nil {
		return m.listRevisionsFn(ctx, p, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Reprocess(ctx context.Context, p *domain.AuthContext, revisionID string) (*domain.DocumentRevision, error) {
	if m.reprocessFn != nil {
		return m.reprocessFn(ctx, p, revisionID)
	}
	return nil, errors.New("not implemented")
}

type mockQueryService struct {
	answerFn  func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
	getFn     func(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryRecord, error)
	historyFn func(ctx context.Context, p *domain.AuthContext, req driving.QueryHistoryRequest) ([]*domain.QueryRecord, error)
}

func (m *mockQueryService) History(ctx context.Context, p *domain.AuthContext, req driving.QueryHistoryRequest) ([]*domain.QueryRecord, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQueryService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQueryService) Get(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, p, id)
	}
	return nil, errors.New("not implemented")
}

type mockFeedbackService struct {
	submitFn func(ctx context.Context, p *domain.AuthContext, req driving.SubmitFeedbackRequest) (*domain.QueryFeedback, error)
	listFn   func(ctx context.Context, p *domain.AuthContext, req driving.ListFeedbackRequest) ([]*domain.QueryFeedback, error)
	reviewFn func(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryFeedback, error)
}

func (m *mockFeedbackService) Submit(ctx context.Context, p *domain.AuthContext, req driving.SubmitFeedbackRequest) (*domain.QueryFeedback, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) List(ctx context.Context, p *domain.AuthContext, req driving.ListFeedbackRequest) ([]*domain.QueryFeedback, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) Review(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryFeedback, error) {
	if m.reviewFn != nil {
		return m.reviewFn(ctx, p, id)
	}
	return nil, errors.New("not implemented")
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

// Test helpers

func newTestServer(docs *mockDocumentService, queries *mockQueryService, checks map[string]Pinger) *Server {
	return newTestServerWithFeedback(docs, queries, nil, checks)
}

func newTestServerWithFeedback(docs *mockDocumentService, queries *mockQueryService, feedback *mockFeedbackService, checks map[string]Pinger) *Server {
	if docs == nil {
		docs = &mockDocumentService{}
	}
	if queries == nil {
		queries = &mockQueryService{}
	}
	if feedback == nil {
		feedback = &mockFeedbackService{}
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.MaxUploadBytes = 1024
	return NewServer(cfg, Services{
		Auth:     &mockAuthService{},
		Document: docs,
		Query:    queries,
		Feedback: feedback,
	}, checks)
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func uploadRequest(t *testing.T, s *Server, path, token, fileName string, content []byte, fileType string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(content)
	}
	if fileType != "" {
		_ = mw.WriteField("file_type", fileType)
	}
	_ = mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// Health endpoints

func TestHandleHealthAndVersion(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rr := doRequest(t, s, "GET", "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	rr = doRequest(t, s, "GET", "/version", "", nil)
	var v VersionResponse
	_ = json.NewDecoder(rr.Body).Decode(&v)
	if v.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", v.Version)
	}
}

func TestHandleReady(t *testing.T) {
	s := newTestServer(nil, nil, map[string]Pinger{
		"database": mockPinger{},
		"queue":    mockPinger{},
	})
	rr := doRequest(t, s, "GET", "/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	s = newTestServer(nil, nil, map[string]Pinger{
		"database":  mockPinger{},
		"embedding": mockPinger{err: errors.New("connection refused")},
	})
	rr = doRequest(t, s, "GET", "/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	var resp ReadyResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Checks["embedding"] != "unavailable" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected checks: %v", resp.Checks)
	}
}

func TestHandleSwagger(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rr := doRequest(t, s, "GET", "/swagger/doc.json", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("expected valid JSON document: %v", err)
	}
	if doc["swagger"] != "2.0" {
		t.Errorf("expected swagger 2.0, got %v", doc["swagger"])
	}
}

// Query endpoints

func TestHandleQuery_Success(t *testing.T) {
	var got domain.QueryRequest
	queries := &mockQueryService{
		answerFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
			got = req
			return &domain.QueryResult{Record: &domain.QueryRecord{
				ID:              "q-1",
				Answer:          "The limit is 50 EUR [Source 1].",
				TokensUsed:      42,
				Success:         true,
				ChunksRetrieved: 1,
				AvgSimilarity:   0.91,
				Citations: []domain.Citation{
					{ChunkID: "c-1", DocumentTitle: "Travel policy", Score: 0.91, Rank: 1},
				},
			}, Stats: domain.SimilarityStats{Count: 1, Avg: 0.91, Min: 0.91, Max: 0.91}}, nil
		},
	}
	s := newTestServer(nil, queries, nil)

	rr := doRequest(t, s, "POST", "/api/v1/query", "member-token",
		QueryRequest{Question: "What is the limit?", Department: "finance"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if got.Scope.Kind != domain.ScopeApproved || got.Scope.UserID != "member-1" {
		t.Errorf("unexpected scope: %+v", got.Scope)
	}
	if got.Department != "finance" {
		t.Errorf("expected department finance, got %q", got.Department)
	}

	var resp QueryResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ID != "q-1" || !resp.Success || resp.TokensUsed != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Rank != 1 {
		t.Errorf("unexpected citations: %+v", resp.Citations)
	}
	want := domain.SimilarityStats{Count: 1, Avg: 0.91, Min: 0.91, Max: 0.91}
	if resp.SimilarityStats != want {
		t.Errorf("expected similarity stats %+v, got %+v", want, resp.SimilarityStats)
	}
}

func TestHandleQuery_Scopes(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		scope    string
		wantKind domain.ScopeKind
		wantCode int
	}{
		{name: "admin sees all", token: "admin-token", wantKind: domain.ScopeAll, wantCode: http.StatusOK},
		{name: "viewer sees approved", token: "viewer-token", wantKind: domain.ScopeApproved, wantCode: http.StatusOK},
		{name: "owned narrows", token: "member-token", scope: "owned", wantKind: domain.ScopeOwned, wantCode: http.StatusOK},
		{name: "unknown scope", token: "member-token", scope: "everything", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.QueryRequest
			queries := &mockQueryService{
				answerFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
					got = req
					return &domain.QueryResult{Record: &domain.QueryRecord{ID: "q"}}, nil
				},
			}
			s := newTestServer(nil, queries, nil)

			rr := doRequest(t, s, "POST", "/api/v1/query", tt.token, QueryRequest{Question: "q?", Scope: tt.scope})
			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantCode == http.StatusOK && got.Scope.Kind != tt.wantKind {
				t.Errorf("expected scope %s, got %s", tt.wantKind, got.Scope.Kind)
			}
		})
	}
}

func TestHandleQuery_NoResults(t *testing.T) {
	queries := &mockQueryService{
		answerFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
			return &domain.QueryResult{
				Record:  &domain.QueryRecord{ID: "q-2", Answer: domain.NoAnswerText, Citations: []domain.Citation{}},
				Message: domain.NoResultsMessage,
			}, nil
		},
	}
	s := newTestServer(nil, queries, nil)

	rr := doRequest(t, s, "POST", "/api/v1/query", "viewer-token", QueryRequest{Question: "unknown topic?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp QueryResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Success || resp.Message != domain.NoResultsMessage || resp.Answer != domain.NoAnswerText {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Citations == nil || len(resp.Citations) != 0 {
		t.Errorf("expected empty citations array, got %v", resp.Citations)
	}
}

func TestHandleQuery_Errors(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		body     any
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "unauthenticated", body: QueryRequest{Question: "q?"}, wantCode: http.StatusUnauthorized},
		{name: "bad json", token: "member-token", body: "{", wantCode: http.StatusBadRequest, wantMsg: "invalid request body"},
		{name: "blank question", token: "member-token", body: QueryRequest{Question: "   "}, wantCode: http.StatusBadRequest, wantMsg: "question is required"},
		{
			name:     "provider failure is hidden",
			token:    "member-token",
			body:     QueryRequest{Question: "q?"},
			err:      fmt.Errorf("%w: generate answer: %w", domain.ErrQueryFailed, domain.NewGenerationError(domain.ReasonQuotaExceeded, errors.New("insufficient_quota"))),
			wantCode: http.StatusInternalServerError,
			wantMsg:  queryFailedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := &mockQueryService{
				answerFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(nil, queries, nil)

			rr := doRequest(t, s, "POST", "/api/v1/query", tt.token, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantMsg != "" {
				if got := decodeError(t, rr); got != tt.wantMsg {
					t.Errorf("expected %q, got %q", tt.wantMsg, got)
				}
			}
		})
	}
}

func TestHandleGetQuery(t *testing.T) {
	queries := &mockQueryService{
		getFn: func(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryRecord, error) {
			switch {
			case id == "missing":
				return nil, domain.ErrNotFound
			case p.UserID != "member-1" && !p.IsAdmin():
				return nil, domain.ErrForbidden
			}
			return &domain.QueryRecord{ID: id, UserID: "member-1"}, nil
		},
	}
	s := newTestServer(nil, queries, nil)

	tests := []struct {
		token    string
		id       string
		wantCode int
	}{
		{token: "member-token", id: "q-1", wantCode: http.StatusOK},
		{token: "admin-token", id: "q-1", wantCode: http.StatusOK},
		{token: "viewer-token", id: "q-1", wantCode: http.StatusForbidden},
		{token: "member-token", id: "missing", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := doRequest(t, s, "GET", "/api/v1/queries/"+tt.id, tt.token, nil)
		if rr.Code != tt.wantCode {
			t.Errorf("%s GET %s: expected status %d, got %d", tt.token, tt.id, tt.wantCode, rr.Code)
		}
	}
}

// Document endpoints

func TestHandleCreateDocument(t *testing.T) {
	docs := &mockDocumentService{
		createFn: func(ctx context.Context, p *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.SourceDocument, error) {
			if req.Title == "" {
				return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
			}
			return &domain.SourceDocument{ID: "doc-1", Title: req.Title, OwnerID: p.UserID, ApprovalState: domain.ApprovalDraft}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "POST", "/api/v1/documents", "member-token", driving.CreateDocumentRequest{Title: "Handbook"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	var doc domain.SourceDocument
	_ = json.NewDecoder(rr.Body).Decode(&doc)
	if doc.OwnerID != "member-1" || doc.ApprovalState != domain.ApprovalDraft {
		t.Errorf("unexpected document: %+v", doc)
	}

	rr = doRequest(t, s, "POST", "/api/v1/documents", "member-token", driving.CreateDocumentRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for missing title, got %d", rr.Code)
	}

	rr = doRequest(t, s, "POST", "/api/v1/documents", "viewer-token", driving.CreateDocumentRequest{Title: "x"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for viewer, got %d", rr.Code)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	docs := &mockDocumentService{
		getFn: func(ctx context.Context, p *domain.AuthContext, id string) (*domain.SourceDocument, error) {
			return nil, domain.ErrNotFound
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "GET", "/api/v1/documents/doc-x", "viewer-token", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if got := decodeError(t, rr); got != "document not found" {
		t.Errorf("unexpected error %q", got)
	}
}

func TestHandleSetApproval(t *testing.T) {
	var gotState domain.ApprovalState
	docs := &mockDocumentService{
		setApprovalFn: func(ctx context.Context, p *domain.AuthContext, id string, state domain.ApprovalState) (*domain.SourceDocument, error) {
			if !p.IsAdmin() {
				return nil, domain.ErrForbidden
			}
			if !state.Valid() {
				return nil, fmt.Errorf("%w: unknown approval state %q", domain.ErrInvalidInput, state)
			}
			gotState = state
			return &domain.SourceDocument{ID: id, ApprovalState: state}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "PUT", "/api/v1/documents/doc-1/approval", "admin-token", ApprovalRequest{State: domain.ApprovalApproved})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotState != domain.ApprovalApproved {
		t.Errorf("expected APPROVED, got %s", gotState)
	}

	rr = doRequest(t, s, "PUT", "/api/v1/documents/doc-1/approval", "admin-token", ApprovalRequest{State: "PUBLISHED"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	rr = doRequest(t, s, "PUT", "/api/v1/documents/doc-1/approval", "viewer-token", ApprovalRequest{State: domain.ApprovalApproved})
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestHandleListRevisions_Empty(t *testing.T) {
	docs := &mockDocumentService{
		listRevisionsFn: func(ctx context.Context, p *domain.AuthContext, documentID string) ([]*domain.DocumentRevision, error) {
			return nil, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "GET", "/api/v1/documents/doc-1/revisions", "member-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestHandleUploadRevision(t *testing.T) {
	var got driving.UploadRevisionRequest
	docs := &mockDocumentService{
		uploadFn: func(ctx context.Context, p *domain.AuthContext, req driving.UploadRevisionRequest) (*domain.DocumentRevision, error) {
			got = req
			return &domain.DocumentRevision{ID: "rev-1", DocumentID: req.DocumentID, Sequence: 1, State: domain.StateUploaded}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := uploadRequest(t, s, "/api/v1/documents/doc-1/revisions", "member-token", "policy.MD", []byte("# Policy"), "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.DocumentID != "doc-1" || got.FileType != domain.FileTypeMarkdown || string(got.Content) != "# Policy" {
		t.Errorf("unexpected upload request: %+v", got)
	}

	// declared type wins over the extension
	rr = uploadRequest(t, s, "/api/v1/documents/doc-1/revisions", "member-token", "notes.bin", []byte("plain"), "txt")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	if got.FileType != domain.FileTypeText {
		t.Errorf("expected txt, got %s", got.FileType)
	}
}

func TestHandleUploadRevision_Rejected(t *testing.T) {
	docs := &mockDocumentService{
		uploadFn: func(ctx context.Context, p *domain.AuthContext, req driving.UploadRevisionRequest) (*domain.DocumentRevision, error) {
			if req.DocumentID == "other" {
				return nil, domain.ErrForbidden
			}
			return &domain.DocumentRevision{ID: "rev-1"}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	tests := []struct {
		name     string
		token    string
		path     string
		fileName string
		content  []byte
		fileType string
		wantCode int
	}{
		{name: "viewer", token: "viewer-token", path: "/api/v1/documents/doc-1/revisions", fileName: "a.txt", content: []byte("x"), wantCode: http.StatusForbidden},
		{name: "no file", token: "member-token", path: "/api/v1/documents/doc-1/revisions", wantCode: http.StatusBadRequest},
		{name: "unsupported type", token: "member-token", path: "/api/v1/documents/doc-1/revisions", fileName: "a.xlsx", content: []byte("x"), wantCode: http.StatusUnsupportedMediaType},
		{name: "too large", token: "member-token", path: "/api/v1/documents/doc-1/revisions", fileName: "a.txt", content: bytes.Repeat([]byte("a"), 2048), wantCode: http.StatusRequestEntityTooLarge},
		{name: "not owner", token: "member-token", path: "/api/v1/documents/other/revisions", fileName: "a.txt", content: []byte("x"), wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := uploadRequest(t, s, tt.path, tt.token, tt.fileName, tt.content, tt.fileType)
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

// Revision endpoints

func TestHandleGetRevision(t *testing.T) {
	docs := &mockDocumentService{
		getRevisionFn: func(ctx context.Context, p *domain.AuthContext, id string) (*domain.DocumentRevision, error) {
			return &domain.DocumentRevision{ID: id, State: domain.StateFailed, ErrorMessage: "unsupported format"}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "GET", "/api/v1/revisions/rev-1", "member-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var rev domain.DocumentRevision
	_ = json.NewDecoder(rr.Body).Decode(&rev)
	if rev.State != domain.StateFailed || rev.ErrorMessage == "" {
		t.Errorf("unexpected revision: %+v", rev)
	}
}

func TestHandleReprocess(t *testing.T) {
	docs := &mockDocumentService{
		reprocessFn: func(ctx context.Context, p *domain.AuthContext, revisionID string) (*domain.DocumentRevision, error) {
			if revisionID == "ready" {
				return nil, fmt.Errorf("%w: revision is READY", domain.ErrInvalidTransition)
			}
			return &domain.DocumentRevision{ID: revisionID, State: domain.StateUploaded}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "POST", "/api/v1/revisions/failed/reprocess", "member-token", nil)
	if rr.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rr.Code)
	}

	rr = doRequest(t, s, "POST", "/api/v1/revisions/ready/reprocess", "member-token", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestFileExtension(t *testing.T) {
	tests := map[string]string{
		"report.PDF":     "pdf",
		"archive.tar.md": "md",
		"README":         "",
		"":               "",
	}
	for name, want := range tests {
		if got := fileExtension(name); got != want {
			t.Errorf("fileExtension(%q) = %q, want %q", name, got, want)
		}
	}
}

// Listing and feedback endpoints

func TestHandleListDocuments(t *testing.T) {
	var got driving.ListDocumentsRequest
	docs := &mockDocumentService{
		listFn: func(ctx context.Context, p *domain.AuthContext, req driving.ListDocumentsRequest) ([]*domain.SourceDocument, error) {
			got = req
			if req.ApprovalState != "" && !req.ApprovalState.Valid() {
				return nil, fmt.Errorf("%w: unknown approval state", domain.ErrInvalidInput)
			}
			if req.Search == "none" {
				return nil, nil
			}
			return []*domain.SourceDocument{{ID: "doc-1", OwnerID: p.UserID}}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "GET", "/api/v1/documents?status=approved&owner=member-1&department=HR&search=leave&limit=10&offset=20", "viewer-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	want := driving.ListDocumentsRequest{
		ApprovalState: domain.ApprovalApproved,
		OwnerID:       "member-1",
		Department:    "HR",
		Search:        "leave",
		Limit:         10,
		Offset:        20,
	}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}

	rr = doRequest(t, s, "GET", "/api/v1/documents?search=none", "member-token", nil)
	if body := strings.TrimSpace(rr.Body.String()); rr.Code != http.StatusOK || body != "[]" {
		t.Errorf("expected empty array, got %d %s", rr.Code, body)
	}

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/api/v1/documents?limit=ten", http.StatusBadRequest},
		{"/api/v1/documents?offset=-1", http.StatusBadRequest},
		{"/api/v1/documents?status=published", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := doRequest(t, s, "GET", tt.path, "member-token", nil)
		if rr.Code != tt.wantCode {
			t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.wantCode, rr.Code)
		}
	}

	rr = doRequest(t, s, "GET", "/api/v1/documents", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without token, got %d", rr.Code)
	}
}

func TestHandleListChunks(t *testing.T) {
	docs := &mockDocumentService{
		listChunksFn: func(ctx context.Context, p *domain.AuthContext, revisionID string) ([]*domain.Chunk, error) {
			if revisionID != "rev-1" {
				return nil, domain.ErrNotFound
			}
			return []*domain.Chunk{
				{ID: "c-1", RevisionID: revisionID, Ordinal: 0, Text: "Remote work", Embedding: []float32{0.1, 0.2}},
			}, nil
		},
	}
	s := newTestServer(docs, nil, nil)

	rr := doRequest(t, s, "GET", "/api/v1/revisions/rev-1/chunks", "member-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "embedding") {
		t.Errorf("expected vectors to stay out of the response: %s", rr.Body.String())
	}
	var chunks []domain.Chunk
	_ = json.NewDecoder(rr.Body).Decode(&chunks)
	if len(chunks) != 1 || chunks[0].ID != "c-1" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}

	rr = doRequest(t, s, "GET", "/api/v1/revisions/rev-x/chunks", "member-token", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleQueryHistory(t *testing.T) {
	var got driving.QueryHistoryRequest
	var gotUser string
	queries := &mockQueryService{
		historyFn: func(ctx context.Context, p *domain.AuthContext, req driving.QueryHistoryRequest) ([]*domain.QueryRecord, error) {
			got, gotUser = req, p.UserID
			return nil, nil
		},
	}
	s := newTestServer(nil, queries, nil)

	rr := doRequest(t, s, "GET", "/api/v1/queries?search=remote&limit=5", "viewer-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
	if gotUser != "viewer-1" || got.Search != "remote" || got.Limit != 5 || got.Offset != 0 {
		t.Errorf("unexpected request from %s: %+v", gotUser, got)
	}
}

func TestHandleSubmitFeedback(t *testing.T) {
	var got driving.SubmitFeedbackRequest
	feedback := &mockFeedbackService{
		submitFn: func(ctx context.Context, p *domain.AuthContext, req driving.SubmitFeedbackRequest) (*domain.QueryFeedback, error) {
			got = req
			switch {
			case req.QueryID == "missing":
				return nil, domain.ErrNotFound
			case req.QueryID == "rated":
				return nil, fmt.Errorf("%w: feedback already submitted for this query", domain.ErrConflict)
			case !req.Type.Valid():
				return nil, fmt.Errorf("%w: unknown feedback type", domain.ErrInvalidInput)
			}
			return &domain.QueryFeedback{ID: "fb-1", QueryID: req.QueryID, UserID: p.UserID, Type: req.Type, Rating: req.Rating}, nil
		},
	}
	s := newTestServerWithFeedback(nil, nil, feedback, nil)

	rr := doRequest(t, s, "POST", "/api/v1/queries/q-1/feedback", "member-token", `{"feedback_type":"HELPFUL","rating":4,"comment":"clear"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.QueryID != "q-1" || got.Type != domain.FeedbackHelpful || got.Rating == nil || *got.Rating != 4 || got.Comment != "clear" {
		t.Errorf("unexpected request: %+v", got)
	}
	var fb domain.QueryFeedback
	_ = json.NewDecoder(rr.Body).Decode(&fb)
	if fb.ID != "fb-1" || fb.UserID != "member-1" {
		t.Errorf("unexpected feedback: %+v", fb)
	}

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"unknown query", "/api/v1/queries/missing/feedback", `{"feedback_type":"HELPFUL"}`, http.StatusNotFound},
		{"second rating", "/api/v1/queries/rated/feedback", `{"feedback_type":"HELPFUL"}`, http.StatusConflict},
		{"unknown type", "/api/v1/queries/q-1/feedback", `{"feedback_type":"GREAT"}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/queries/q-1/feedback", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, "POST", tt.path, "member-token", tt.body)
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}

func TestHandleFeedbackReview(t *testing.T) {
	var got driving.ListFeedbackRequest
	feedback := &mockFeedbackService{
		listFn: func(ctx context.Context, p *domain.AuthContext, req driving.ListFeedbackRequest) ([]*domain.QueryFeedback, error) {
			got = req
			return []*domain.QueryFeedback{{ID: "fb-1", Type: domain.FeedbackHallucination}}, nil
		},
		reviewFn: func(ctx context.Context, p *domain.AuthContext, id string) (*domain.QueryFeedback, error) {
			if id != "fb-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.QueryFeedback{ID: id, Reviewed: true, ReviewedBy: p.UserID}, nil
		},
	}
	s := newTestServerWithFeedback(nil, nil, feedback, nil)

	rr := doRequest(t, s, "GET", "/api/v1/feedback?feedback_type=HALLUCINATION&is_reviewed=false&limit=25", "admin-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.Type != domain.FeedbackHallucination || got.Reviewed == nil || *got.Reviewed || got.Limit != 25 {
		t.Errorf("unexpected request: %+v", got)
	}

	rr = doRequest(t, s, "GET", "/api/v1/feedback?is_reviewed=maybe", "admin-token", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad is_reviewed, got %d", rr.Code)
	}

	rr = doRequest(t, s, "POST", "/api/v1/feedback/fb-1/review", "admin-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var fb domain.QueryFeedback
	_ = json.NewDecoder(rr.Body).Decode(&fb)
	if !fb.Reviewed || fb.ReviewedBy != "admin-1" {
		t.Errorf("unexpected feedback: %+v", fb)
	}

	rr = doRequest(t, s, "POST", "/api/v1/feedback/fb-x/review", "admin-token", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}

	for _, path := range []string{"/api/v1/feedback", "/api/v1/feedback/fb-1/review"} {
		method := "GET"
		if strings.HasSuffix(path, "/review") {
			method = "POST"
		}
		rr := doRequest(t, s, method, path, "member-token", nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s %s as member: expected status 403, got %d", method, path, rr.Code)
		}
	}
}
