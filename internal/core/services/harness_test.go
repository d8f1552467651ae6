package services

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// ragHarness wires every service over the in-memory mocks.
type ragHarness struct {
	documents *mocks.MockDocumentStore
	revisions *mocks.MockRevisionStore
	chunks    *mocks.MockChunkStore
	queries   *mocks.MockQueryStore
	feedback  *mocks.MockFeedbackStore
	index     *mocks.MockSimilarityIndex
	queue     *mocks.MockTaskQueue
	extractor *mocks.MockExtractorRegistry
	embedding *mocks.MockEmbeddingService
	generator *mocks.MockGenerationService

	embedder  *EmbeddingClient
	ingestion *IngestionCoordinator
	query     *QueryOrchestrator
	docs      driving.DocumentService
	ratings   *FeedbackService
	reaper    *StaleRevisionReaper
}

func newRAGHarness(t *testing.T) *ragHarness {
	t.Helper()

	h := &ragHarness{
		documents: mocks.NewMockDocumentStore(),
		revisions: mocks.NewMockRevisionStore(),
		queries:   mocks.NewMockQueryStore(),
		feedback:  mocks.NewMockFeedbackStore(),
		queue:     mocks.NewMockTaskQueue(),
		extractor: mocks.NewMockExtractorRegistry(),
		embedding: mocks.NewMockEmbeddingService(),
		generator: mocks.NewMockGenerationService("Remote work is allowed three days per week [Source 1]."),
	}
	h.chunks = mocks.NewMockChunkStore(h.revisions)
	h.index = mocks.NewMockSimilarityIndex(h.documents, h.revisions, h.chunks)

	embedder, err := NewEmbeddingClient(EmbeddingClientConfig{
		Service:        h.embedding,
		BatchSize:      4,
		RetryBaseDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("embedding client: %v", err)
	}
	t.Cleanup(embedder.Close)
	h.embedder = embedder

	chunker, err := postprocessors.NewChunker(postprocessors.ChunkConfig{Size: 500, Overlap: 50})
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}

	h.ingestion = NewIngestionCoordinator(IngestionCoordinatorConfig{
		Revisions:  h.revisions,
		Chunks:     h.chunks,
		Extractors: h.extractor,
		Chunker:    chunker,
		Embedder:   embedder,
	})
	h.query = NewQueryOrchestrator(QueryOrchestratorConfig{
		Embedder:    embedder,
		Retriever:   NewRetriever(RetrieverConfig{Index: h.index, TopK: 5, Threshold: 0.7}),
		Synthesizer: NewAnswerSynthesizer(SynthesizerConfig{Generator: h.generator, Temperature: 0.3}),
		Store:       h.queries,
	})
	h.docs = NewDocumentService(DocumentServiceConfig{
		Documents: h.documents,
		Revisions: h.revisions,
		Chunks:    h.chunks,
		TaskQueue: h.queue,
	})
	h.ratings = NewFeedbackService(FeedbackServiceConfig{
		Feedback: h.feedback,
		Queries:  h.queries,
	})
	h.reaper = NewStaleRevisionReaper(ReaperConfig{
		Revisions:         h.revisions,
		UploadTimeout:     time.Hour,
		ProcessingTimeout: 30 * time.Minute,
	})
	return h
}

// seedApproved stores an approved document with one uploaded revision.
func (h *ragHarness) seedApproved(t *testing.T, docID, title, department, text string) *domain.DocumentRevision {
	t.Helper()
	ctx := context.Background()

	_ = h.documents.Save(ctx, &domain.SourceDocument{
		ID:            docID,
		Title:         title,
		OwnerID:       "owner",
		Department:    department,
		ApprovalState: domain.ApprovalApproved,
	})
	rev := &domain.DocumentRevision{
		ID:         docID + "-rev",
		DocumentID: docID,
		FileType:   domain.FileTypeText,
		State:      domain.StateUploaded,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := h.revisions.Create(ctx, rev, []byte(text)); err != nil {
		t.Fatalf("create revision: %v", err)
	}
	return rev
}

func memberScope(userID string) domain.AccessScope {
	return domain.AccessScope{Kind: domain.ScopeApproved, UserID: userID}
}
