package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/storage"
)

func TestDocumentBasics(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	doc := &core.Document{
		Text:     "The quick brown fox jumps over the lazy dog.",
		Format:   "text",
		Metadata: map[string]string{"source": "fables.txt"},
	}

	added, err := docRepo.AddDocument(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if added.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added.Status != core.StatusPending {
		t.Fatalf("Expected pending status, got %s", added.Status)
	}
	if added.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := docRepo.GetDocument(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Text != doc.Text {
		t.Fatalf("Expected %q, got %q", doc.Text, retrieved.Text)
	}
	if retrieved.Metadata["source"] != "fables.txt" {
		t.Fatalf("Expected metadata to survive, got %v", retrieved.Metadata)
	}
}

func TestAddDocument_Duplicate(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	doc := &core.Document{Text: "same content twice", Format: "text"}
	if _, err := docRepo.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	_, err = docRepo.AddDocument(ctx, &core.Document{Text: "same content twice", Format: "text"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if !errors.Is(err, core.ErrStore) {
		t.Fatalf("Expected the error to carry the store class, got %v", err)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	_, err = docRepo.GetDocument(context.Background(), core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDocumentStatus(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	added, err := docRepo.AddDocument(ctx, &core.Document{Text: "lifecycle test", Format: "text"})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	// Valid forward transitions
	updated, err := docRepo.UpdateDocumentStatus(ctx, added.Id, core.StatusProcessing)
	if err != nil {
		t.Fatalf("Failed to move to processing: %v", err)
	}
	if updated.Status != core.StatusProcessing {
		t.Fatalf("Expected processing, got %s", updated.Status)
	}

	updated, err = docRepo.UpdateDocumentStatus(ctx, added.Id, core.StatusCompleted)
	if err != nil {
		t.Fatalf("Failed to move to completed: %v", err)
	}
	if updated.Status != core.StatusCompleted {
		t.Fatalf("Expected completed, got %s", updated.Status)
	}

	// Completed documents can only go back through processing
	_, err = docRepo.UpdateDocumentStatus(ctx, added.Id, core.StatusPending)
	if !errors.Is(err, core.ErrInvalidStatusTransition) {
		t.Fatalf("Expected ErrInvalidStatusTransition, got %v", err)
	}

	// Verify the rejected transition did not change anything
	retrieved, err := docRepo.GetDocument(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Status != core.StatusCompleted {
		t.Fatalf("Expected status to stay completed, got %s", retrieved.Status)
	}
}

func TestUpdateDocumentStatus_NotFound(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	_, err = docRepo.UpdateDocumentStatus(context.Background(), core.ID(999), core.StatusProcessing)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetChunkCount(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	added, err := docRepo.AddDocument(ctx, &core.Document{Text: "count me", Format: "text"})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if err := docRepo.SetChunkCount(ctx, added.Id, 7); err != nil {
		t.Fatalf("Failed to set chunk count: %v", err)
	}

	retrieved, err := docRepo.GetDocument(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.ChunkCount != 7 {
		t.Fatalf("Expected chunk count 7, got %d", retrieved.ChunkCount)
	}
}

func TestDeleteDocument(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	added, err := docRepo.AddDocument(ctx, &core.Document{Text: "short lived", Format: "text"})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if err := docRepo.DeleteDocument(ctx, added.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	_, err = docRepo.GetDocument(ctx, added.Id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	err = docRepo.DeleteDocument(ctx, added.Id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for second delete, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	texts := []string{"first document", "second document", "third document"}
	for _, text := range texts {
		if _, err := docRepo.AddDocument(ctx, &core.Document{Text: text, Format: "text"}); err != nil {
			t.Fatalf("Failed to add document: %v", err)
		}
	}

	listed, err := docRepo.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(listed))
	}

	count, err := docRepo.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to count documents: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected count 3, got %d", count)
	}
}
