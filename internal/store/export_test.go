package store

import (
	"context"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	src.Put(ctx, PutParams{Filename: "Gaurav.md", Description: "identity", Content: "g1"})
	src.Put(ctx, PutParams{Filename: "Ideas.md", Description: "seeds", Content: "i1"})

	files, err := src.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	var docs []PutParams
	for _, f := range files {
		docs = append(docs, PutParams{Filename: f.Filename, Description: f.Description, Content: f.Content})
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, docs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}

	got, _ := dst.Get(ctx, "Ideas.md")
	if got.Content != "i1" || got.Description != "seeds" {
		t.Errorf("unexpected imported file %+v", got)
	}

	// Re-importing unchanged documents keeps versions stable.
	dst.Import(ctx, docs)
	got, _ = dst.Get(ctx, "Ideas.md")
	if got.Version != 1 {
		t.Errorf("expected version 1 after idempotent import, got %d", got.Version)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Filename: "Gaurav.md", Content: "abc"})
	s.Update(ctx, UpdateParams{Filename: "Gaurav.md", Content: "abcd"})

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalFiles != 1 || st.TotalVersions != 1 {
		t.Errorf("expected 1 file and 1 version, got %d and %d", st.TotalFiles, st.TotalVersions)
	}
	if len(st.Files) != 1 || st.Files[0].Bytes != 4 || st.Files[0].Version != 2 {
		t.Errorf("unexpected file stats %+v", st.Files)
	}
}
