package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/source"
)

func TestStorage_LoadSave(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty dir error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load() on empty dir = %d sources, want 0", len(got))
	}

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := []source.Source{
		source.NewSource("https://example.com/a", "A", created),
		source.NewSource("https://example.com/b", "", created.Add(time.Minute)),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() = %d sources, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].URL != want[i].URL || got[i].Tribe != want[i].Tribe || !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("source %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStorage_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Save(context.Background(), []source.Source{source.NewSource("https://example.com/a", "", time.Now())}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("data dir contains %v, want only %s", names, FileName)
	}
}

func TestStorage_FailedSaveKeepsPreviousFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	original := []source.Source{source.NewSource("https://example.com/a", "keep", time.Now())}
	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// A read-only directory makes creating the temp file fail.
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0755) // nolint:errcheck

	if err := store.Save(ctx, nil); err == nil {
		t.Fatal("Save() into read-only dir succeeded, want error")
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 1 || got[0].Tribe != "keep" {
		t.Errorf("Load() after failed save = %+v, want original source", got)
	}
}

func TestStorage_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parsing sources") {
		t.Errorf("Load() error = %v, want parsing error", err)
	}
}

func TestStorage_CancelledContext(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Save(ctx, nil); err == nil {
		t.Error("Save() with cancelled context succeeded, want error")
	}
}

func TestStorage_WithRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	reg := source.NewRegistry(store)
	src, _, err := reg.Add(ctx, "https://example.com/a", "A")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	// A second process sees the same registry.
	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	list, err := source.NewRegistry(reopened).List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 1 || list[0].ID != src.ID {
		t.Errorf("List() = %+v, want [%s]", list, src.ID)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := New("~/teamtemp-data")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	want := filepath.Join(home, "teamtemp-data", FileName)
	if store.Path() != want {
		t.Errorf("Path() = %q, want %q", store.Path(), want)
	}
}
