package histdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("rejects length mismatch", func(t *testing.T) {
		if _, err := New([]float64{1, 2}, []float64{1}); err == nil {
			t.Error("expected error for mismatched slices")
		}
	})

	t.Run("rejects empty histogram", func(t *testing.T) {
		if _, err := New(nil, nil); err == nil {
			t.Error("expected error for empty histogram")
		}
	})

	t.Run("rejects unordered centers", func(t *testing.T) {
		if _, err := New([]float64{1, 3, 2}, []float64{0, 0, 0}); err == nil {
			t.Error("expected error for unordered centers")
		}
	})

	t.Run("entries default to content sum", func(t *testing.T) {
		h, err := New([]float64{1, 2, 3}, []float64{10, 20, 30})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if h.Entries() != 60 {
			t.Errorf("Entries() = %g, want 60", h.Entries())
		}
		h.SetEntries(100)
		if h.Entries() != 100 {
			t.Errorf("Entries() after SetEntries = %g, want 100", h.Entries())
		}
	})
}

func TestFill(t *testing.T) {
	h, err := Uniform(10, 0, 100)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}

	h.Fill(25) // bin 2, centered at 25
	h.Fill(25)
	h.Fill(-50) // out of range
	h.Fill(500) // out of range

	if got := h.Content(2); got != 2 {
		t.Errorf("Content(2) = %g, want 2", got)
	}
	if h.Entries() != 2 {
		t.Errorf("Entries() = %g, want 2", h.Entries())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("whitespace and comma separated", func(t *testing.T) {
		path := filepath.Join(dir, "hist.txt")
		content := "# charge histogram\n100 5\n110,7\n120\t9\n\n130 3\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		h, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if h.Bins() != 4 {
			t.Fatalf("Bins() = %d, want 4", h.Bins())
		}
		if h.Center(1) != 110 || h.Content(1) != 7 {
			t.Errorf("bin 1 = (%g, %g), want (110, 7)", h.Center(1), h.Content(1))
		}
		if h.Entries() != 24 {
			t.Errorf("Entries() = %g, want 24", h.Entries())
		}
	})

	t.Run("reports malformed lines", func(t *testing.T) {
		path := filepath.Join(dir, "bad.txt")
		if err := os.WriteFile(path, []byte("100 5\nnonsense\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed line")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "absent.txt")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
