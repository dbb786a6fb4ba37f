package bytecode

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "prog.oasm")
	if err := os.WriteFile(src, []byte(twoCalls), 0644); err != nil {
		t.Fatal(err)
	}
	im, err := LoadFile(src)
	if err != nil {
		t.Fatalf("LoadFile(asm): %v", err)
	}
	if im.EntryUnit().File != src {
		t.Errorf("File = %q, want %q", im.EntryUnit().File, src)
	}

	data, err := MarshalImage(im)
	if err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "prog.opbc")
	if err := os.WriteFile(bin, data, 0644); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(bin)
	if err != nil {
		t.Fatalf("LoadFile(image): %v", err)
	}
	if len(loaded.Units) != 2 {
		t.Errorf("got %d units, want 2", len(loaded.Units))
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.oasm")); err == nil {
		t.Error("expected error for missing file")
	}
}
