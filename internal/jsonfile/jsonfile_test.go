package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	var missing map[string]int
	ok, err := Read(path, &missing)
	if err != nil || ok {
		t.Fatalf("missing file should read as (false, nil), got (%v, %v)", ok, err)
	}

	if err := Write(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	var got map[string]int
	ok, err = Read(path, &got)
	if err != nil || !ok {
		t.Fatalf("Read: %v %v", ok, err)
	}
	if got["a"] != 1 {
		t.Errorf("unexpected content %v", got)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{nope"), 0644)

	var v map[string]any
	if _, err := Read(path, &v); err == nil {
		t.Error("expected parse error")
	}
}
