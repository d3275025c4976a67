package relay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureCreatesLayout(t *testing.T) {
	d := Dirs{Spool: filepath.Join(t.TempDir(), "spool")}
	if err := d.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{d.Spool, d.Done(), d.Failed()} {
		fi, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !fi.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestEnsureIdempotent(t *testing.T) {
	d := Dirs{Spool: t.TempDir()}
	if err := d.Ensure(); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if err := d.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
}

func TestIsBatchFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/spool/batch-1.json", true},
		{"/spool/batch-1.json.tmp", false},
		{"/spool/notes.txt", false},
		{"/spool/.json", true},
		{"/spool/done", false},
	}
	for _, c := range cases {
		if got := isBatchFile(c.path); got != c.want {
			t.Errorf("isBatchFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestMoveFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.json")
	dst := filepath.Join(root, "b.json")
	if err := os.WriteFile(src, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dst); err != nil {
		t.Fatalf("moveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("destination content = %q", data)
	}
}
