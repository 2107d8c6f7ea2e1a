package fs

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"sync-shuttle/internal/shuttle"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating dir for %s: %v", f, err)
		}
		if err := os.WriteFile(p, []byte(f), 0644); err != nil {
			t.Fatalf("writing %s: %v", f, err)
		}
	}
}

func rels(paths []*shuttle.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Rel())
	}
	return out
}

func TestOSFilesystemManager_Scan(t *testing.T) {
	t.Run("orders directories before files case-insensitively", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, "b.txt", "A.txt", "zeta/one.txt", "Alpha/two.txt", "Alpha/Beta/three.txt")

		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		want := []string{"Alpha/Beta/three.txt", "Alpha/two.txt", "zeta/one.txt", "A.txt", "b.txt"}
		if got := rels(paths); !reflect.DeepEqual(got, want) {
			t.Errorf("Scan() = %v, want %v", got, want)
		}
	})

	t.Run("skips hidden names at every level", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, ".secret", "visible.txt", ".git/config", "sub/.hidden", "sub/shown.txt")

		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		want := []string{"sub/shown.txt", "visible.txt"}
		if got := rels(paths); !reflect.DeepEqual(got, want) {
			t.Errorf("Scan() = %v, want %v", got, want)
		}
	})

	t.Run("stops below max depth", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, "d1/d2/d3/at3.txt", "d1/d2/d3/d4/at4.txt", "d1/d2/d3/d4/d5/at5.txt")

		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		want := []string{"d1/d2/d3/at3.txt"}
		if got := rels(paths); !reflect.DeepEqual(got, want) {
			t.Errorf("Scan() = %v, want %v", got, want)
		}
	})

	t.Run("missing root yields nothing", func(t *testing.T) {
		t.Parallel()
		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(filepath.Join(t.TempDir(), "nope"), 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("expected no paths, got %v", rels(paths))
		}
	})

	t.Run("applies configured and root ignore patterns", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, "keep.txt", "debug.log", "build/out.o", "notes.tmp")
		if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("# local\nbuild/\n"), 0644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		m := NewOSFilesystemManager([]string{"*.log", "*.tmp"}, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		want := []string{"keep.txt"}
		if got := rels(paths); !reflect.DeepEqual(got, want) {
			t.Errorf("Scan() = %v, want %v", got, want)
		}
	})

	t.Run("records absolute path and size", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, "sender/report.pdf")

		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(paths) != 1 {
			t.Fatalf("expected 1 path, got %d", len(paths))
		}
		if paths[0].String() != filepath.Join(root, "sender", "report.pdf") {
			t.Errorf("String() = %q", paths[0].String())
		}
		if paths[0].Info().Size() != int64(len("sender/report.pdf")) {
			t.Errorf("Size() = %d", paths[0].Info().Size())
		}
	})

	t.Run("follows symlinks to files and directories", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		root := t.TempDir()
		outside := t.TempDir()
		writeTree(t, outside, "target.txt", "shared/inside.txt")
		links := map[string]string{
			"doc.txt":  filepath.Join(outside, "target.txt"),
			"linked":   filepath.Join(outside, "shared"),
			"dangling": filepath.Join(outside, "missing"),
		}
		for name, target := range links {
			if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
				t.Fatalf("creating symlink %s: %v", name, err)
			}
		}

		m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
		paths, err := m.Scan(root, 4)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		want := []string{"linked/inside.txt", "doc.txt"}
		if got := rels(paths); !reflect.DeepEqual(got, want) {
			t.Fatalf("Scan() = %v, want %v", got, want)
		}
		if size := paths[1].Info().Size(); size != int64(len("target.txt")) {
			t.Errorf("symlinked file size = %d, want the target's", size)
		}
	})
}

func TestOSFilesystemManager_CountTopLevel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "a.txt", ".hidden", "dir/nested.txt", "other/x")

	m := NewOSFilesystemManager(nil, shuttle.NewNopLogger())
	n, err := m.CountTopLevel(root)
	if err != nil {
		t.Fatalf("CountTopLevel() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountTopLevel() = %d, want 3", n)
	}

	n, err = m.CountTopLevel(filepath.Join(root, "missing"))
	if err != nil {
		t.Fatalf("CountTopLevel(missing) error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountTopLevel(missing) = %d, want 0", n)
	}
}
