package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestBackend(t *testing.T) (*Local, string) {
	t.Helper()
	tempDir := t.TempDir()
	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local, tempDir
}

func createFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(fullPath, content, 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		tempDir := t.TempDir()

		local, err := NewLocal(tempDir)
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		if local.Root() != tempDir {
			t.Errorf("Root() = %s, want %s", local.Root(), tempDir)
		}
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocal("/nonexistent/path/that/does/not/exist")
		if err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(tempFile, nil, 0644); err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}

		_, err := NewLocal(tempFile)
		if err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

// TestLocalReadDir tests directory listing
func TestLocalReadDir(t *testing.T) {
	local, tempDir := newTestBackend(t)
	createFiles(t, tempDir, map[string][]byte{
		"b.txt":        []byte("content2"),
		"a.txt":        []byte("content1"),
		".hidden":      []byte("h"),
		"subdir/c.txt": []byte("content3"),
		"target/x.txt": []byte("x"),
	})
	if err := os.Symlink("a.txt", filepath.Join(tempDir, "link-file")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.Symlink("target", filepath.Join(tempDir, "link-dir")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	ctx := context.Background()

	t.Run("SortedWithMetadata", func(t *testing.T) {
		entries, err := local.ReadDir(ctx, "")
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}

		var names []string
		byName := make(map[string]FileInfo)
		for _, e := range entries {
			names = append(names, e.Name)
			byName[e.Name] = e
		}

		want := []string{".hidden", "a.txt", "b.txt", "link-dir", "link-file", "subdir", "target"}
		if len(names) != len(want) {
			t.Fatalf("ReadDir() names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("ReadDir()[%d] = %s, want %s", i, names[i], want[i])
			}
		}

		if !byName[".hidden"].Hidden {
			t.Error(".hidden should be flagged hidden")
		}
		if !byName["subdir"].IsDir || byName["subdir"].Size != 0 {
			t.Errorf("subdir = %+v, want directory of size 0", byName["subdir"])
		}
		if lf := byName["link-file"]; !lf.IsSymlink || lf.IsDir || lf.Size != 8 {
			t.Errorf("link-file = %+v, want symlink to 8 byte file", lf)
		}
		if ld := byName["link-dir"]; !ld.IsSymlink || !ld.IsDir {
			t.Errorf("link-dir = %+v, want symlink to directory", ld)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := local.ReadDir(ctx, "")
		if err == nil {
			t.Error("ReadDir() should return error on cancelled context")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := local.ReadDir(ctx, "nope"); err == nil {
			t.Error("ReadDir() should fail for missing directory")
		}
	})
}

// TestLocalReadWrite tests the Read and Write methods
func TestLocalReadWrite(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()
	content := []byte("test content for writing")

	t.Run("WriteCreatesParents", func(t *testing.T) {
		modTime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		meta := &FileInfo{Permissions: 0600, ModTime: modTime}
		if err := local.Write(ctx, "deep/nested/out.txt", bytes.NewReader(content), int64(len(content)), meta); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		info, err := os.Stat(filepath.Join(tempDir, "deep", "nested", "out.txt"))
		if err != nil {
			t.Fatalf("written file missing: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
		}
		if !info.ModTime().Equal(modTime) {
			t.Errorf("mod time = %v, want %v", info.ModTime(), modTime)
		}

		reader, err := local.Read(ctx, "deep/nested/out.txt")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		defer reader.Close()
		data, _ := io.ReadAll(reader)
		if !bytes.Equal(data, content) {
			t.Errorf("Read() content = %s, want %s", data, content)
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		err := local.Write(ctx, "short.txt", bytes.NewReader(content), int64(len(content))+10, nil)
		if err == nil {
			t.Error("Write() should fail when fewer bytes than announced are written")
		}
	})

	t.Run("UnknownSize", func(t *testing.T) {
		if err := local.Write(ctx, "unknown.txt", bytes.NewReader(content), -1, nil); err != nil {
			t.Errorf("Write() with unknown size error = %v", err)
		}
	})

	t.Run("ReadNonExistentFile", func(t *testing.T) {
		if _, err := local.Read(ctx, "nonexistent.txt"); err == nil {
			t.Error("Read() should fail for non-existent file")
		}
	})
}

// TestLocalCopyMove tests file copy and move
func TestLocalCopyMove(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()
	createFiles(t, tempDir, map[string][]byte{
		"src/a.txt": []byte("alpha"),
		"src/b.txt": []byte("bravo"),
	})

	t.Run("CopyFile", func(t *testing.T) {
		n, err := local.CopyFile(ctx, "src/a.txt", "dst/a.txt")
		if err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		if n != 5 {
			t.Errorf("CopyFile() = %d bytes, want 5", n)
		}
		if _, err := os.Stat(filepath.Join(tempDir, "src", "a.txt")); err != nil {
			t.Error("CopyFile() must keep the source")
		}
	})

	t.Run("CopySamePath", func(t *testing.T) {
		if _, err := local.CopyFile(ctx, "src/a.txt", filepath.Join(tempDir, "src", "a.txt")); err == nil {
			t.Error("CopyFile() onto itself should fail")
		}
	})

	t.Run("CopyFollowsSymlink", func(t *testing.T) {
		if err := os.Symlink("a.txt", filepath.Join(tempDir, "src", "link")); err != nil {
			t.Fatalf("failed to create symlink: %v", err)
		}
		if _, err := local.CopyFile(ctx, "src/link", "dst/link"); err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		info, err := os.Lstat(filepath.Join(tempDir, "dst", "link"))
		if err != nil {
			t.Fatalf("copied link missing: %v", err)
		}
		if !info.Mode().IsRegular() {
			t.Error("copying a symlink should produce a regular file")
		}
	})

	t.Run("MoveFile", func(t *testing.T) {
		if err := os.MkdirAll(filepath.Join(tempDir, "moved"), 0755); err != nil {
			t.Fatal(err)
		}
		n, err := local.MoveFile(ctx, "src/b.txt", "moved/b.txt")
		if err != nil {
			t.Fatalf("MoveFile() error = %v", err)
		}
		if n != 5 {
			t.Errorf("MoveFile() = %d bytes, want 5", n)
		}
		if _, err := os.Stat(filepath.Join(tempDir, "src", "b.txt")); !os.IsNotExist(err) {
			t.Error("MoveFile() should remove the source")
		}
		data, _ := os.ReadFile(filepath.Join(tempDir, "moved", "b.txt"))
		if string(data) != "bravo" {
			t.Errorf("moved content = %q, want bravo", data)
		}
	})
}

// TestLocalRemove tests Remove and RemoveAll
func TestLocalRemove(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()
	createFiles(t, tempDir, map[string][]byte{
		"file.txt":       []byte("x"),
		"tree/a/b/c.txt": []byte("x"),
	})

	if err := local.Remove(ctx, "file.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := local.Remove(ctx, "tree"); err == nil {
		t.Error("Remove() should refuse a non-empty directory")
	}
	if err := local.RemoveAll(ctx, "tree"); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "tree")); !os.IsNotExist(err) {
		t.Error("RemoveAll() should delete the whole tree")
	}
}

// TestLocalExists tests Exists and IsDir
func TestLocalExists(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()
	createFiles(t, tempDir, map[string][]byte{"dir/file.txt": []byte("x")})
	if err := os.Symlink("missing", filepath.Join(tempDir, "dangling")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	tests := []struct {
		path   string
		exists bool
		isDir  bool
	}{
		{"dir", true, true},
		{"dir/file.txt", true, false},
		{"dangling", true, false},
		{"nope", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			exists, err := local.Exists(ctx, tt.path)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if exists != tt.exists {
				t.Errorf("Exists() = %v, want %v", exists, tt.exists)
			}
			isDir, err := local.IsDir(ctx, tt.path)
			if err != nil {
				t.Fatalf("IsDir() error = %v", err)
			}
			if isDir != tt.isDir {
				t.Errorf("IsDir() = %v, want %v", isDir, tt.isDir)
			}
		})
	}
}

// TestLocalStat tests Stat and Lstat
func TestLocalStat(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()
	createFiles(t, tempDir, map[string][]byte{"file.txt": []byte("hello")})
	if err := os.Symlink("file.txt", filepath.Join(tempDir, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	info, err := local.Stat(ctx, "link")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 5 || info.IsSymlink {
		t.Errorf("Stat() = %+v, want followed regular file", info)
	}
	if info.RelativePath != "link" {
		t.Errorf("RelativePath = %s, want link", info.RelativePath)
	}

	linfo, err := local.Lstat(ctx, "link")
	if err != nil {
		t.Fatalf("Lstat() error = %v", err)
	}
	if !linfo.IsSymlink {
		t.Error("Lstat() should report the symlink itself")
	}

	if _, err := local.Stat(ctx, "missing"); err == nil {
		t.Error("Stat() should fail for missing file")
	}
}

// TestCalculateTotalSize tests size accounting across trees
func TestCalculateTotalSize(t *testing.T) {
	local, tempDir := newTestBackend(t)
	createFiles(t, tempDir, map[string][]byte{
		"a/one.txt":     []byte("12345"),
		"a/sub/two.txt": []byte("123"),
		"b.txt":         []byte("1"),
	})
	if err := os.Symlink("one.txt", filepath.Join(tempDir, "a", "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	total, files, err := local.CalculateTotalSize(context.Background(), []string{"a", "b.txt"})
	if err != nil {
		t.Fatalf("CalculateTotalSize() error = %v", err)
	}
	if files != 4 {
		t.Errorf("files = %d, want 4", files)
	}
	if total != 14 {
		t.Errorf("bytes = %d, want 14", total)
	}
}

// TestMkdirAll tests directory creation
func TestMkdirAll(t *testing.T) {
	local, tempDir := newTestBackend(t)
	ctx := context.Background()

	if err := local.MkdirAll(ctx, "x/y/z"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := local.MkdirAll(ctx, "x/y/z"); err != nil {
		t.Errorf("MkdirAll() should be idempotent, got %v", err)
	}
	info, err := os.Stat(filepath.Join(tempDir, "x", "y", "z"))
	if err != nil || !info.IsDir() {
		t.Errorf("MkdirAll() did not create directory: %v", err)
	}
}

// TestBackendInterface verifies Local implements Backend
func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
