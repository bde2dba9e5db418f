package fileop

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newBackend(t *testing.T) (*storage.Local, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	local, err := storage.NewLocal(root)
	require.NoError(t, err)
	return local, root
}

// run drives an operation to completion, answering every conflict with decide
func run(t *testing.T, op *PendingOperation, decide func(models.Conflict) models.ConflictDecision) models.OperationResult {
	t.Helper()
	ctx := context.Background()
	op.Begin(ctx)
	for steps := 0; !op.Done(); steps++ {
		require.Less(t, steps, 10000, "operation did not terminate")
		if c, ok := op.Conflict(); ok {
			require.NotNil(t, decide, "unexpected conflict on %s", c.Dest)
			require.NoError(t, op.ResolveConflict(ctx, decide(c)))
			continue
		}
		op.Advance(ctx)
	}
	result, ok := op.Result()
	require.True(t, ok)
	return result
}

func TestFlatten(t *testing.T) {
	backend, root := newBackend(t)
	src := filepath.Join(root, "src")
	writeFile(t, filepath.Join(src, "b.txt"), "bb")
	writeFile(t, filepath.Join(src, "a", "deep.txt"), "deep")
	writeFile(t, filepath.Join(root, "outside", "x.txt"), "x")
	require.NoError(t, os.Symlink(filepath.Join(src, "b.txt"), filepath.Join(src, "link-file")))
	require.NoError(t, os.Symlink(filepath.Join(root, "outside"), filepath.Join(src, "link-dir")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(src, "dangling")))

	dest := filepath.Join(root, "dest")
	entries, err := Flatten(context.Background(), backend, []string{src}, dest)
	require.NoError(t, err)

	want := []models.FlattenedEntry{
		{Kind: models.KindDirectory, Source: src, Dest: filepath.Join(dest, "src")},
		{Kind: models.KindDirectory, Source: filepath.Join(src, "a"), Dest: filepath.Join(dest, "src", "a")},
		{Kind: models.KindFile, Source: filepath.Join(src, "a", "deep.txt"), Dest: filepath.Join(dest, "src", "a", "deep.txt"), Size: 4},
		{Kind: models.KindFile, Source: filepath.Join(src, "b.txt"), Dest: filepath.Join(dest, "src", "b.txt"), Size: 2},
		{Kind: models.KindSymlinkFile, Source: filepath.Join(src, "dangling"), Dest: filepath.Join(dest, "src", "dangling")},
		{Kind: models.KindSymlinkDirectory, Source: filepath.Join(src, "link-dir"), Dest: filepath.Join(dest, "src", "link-dir")},
		{Kind: models.KindSymlinkFile, Source: filepath.Join(src, "link-file"), Dest: filepath.Join(dest, "src", "link-file"), Size: 2},
	}
	assert.Equal(t, want, entries)

	_, err = Flatten(context.Background(), backend, []string{filepath.Join(root, "nope")}, dest)
	assert.Error(t, err)
}

func TestCollectMoveCleanupDirs(t *testing.T) {
	entries := []models.FlattenedEntry{
		{Kind: models.KindDirectory, Source: "/s"},
		{Kind: models.KindDirectory, Source: "/s/a"},
		{Kind: models.KindFile, Source: "/s/a/f"},
		{Kind: models.KindDirectory, Source: "/s/a/b"},
		{Kind: models.KindDirectory, Source: "/s/c"},
		{Kind: models.KindDirectory, Source: "/s/a"},
		{Kind: models.KindSymlinkDirectory, Source: "/s/l"},
	}
	assert.Equal(t, []string{"/s/a/b", "/s/c", "/s/a", "/s"}, CollectMoveCleanupDirs(entries))
}

func TestNeedsConflictResolution(t *testing.T) {
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "file"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	tests := []struct {
		name string
		kind models.EntryKind
		dest string
		want bool
	}{
		{"dir over dir", models.KindDirectory, "dir", false},
		{"dir over file", models.KindDirectory, "file", true},
		{"file over file", models.KindFile, "file", true},
		{"file over dir", models.KindFile, "dir", true},
		{"file over dangling link", models.KindSymlinkFile, "dangling", true},
		{"nothing there", models.KindFile, "free", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NeedsConflictResolution(context.Background(), backend, models.FlattenedEntry{
				Kind: tt.kind,
				Dest: filepath.Join(root, tt.dest),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoveExample(t *testing.T) {
	backend, root := newBackend(t)
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "empty"), 0755))
	writeFile(t, filepath.Join(src, "nested", "data.txt"), "payload")
	dest := filepath.Join(root, "dest")
	require.NoError(t, os.Mkdir(dest, 0755))

	op, err := Start(context.Background(), backend, models.OpMove, []string{src}, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, op.State)

	result := run(t, op, nil)
	assert.False(t, result.HasErrors(), result.Errors)
	assert.Equal(t, "Move completed: 4 files", result.Message())

	assert.NoDirExists(t, src)
	assert.DirExists(t, filepath.Join(dest, "src", "empty"))
	empty, err := os.ReadDir(filepath.Join(dest, "src", "empty"))
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, "payload", readFile(t, filepath.Join(dest, "src", "nested", "data.txt")))
}

func TestCopyThenDeleteEqualsMove(t *testing.T) {
	files := map[string]string{"one.txt": "1", "two.txt": "22", "three.bin": "333"}

	setup := func(t *testing.T) (*storage.Local, []string, string) {
		backend, root := newBackend(t)
		var sources []string
		for name, content := range files {
			p := filepath.Join(root, "src", name)
			writeFile(t, p, content)
			sources = append(sources, p)
		}
		dest := filepath.Join(root, "dest")
		require.NoError(t, os.Mkdir(dest, 0755))
		return backend, sources, dest
	}

	snapshot := func(t *testing.T, sources []string, dest string) (map[string]string, int) {
		tree := make(map[string]string)
		entries, err := os.ReadDir(dest)
		require.NoError(t, err)
		for _, e := range entries {
			tree[e.Name()] = readFile(t, filepath.Join(dest, e.Name()))
		}
		remaining := 0
		for _, s := range sources {
			if _, err := os.Lstat(s); err == nil {
				remaining++
			}
		}
		return tree, remaining
	}

	backend, sources, dest := setup(t)
	op, err := Start(context.Background(), backend, models.OpCopy, sources, dest, nil)
	require.NoError(t, err)
	run(t, op, nil)
	del, err := StartDelete(context.Background(), backend, sources, nil)
	require.NoError(t, err)
	run(t, del, nil)
	copyTree, copyRemaining := snapshot(t, sources, dest)

	backend, sources, dest = setup(t)
	op, err = Start(context.Background(), backend, models.OpMove, sources, dest, nil)
	require.NoError(t, err)
	run(t, op, nil)
	moveTree, moveRemaining := snapshot(t, sources, dest)

	assert.Equal(t, files, copyTree)
	assert.Equal(t, copyTree, moveTree)
	assert.Zero(t, copyRemaining)
	assert.Zero(t, moveRemaining)
}

func TestDirectorySymlinkAlwaysFails(t *testing.T) {
	for _, kind := range []models.OperationKind{models.OpCopy, models.OpMove} {
		t.Run(string(kind), func(t *testing.T) {
			backend, root := newBackend(t)
			writeFile(t, filepath.Join(root, "target", "inside.txt"), "x")
			src := filepath.Join(root, "src")
			writeFile(t, filepath.Join(src, "ok.txt"), "ok")
			require.NoError(t, os.Symlink(filepath.Join(root, "target"), filepath.Join(src, "link")))
			dest := filepath.Join(root, "dest")
			require.NoError(t, os.Mkdir(dest, 0755))

			op, err := Start(context.Background(), backend, kind, []string{src}, dest, nil)
			require.NoError(t, err)
			result := run(t, op, nil)

			assert.Equal(t, []string{"link: directory symlink is not supported"}, result.Errors)
			assert.Equal(t, 1, result.Failed)
			_, err = os.Lstat(filepath.Join(dest, "src", "link"))
			assert.True(t, os.IsNotExist(err))
			assert.Equal(t, "ok", readFile(t, filepath.Join(dest, "src", "ok.txt")))
			assert.FileExists(t, filepath.Join(root, "target", "inside.txt"))
		})
	}
}

func TestDanglingSymlinkSource(t *testing.T) {
	setup := func(t *testing.T) (*storage.Local, string, string) {
		backend, root := newBackend(t)
		src := filepath.Join(root, "src")
		writeFile(t, filepath.Join(src, "ok.txt"), "ok")
		require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(src, "dangling")))
		dest := filepath.Join(root, "dest")
		require.NoError(t, os.Mkdir(dest, 0755))
		return backend, src, dest
	}

	t.Run("copy fails the entry", func(t *testing.T) {
		backend, src, dest := setup(t)
		op, err := Start(context.Background(), backend, models.OpCopy, []string{src}, dest, nil)
		require.NoError(t, err)
		result := run(t, op, nil)

		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "dangling: failed to stat source")
		_, err = os.Lstat(filepath.Join(dest, "src", "dangling"))
		assert.True(t, os.IsNotExist(err))
		assert.Equal(t, "ok", readFile(t, filepath.Join(dest, "src", "ok.txt")))
	})

	t.Run("move renames the link", func(t *testing.T) {
		backend, src, dest := setup(t)
		op, err := Start(context.Background(), backend, models.OpMove, []string{src}, dest, nil)
		require.NoError(t, err)
		result := run(t, op, nil)

		assert.False(t, result.HasErrors(), result.Errors)
		target, err := os.Readlink(filepath.Join(dest, "src", "dangling"))
		require.NoError(t, err)
		assert.Equal(t, "missing", filepath.Base(target))
	})
}

func TestRecursivePrecondition(t *testing.T) {
	backend, root := newBackend(t)
	src := filepath.Join(root, "src")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	require.NoError(t, os.Mkdir(filepath.Join(src, "child"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(src, "child"), filepath.Join(root, "alias")))

	for _, dest := range []string{src, filepath.Join(src, "child"), filepath.Join(root, "alias")} {
		for _, kind := range []models.OperationKind{models.OpCopy, models.OpMove} {
			_, err := Start(context.Background(), backend, kind, []string{src}, dest, nil)
			var pre *models.PreconditionError
			require.ErrorAs(t, err, &pre, "%s into %s", kind, dest)
			assert.Contains(t, err.Error(), "into itself")
		}
	}

	entries, err := os.ReadDir(filepath.Join(src, "child"))
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written")
}

func TestStartPreconditions(t *testing.T) {
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	_, err := Start(context.Background(), backend, models.OpCopy, nil, root, nil)
	assert.ErrorContains(t, err, "no source selected")

	_, err = Start(context.Background(), backend, models.OpCopy, []string{filepath.Join(root, "a.txt")}, filepath.Join(root, "missing"), nil)
	assert.ErrorContains(t, err, "destination directory does not exist")

	_, err = Start(context.Background(), backend, models.OpCopy, []string{filepath.Join(root, "ghost")}, root, nil)
	assert.ErrorContains(t, err, "source does not exist")

	_, err = Start(context.Background(), backend, models.OpDelete, []string{filepath.Join(root, "a.txt")}, root, nil)
	assert.Error(t, err)
}

func TestSamePathGuard(t *testing.T) {
	backend, root := newBackend(t)
	file := filepath.Join(root, "a.txt")
	writeFile(t, file, "keep me")

	op, err := Start(context.Background(), backend, models.OpCopy, []string{file}, root, nil)
	require.NoError(t, err)
	result := run(t, op, nil)

	assert.Equal(t, []string{"a.txt: source and destination are the same"}, result.Errors)
	assert.Equal(t, "keep me", readFile(t, file))
}

func TestConflictDecisions(t *testing.T) {
	setup := func(t *testing.T) (*storage.Local, string, string) {
		backend, root := newBackend(t)
		src := filepath.Join(root, "src")
		dest := filepath.Join(root, "dest")
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			writeFile(t, filepath.Join(src, name), "new")
			writeFile(t, filepath.Join(dest, "src", name), "old")
		}
		return backend, src, dest
	}
	contents := func(t *testing.T, dest string) []string {
		var out []string
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			out = append(out, readFile(t, filepath.Join(dest, "src", name)))
		}
		return out
	}

	t.Run("per item", func(t *testing.T) {
		backend, src, dest := setup(t)
		op, err := Start(context.Background(), backend, models.OpCopy, []string{src}, dest, nil)
		require.NoError(t, err)

		decisions := []models.ConflictDecision{models.DecisionOverwrite, models.DecisionSkip, models.DecisionOverwrite}
		var seen []string
		result := run(t, op, func(c models.Conflict) models.ConflictDecision {
			seen = append(seen, filepath.Base(c.Dest))
			d := decisions[0]
			decisions = decisions[1:]
			return d
		})

		assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, seen)
		assert.Equal(t, []string{"new", "old", "new"}, contents(t, dest))
		assert.Equal(t, 3, result.Succeeded)
		assert.Nil(t, op.Sticky)
	})

	t.Run("overwrite all is sticky", func(t *testing.T) {
		backend, src, dest := setup(t)
		op, err := Start(context.Background(), backend, models.OpCopy, []string{src}, dest, nil)
		require.NoError(t, err)

		prompts := 0
		run(t, op, func(models.Conflict) models.ConflictDecision {
			prompts++
			return models.DecisionOverwriteAll
		})
		assert.Equal(t, 1, prompts)
		assert.Equal(t, []string{"new", "new", "new"}, contents(t, dest))
	})

	t.Run("skip all is sticky", func(t *testing.T) {
		backend, src, dest := setup(t)
		op, err := Start(context.Background(), backend, models.OpMove, []string{src}, dest, nil)
		require.NoError(t, err)

		prompts := 0
		result := run(t, op, func(models.Conflict) models.ConflictDecision {
			prompts++
			return models.DecisionSkipAll
		})
		assert.Equal(t, 1, prompts)
		assert.Equal(t, []string{"old", "old", "old"}, contents(t, dest))
		assert.False(t, result.HasErrors(), result.Errors)
		assert.FileExists(t, filepath.Join(src, "a.txt"), "skipped sources stay in place")
		assert.DirExists(t, src, "a non-empty source directory survives cleanup")
	})

	t.Run("cancel keeps completed items", func(t *testing.T) {
		backend, root := newBackend(t)
		src := filepath.Join(root, "src")
		dest := filepath.Join(root, "dest")
		writeFile(t, filepath.Join(src, "a.txt"), "new")
		writeFile(t, filepath.Join(src, "b.txt"), "new")
		writeFile(t, filepath.Join(dest, "src", "b.txt"), "old")

		op, err := Start(context.Background(), backend, models.OpCopy, []string{src}, dest, nil)
		require.NoError(t, err)
		cleaned := false
		op.OnFinish(func() { cleaned = true })

		result := run(t, op, func(models.Conflict) models.ConflictDecision { return models.DecisionCancel })
		assert.True(t, result.Cancelled)
		assert.True(t, cleaned)
		assert.Equal(t, "new", readFile(t, filepath.Join(dest, "src", "a.txt")))
		assert.Equal(t, "old", readFile(t, filepath.Join(dest, "src", "b.txt")))
		assert.Equal(t, "Copy cancelled (2/3)", result.Message())
	})

	t.Run("directory over file", func(t *testing.T) {
		backend, root := newBackend(t)
		src := filepath.Join(root, "src")
		dest := filepath.Join(root, "dest")
		writeFile(t, filepath.Join(src, "sub", "f.txt"), "new")
		writeFile(t, filepath.Join(dest, "src", "sub"), "i am a file")

		op, err := Start(context.Background(), backend, models.OpCopy, []string{src}, dest, nil)
		require.NoError(t, err)
		var conflicts []string
		run(t, op, func(c models.Conflict) models.ConflictDecision {
			conflicts = append(conflicts, filepath.Base(c.Dest))
			return models.DecisionOverwrite
		})
		assert.Equal(t, []string{"sub"}, conflicts)
		assert.Equal(t, "new", readFile(t, filepath.Join(dest, "src", "sub", "f.txt")))
	})
}

func TestResolveConflictErrors(t *testing.T) {
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "dest", "src", "a.txt"), "b")

	op, err := Start(context.Background(), backend, models.OpCopy, []string{filepath.Join(root, "src")}, filepath.Join(root, "dest"), nil)
	require.NoError(t, err)

	require.ErrorIs(t, op.ResolveConflict(context.Background(), models.DecisionSkip), ErrNoConflict)

	op.Begin(context.Background())
	op.Advance(context.Background())
	op.Advance(context.Background())
	c, ok := op.Conflict()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "dest", "src", "a.txt"), c.Dest)

	require.ErrorIs(t, op.ResolveConflict(context.Background(), "later"), ErrUnknownDecision)
	assert.Equal(t, models.StateWaitingConflict, op.State)

	op.Advance(context.Background())
	assert.Equal(t, models.StateWaitingConflict, op.State, "advance is a no-op while waiting")
}

func TestAdvanceAccounting(t *testing.T) {
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "src", "a.txt"), "12345")
	writeFile(t, filepath.Join(root, "src", "b.txt"), "12345")
	dest := filepath.Join(root, "dest")
	require.NoError(t, os.Mkdir(dest, 0755))

	op, err := Start(context.Background(), backend, models.OpCopy, []string{filepath.Join(root, "src")}, dest, nil)
	require.NoError(t, err)

	op.Advance(context.Background())
	assert.Zero(t, op.Cursor, "pending operations do not advance")

	op.Begin(context.Background())
	assert.Equal(t, int64(10), op.Progress.BytesTotal)
	assert.Equal(t, 3, op.Progress.ItemsTotal)

	op.Advance(context.Background())
	op.Advance(context.Background())
	assert.Equal(t, int64(5), op.Progress.BytesDone)
	assert.Equal(t, 50, op.Progress.Percentage())

	op.Cancel(context.Background())
	assert.True(t, op.Done())
	op.Advance(context.Background())
	assert.Equal(t, 2, op.Cursor)
}

func TestDelete(t *testing.T) {
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "dir", "a", "b.txt"), "123")
	writeFile(t, filepath.Join(root, "file.txt"), "1234")
	require.NoError(t, os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "link")))

	op, err := StartDelete(context.Background(), backend, []string{
		filepath.Join(root, "link"),
		filepath.Join(root, "dir"),
		filepath.Join(root, "file.txt"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), op.Progress.BytesTotal)

	result := run(t, op, nil)
	assert.False(t, result.HasErrors(), result.Errors)
	assert.Equal(t, "Delete completed: 3 files", result.Message())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrash(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("would touch the real trash can")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	backend, root := newBackend(t)
	writeFile(t, filepath.Join(root, "old.txt"), "x")

	result, err := Trash(context.Background(), backend, []string{filepath.Join(root, "old.txt")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.NoFileExists(t, filepath.Join(root, "old.txt"))
}

// stuckTrash moves the first path and refuses the rest
type stuckTrash struct {
	*storage.Local
}

func (s stuckTrash) Trash(ctx context.Context, paths []string) (int, error) {
	if err := os.Remove(paths[0]); err != nil {
		return 0, err
	}
	return 1, errors.New("trash can is full")
}

func TestTrashPartialFailure(t *testing.T) {
	local, root := newBackend(t)
	sources := []string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt"), filepath.Join(root, "c.txt")}
	for _, src := range sources {
		writeFile(t, src, "x")
	}

	result, err := Trash(context.Background(), stuckTrash{local}, sources, nil)
	require.Error(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"trash can is full"}, result.Errors)
}
