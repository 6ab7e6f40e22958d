package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0644))
}

func TestListSources(t *testing.T) {
	t.Parallel()

	t.Run("lists matching files in lexicographic order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		touch(t, filepath.Join(dir, "b.pdf"))
		touch(t, filepath.Join(dir, "a.PDF"))
		touch(t, filepath.Join(dir, "c.txt"))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0755))

		docs, err := fs.ListSources(dir, nil)

		require.NoError(t, err)
		assert.Equal(t, []docparse.SourceDocument{
			{Path: filepath.Join(dir, "a.PDF"), DisplayName: "a.PDF"},
			{Path: filepath.Join(dir, "b.pdf"), DisplayName: "b.pdf"},
		}, docs)
	})

	t.Run("honors custom extensions", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		touch(t, filepath.Join(dir, "scan.png"))
		touch(t, filepath.Join(dir, "doc.pdf"))
		touch(t, filepath.Join(dir, "photo.jpg"))

		docs, err := fs.ListSources(dir, []string{"png", ".jpg"})

		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "photo.jpg", docs[0].DisplayName)
		assert.Equal(t, "scan.png", docs[1].DisplayName)
	})

	t.Run("single file ignores extension filter", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "notes.docx")
		touch(t, path)

		docs, err := fs.ListSources(path, nil)

		require.NoError(t, err)
		assert.Equal(t, []docparse.SourceDocument{{Path: path, DisplayName: "notes.docx"}}, docs)
	})

	t.Run("returns not found for missing path", func(t *testing.T) {
		t.Parallel()

		_, err := fs.ListSources(filepath.Join(t.TempDir(), "missing"), nil)

		require.Error(t, err)
		assert.Equal(t, docparse.ENOTFOUND, docparse.ErrorCode(err))
	})
}

func TestReadSource(t *testing.T) {
	t.Parallel()

	t.Run("reads file content", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a.pdf")
		touch(t, path)

		data, err := fs.ReadSource(docparse.NewSourceDocument(path))

		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7", string(data))
	})

	t.Run("returns not found for missing file", func(t *testing.T) {
		t.Parallel()

		_, err := fs.ReadSource(docparse.NewSourceDocument(filepath.Join(t.TempDir(), "gone.pdf")))

		require.Error(t, err)
		assert.Equal(t, docparse.ENOTFOUND, docparse.ErrorCode(err))
	})
}
