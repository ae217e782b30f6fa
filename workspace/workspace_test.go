package workspace

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadList(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("app.js", "console.log(1);"))

	content, err := w.Read("app.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1);", content)

	entries := w.List("")
	require.Len(t, entries, 1)
	assert.Equal(t, "app.js", entries[0].Path)
	assert.Equal(t, 15, entries[0].Size)
	assert.False(t, entries[0].IsBinary)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"src/main.go":       "src/main.go",
		"/etc/passwd":       "etc/passwd",
		"../../etc/passwd":  "etc/passwd",
		"./a/./b/../c.txt":  "a/c.txt",
		"a\\b\\c.txt":       "a/b/c.txt",
		"  trimmed.txt":     "trimmed.txt",
		"deep/../../x.html": "x.html",
	}
	for input, want := range cases {
		got, err := Normalize(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	for _, bad := range []string{"", ".", "..", "../..", "/"} {
		_, err := Normalize(bad)
		var pe *PathTraversalError
		assert.ErrorAs(t, err, &pe, "input %q", bad)
	}
}

func TestPathSafety(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("../../etc/passwd", "x"))
	require.NoError(t, w.Write("/etc/shadow", "y"))

	for _, e := range w.List("") {
		assert.False(t, strings.HasPrefix(e.Path, "/"))
		assert.False(t, strings.Contains(e.Path, ".."))
	}
	assert.True(t, w.Exists("etc/passwd"))
	assert.True(t, w.Exists("etc/shadow"))
}

func TestPerFileQuota(t *testing.T) {
	w := New(WithFileQuota(10))

	err := w.Write("big.txt", strings.Repeat("a", 11))
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "file", qe.Scope)
	assert.Equal(t, 0, w.Len(), "rejected write must leave the workspace unchanged")

	require.NoError(t, w.Write("ok.txt", strings.Repeat("a", 10)))
}

func TestTotalQuota(t *testing.T) {
	w := New(WithFileQuota(100), WithTotalQuota(150))

	require.NoError(t, w.Write("a.txt", strings.Repeat("a", 100)))
	require.NoError(t, w.Write("b.txt", strings.Repeat("b", 50)))

	err := w.Write("c.txt", "x")
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "total", qe.Scope)
	assert.Equal(t, 150, w.TotalSize())

	// Overwriting an existing entry reclaims its old size first.
	require.NoError(t, w.Write("b.txt", strings.Repeat("b", 40)))
	require.NoError(t, w.Write("c.txt", strings.Repeat("c", 10)))
	assert.Equal(t, 150, w.TotalSize())
}

func TestQuotaInvariantUnderMixedWrites(t *testing.T) {
	w := New(WithFileQuota(64), WithTotalQuota(256))

	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("f%d.txt", i%8)
		_ = w.Write(p, strings.Repeat("x", (i*13)%80))
		assert.LessOrEqual(t, w.TotalSize(), 256)
		for _, e := range w.List("") {
			assert.LessOrEqual(t, e.Size, 64)
		}
	}
}

func TestBinaryByExtension(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("logo.png", "\x89PNG fake bytes"))

	content, err := w.Read("logo.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "data:image/png;base64,"))

	entries := w.List("")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsBinary)
}

func TestBinaryByRawWrite(t *testing.T) {
	w := New()
	raw := []byte{0x00, 0x01, 0xFF, 0xFE}
	require.NoError(t, w.WriteBytes("blob.dat", raw))

	content, err := w.Read("blob.dat")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "data:application/octet-stream;base64,"))
}

func TestDeleteAndReset(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("a.txt", "aaa"))
	require.NoError(t, w.Write("b.txt", "bbb"))

	require.NoError(t, w.Delete("a.txt"))
	assert.Equal(t, 3, w.TotalSize())

	var nf *NotFoundError
	assert.ErrorAs(t, w.Delete("a.txt"), &nf)
	assert.ErrorAs(t, func() error { _, err := w.Read("a.txt"); return err }(), &nf)

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0, w.TotalSize())
}

func TestListSubdirectory(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("src/main.go", "package main"))
	require.NoError(t, w.Write("src/util/helpers.go", "package util"))
	require.NoError(t, w.Write("README.md", "# readme"))

	entries := w.List("src")
	require.Len(t, entries, 2)
	assert.Equal(t, "src/main.go", entries[0].Path)
	assert.Equal(t, "src/util/helpers.go", entries[1].Path)
}

func TestSnapshotRoundTrip(t *testing.T) {
	w := New()
	require.NoError(t, w.Write("notes.txt", "hello\nworld"))
	require.NoError(t, w.WriteBytes("img.png", []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0xFF}))
	require.NoError(t, w.Write("unicode.txt", "héllo wörld ✓"))

	snapshot := w.Serialize()

	restored := New()
	require.NoError(t, restored.WriteFromSerialized(snapshot))

	for _, p := range []string{"notes.txt", "img.png", "unicode.txt"} {
		orig, err := w.Read(p)
		require.NoError(t, err)
		got, err := restored.Read(p)
		require.NoError(t, err)
		assert.Equal(t, orig, got, "path %s", p)
	}
	assert.Equal(t, w.TotalSize(), restored.TotalSize())
}

func TestSnapshotRoundTripSentinelPrefixedText(t *testing.T) {
	w := New()
	content := "@@binary;base64,this is actually plain text"
	require.NoError(t, w.Write("notes.txt", content))

	restored := New()
	require.NoError(t, restored.WriteFromSerialized(w.Serialize()))

	got, err := restored.Read("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	entries := restored.List("")
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsBinary)

	// A second hop must stay stable too.
	again := New()
	require.NoError(t, again.WriteFromSerialized(restored.Serialize()))
	got, err = again.Read("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteFromSerializedCorruptBinaryFallsBack(t *testing.T) {
	w := New()
	raw := "@@binary;base64,!!!not-base64!!!"
	err := w.WriteFromSerialized(map[string]string{
		"bad.txt": raw,
	})
	require.NoError(t, err)

	got, err := w.Read("bad.txt")
	require.NoError(t, err)
	assert.Equal(t, raw, got, "undecodable entries are kept as raw text")
}

func TestReadErrorsDoNotMutate(t *testing.T) {
	w := New()
	_, err := w.Read("missing.txt")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 0, w.Len())
}
