// Package workspace implements the isolated virtual file store that all
// file-oriented agent tools operate on. Entries live entirely in memory,
// keyed by normalized slash-separated paths; directories are implicit.
//
// The store enforces two quotas (per-file and aggregate), normalizes every
// path so that no operation can address storage outside the workspace root,
// and tracks binary entries so they can be read back as data URLs and
// serialized as sentinel-prefixed base64 strings.
package workspace

import (
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Default quotas. A single conversation's workspace holds source files and
// small assets, not build artifacts.
const (
	DefaultFileQuota  = 512 * 1024      // 512 KB per file
	DefaultTotalQuota = 5 * 1024 * 1024 // 5 MB aggregate
)

// binarySentinel prefixes serialized binary entries so snapshots stay a flat
// path -> string map while round-tripping bytes exactly.
const binarySentinel = "@@binary;base64,"

// binaryExtensions are file extensions always treated as binary.
var binaryExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
}

// QuotaExceededError is returned when a write would violate a quota.
// The workspace is left unchanged.
type QuotaExceededError struct {
	Path  string
	Size  int
	Limit int
	Scope string // "file" or "total"
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded writing %s: %d bytes over %s limit of %d", e.Path, e.Size, e.Scope, e.Limit)
}

// PathTraversalError is returned when a path normalizes to nothing inside
// the workspace root (e.g. "", ".", or pure traversal like "../..").
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q does not resolve inside the workspace", e.Path)
}

// NotFoundError is returned when reading or deleting a missing entry.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Entry describes one stored file for enumeration.
type Entry struct {
	Path     string `json:"path"`
	Size     int    `json:"size"`
	IsBinary bool   `json:"is_binary"`
}

type record struct {
	data     []byte
	isBinary bool
}

// Workspace is a quota-bounded, binary-safe, in-memory file store.
// It is owned by a single conversation; concurrent loops over one instance
// must be serialized by the caller.
type Workspace struct {
	mu         sync.RWMutex
	entries    map[string]*record
	totalSize  int
	fileQuota  int
	totalQuota int
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithFileQuota overrides the per-file size limit in bytes.
func WithFileQuota(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.fileQuota = n
		}
	}
}

// WithTotalQuota overrides the aggregate size limit in bytes.
func WithTotalQuota(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.totalQuota = n
		}
	}
}

// New creates an empty Workspace with default quotas.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		entries:    make(map[string]*record),
		fileQuota:  DefaultFileQuota,
		totalQuota: DefaultTotalQuota,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Normalize resolves a path to its canonical in-workspace form. Separators
// are normalized, absolute prefixes and leading traversal segments are
// stripped, so the result always addresses storage inside the root.
func Normalize(p string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	cleaned = strings.TrimPrefix(cleaned, "/")
	cleaned = path.Clean(cleaned)
	for strings.HasPrefix(cleaned, "../") {
		cleaned = cleaned[3:]
	}
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", &PathTraversalError{Path: p}
	}
	return cleaned, nil
}

// Write stores text content at path, creating or overwriting the entry.
// Parent directories are implicit. A write that would violate either quota
// is rejected and leaves the workspace unchanged.
func (w *Workspace) Write(p string, content string) error {
	return w.write(p, []byte(content), false)
}

// WriteBytes stores raw bytes at path and marks the entry binary regardless
// of extension.
func (w *Workspace) WriteBytes(p string, data []byte) error {
	return w.write(p, data, true)
}

func (w *Workspace) write(p string, data []byte, forceBinary bool) error {
	norm, err := Normalize(p)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(data) > w.fileQuota {
		return &QuotaExceededError{Path: norm, Size: len(data), Limit: w.fileQuota, Scope: "file"}
	}

	existing := 0
	if old, ok := w.entries[norm]; ok {
		existing = len(old.data)
	}
	newTotal := w.totalSize - existing + len(data)
	if newTotal > w.totalQuota {
		return &QuotaExceededError{Path: norm, Size: newTotal, Limit: w.totalQuota, Scope: "total"}
	}

	isBinary := forceBinary || extensionIsBinary(norm)
	w.entries[norm] = &record{data: data, isBinary: isBinary}
	w.totalSize = newTotal
	return nil
}

// Read returns the content at path: UTF-8 text for text entries, a
// data:<mime>;base64 URL for binary ones.
func (w *Workspace) Read(p string) (string, error) {
	norm, err := Normalize(p)
	if err != nil {
		return "", err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	rec, ok := w.entries[norm]
	if !ok {
		return "", &NotFoundError{Path: norm}
	}
	if rec.isBinary {
		mime := mimeForPath(norm)
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(rec.data), nil
	}
	return string(rec.data), nil
}

// Exists reports whether an entry is stored at path.
func (w *Workspace) Exists(p string) bool {
	norm, err := Normalize(p)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entries[norm]
	return ok
}

// Delete removes the entry at path.
func (w *Workspace) Delete(p string) error {
	norm, err := Normalize(p)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rec, ok := w.entries[norm]
	if !ok {
		return &NotFoundError{Path: norm}
	}
	w.totalSize -= len(rec.data)
	delete(w.entries, norm)
	return nil
}

// List enumerates entries, sorted by path. With a non-empty dir argument only
// entries under that directory are returned.
func (w *Workspace) List(dir string) []Entry {
	prefix := ""
	if dir != "" {
		norm, err := Normalize(dir)
		if err != nil {
			return nil
		}
		prefix = norm + "/"
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []Entry
	for p, rec := range w.entries {
		if prefix != "" && !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, Entry{Path: p, Size: len(rec.data), IsBinary: rec.isBinary})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Reset removes all entries.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = make(map[string]*record)
	w.totalSize = 0
}

// TotalSize returns the aggregate size of all entries in bytes.
func (w *Workspace) TotalSize() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.totalSize
}

// Len returns the number of stored entries.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Serialize encodes the workspace as a flat path -> string map for external
// persistence. Text entries serialize as-is; binary entries as
// sentinel-prefixed base64. The result round-trips exactly through
// WriteFromSerialized.
func (w *Workspace) Serialize() map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string]string, len(w.entries))
	for p, rec := range w.entries {
		switch {
		case rec.isBinary:
			out[p] = binarySentinel + base64.StdEncoding.EncodeToString(rec.data)
		case strings.HasPrefix(string(rec.data), binarySentinel):
			// Text that happens to start with the sentinel is escaped by
			// doubling it so rehydrate keeps it string-for-string.
			out[p] = binarySentinel + string(rec.data)
		default:
			out[p] = string(rec.data)
		}
	}
	return out
}

// WriteFromSerialized rehydrates entries from a Serialize snapshot.
// Existing entries at the same paths are overwritten; quotas still apply.
// A sentinel-prefixed value that is not valid base64 is stored as plain
// text rather than failing the whole rehydrate.
func (w *Workspace) WriteFromSerialized(snapshot map[string]string) error {
	for p, v := range snapshot {
		if rest, ok := strings.CutPrefix(v, binarySentinel); ok {
			if strings.HasPrefix(rest, binarySentinel) {
				// Escaped text entry; one sentinel was prepended on
				// serialize.
				if err := w.Write(p, rest); err != nil {
					return err
				}
				continue
			}
			data, err := base64.StdEncoding.DecodeString(rest)
			if err != nil {
				if werr := w.Write(p, v); werr != nil {
					return werr
				}
				continue
			}
			if err := w.WriteBytes(p, data); err != nil {
				return err
			}
			continue
		}
		if err := w.Write(p, v); err != nil {
			return err
		}
	}
	return nil
}

func extensionIsBinary(p string) bool {
	_, ok := binaryExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

func mimeForPath(p string) string {
	if mime, ok := binaryExtensions[strings.ToLower(path.Ext(p))]; ok {
		return mime
	}
	return "application/octet-stream"
}
