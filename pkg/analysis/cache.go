package analysis

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkforge/castmap/pkg/scanner"
	"github.com/inkforge/castmap/pkg/storage"
)

// Both caches follow the same read-then-maybe-write discipline: check
// under a read lock, compute without any lock held, install under a write
// lock. A miss never blocks concurrent lookups for other keys.

type scannerEntry struct {
	signature uint64
	scanner   *scanner.CharacterScanner
}

// ScannerCache maps project id to its compiled scanner, keyed by roster
// signature. The scanner handle is shared read-only across concurrent
// scans; a signature mismatch means the roster changed and the entry is
// stale.
type ScannerCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]scannerEntry
}

// NewScannerCache creates an empty scanner cache.
func NewScannerCache() *ScannerCache {
	return &ScannerCache{entries: make(map[uuid.UUID]scannerEntry)}
}

// Get returns the cached scanner if its roster signature matches.
func (c *ScannerCache) Get(projectID uuid.UUID, signature uint64) (*scanner.CharacterScanner, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[projectID]
	if !ok || e.signature != signature {
		return nil, false
	}
	return e.scanner, true
}

// Put installs a freshly compiled scanner, superseding any stale entry.
func (c *ScannerCache) Put(projectID uuid.UUID, signature uint64, sc *scanner.CharacterScanner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[projectID] = scannerEntry{signature: signature, scanner: sc}
}

type mentionEntry struct {
	size      int64
	modTime   time.Time
	signature uint64
	mentions  []scanner.Mention
}

// MentionCache maps chapter id to its scanned mentions. An entry is valid
// only while the chapter file's size and modification time and the active
// scanner signature all match; that trades a stat call for a content read
// and accepts the (rare) false hit when a file is replaced with identical
// metadata.
type MentionCache struct {
	mu      sync.RWMutex
	entries map[string]mentionEntry
}

// NewMentionCache creates an empty mention cache.
func NewMentionCache() *MentionCache {
	return &MentionCache{entries: make(map[string]mentionEntry)}
}

// Get returns the cached mention list if the chapter's current metadata
// and the scanner signature both match.
func (c *MentionCache) Get(chapterID string, info storage.FileInfo, signature uint64) ([]scanner.Mention, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[chapterID]
	if !ok || e.size != info.Size || !e.modTime.Equal(info.ModTime) || e.signature != signature {
		return nil, false
	}
	return e.mentions, true
}

// Put stores the scan result for a chapter against its file metadata.
func (c *MentionCache) Put(chapterID string, info storage.FileInfo, signature uint64, mentions []scanner.Mention) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[chapterID] = mentionEntry{
		size:      info.Size,
		modTime:   info.ModTime,
		signature: signature,
		mentions:  mentions,
	}
}
