// Package analysis orchestrates character graph computation: it keeps the
// compiled scanner and per-chapter mention caches, fans chapter scans out
// concurrently, and hands the aggregate to the graph builder.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inkforge/castmap/pkg/graph"
	"github.com/inkforge/castmap/pkg/logging"
	"github.com/inkforge/castmap/pkg/model"
	"github.com/inkforge/castmap/pkg/scanner"
	"github.com/inkforge/castmap/pkg/storage"
)

const (
	// DefaultProximityWindow is the word-distance cutoff beyond which no
	// proximity bonus accrues.
	DefaultProximityWindow = 50
	// DefaultPruneThreshold is the minimum accumulated edge weight to
	// survive pruning.
	DefaultPruneThreshold = 0.05

	// maxConcurrentChapterScans bounds the chapter fan-out.
	maxConcurrentChapterScans = 8
)

// Options configures one analysis request.
type Options struct {
	ProximityWindow int
	PruneThreshold  float64
	// ChapterFilter restricts analysis to a subset of chapter ids, e.g.
	// for incremental re-analysis of one edited chapter. Nil means all.
	ChapterFilter map[string]bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ProximityWindow: DefaultProximityWindow,
		PruneThreshold:  DefaultPruneThreshold,
	}
}

// Coordinator runs analysis requests against shared caches. One
// Coordinator serves all projects; it is safe for concurrent use.
type Coordinator struct {
	repo     storage.FileRepository
	scanners *ScannerCache
	mentions *MentionCache
}

// NewCoordinator creates a coordinator with empty caches.
func NewCoordinator(repo storage.FileRepository) *Coordinator {
	return &Coordinator{
		repo:     repo,
		scanners: NewScannerCache(),
		mentions: NewMentionCache(),
	}
}

// Analyze scans the project's chapters for character mentions and builds
// the interaction graph. An empty roster is a legitimate terminal state
// and yields an empty graph. Chapters that cannot be resolved or read are
// skipped or treated as empty; only a scanner build failure or an
// internal inconsistency aborts the request.
func (co *Coordinator) Analyze(
	ctx context.Context,
	projectID uuid.UUID,
	root string,
	meta *model.ProjectMetadata,
	opts Options,
) (*model.CharacterGraphPayload, error) {
	if len(meta.Characters) == 0 {
		return graph.Build(nil, nil, nil, graph.Options{
			ProximityWindow: opts.ProximityWindow,
			PruneThreshold:  opts.PruneThreshold,
		})
	}

	sc, sig, err := co.getOrBuildScanner(projectID, meta.Characters)
	if err != nil {
		return nil, err
	}

	// Resolve chapters up front. Unresolvable chapters are never fatal.
	type chapterTask struct{ id, path string }
	var tasks []chapterTask
	var order []string
	for _, ch := range meta.Manifest.Chapters {
		if opts.ChapterFilter != nil && !opts.ChapterFilter[ch.ID] {
			continue
		}
		path, err := storage.ResolveChapterPath(root, meta, ch.ID)
		if err != nil {
			logging.Warn("skipping chapter, path resolution failed",
				"chapter", ch.ID, "error", err)
			continue
		}
		tasks = append(tasks, chapterTask{id: ch.ID, path: path})
		order = append(order, ch.ID)
	}

	texts := make(map[string]string, len(tasks))
	mentions := make(map[string][]scanner.Mention, len(tasks))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChapterScans)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			text, ms := co.scanChapter(t.id, t.path, sc, sig)
			mu.Lock()
			texts[t.id] = text
			mentions[t.id] = ms
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return graph.Build(meta.Characters, texts, mentions, graph.Options{
		ProximityWindow: opts.ProximityWindow,
		PruneThreshold:  opts.PruneThreshold,
		ChapterOrder:    order,
	})
}

// getOrBuildScanner returns a scanner valid for the current roster,
// rebuilding on signature mismatch. The build runs without any lock held.
func (co *Coordinator) getOrBuildScanner(projectID uuid.UUID, characters []model.Character) (*scanner.CharacterScanner, uint64, error) {
	sig := scanner.Signature(characters)

	if sc, ok := co.scanners.Get(projectID, sig); ok {
		return sc, sig, nil
	}

	sc, err := scanner.NewCharacterScanner(characters)
	if err != nil {
		return nil, 0, fmt.Errorf("building character scanner: %w", err)
	}
	co.scanners.Put(projectID, sig, sc)
	logging.Debug("compiled character scanner", "project", projectID, "characters", len(characters))
	return sc, sig, nil
}

// scanChapter returns a chapter's text and mentions, consulting the
// mention cache metadata-first. On a cache hit the content is never read;
// the stored mentions already carry their word indexes. A chapter whose
// file cannot be statted or read degrades to empty content.
func (co *Coordinator) scanChapter(chapterID, path string, sc *scanner.CharacterScanner, sig uint64) (string, []scanner.Mention) {
	info, err := co.repo.Stat(path)
	if err != nil {
		logging.Warn("chapter not readable, treating as empty", "chapter", chapterID, "error", err)
		return "", nil
	}

	if ms, ok := co.mentions.Get(chapterID, info, sig); ok {
		logging.Trace("mention cache hit", "chapter", chapterID, "mentions", len(ms))
		return "", ms
	}

	content, err := co.repo.Read(path)
	if err != nil {
		logging.Warn("chapter read failed, treating as empty", "chapter", chapterID, "error", err)
		return "", nil
	}
	if content == "" {
		return "", nil
	}

	ms := sc.Scan(content)
	scanner.NewWordIndexer(content).IndexMentions(ms)
	co.mentions.Put(chapterID, info, sig, ms)
	return content, ms
}
