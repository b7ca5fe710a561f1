// Package web exposes the analysis engine and project store over HTTP.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inkforge/castmap/pkg/analysis"
	"github.com/inkforge/castmap/pkg/logging"
	"github.com/inkforge/castmap/pkg/model"
	"github.com/inkforge/castmap/pkg/project"
	"github.com/inkforge/castmap/pkg/pubsub"
	"github.com/inkforge/castmap/pkg/storage"
)

//go:embed static/*
var staticFiles embed.FS

// Server wires the project manager and analysis coordinator to HTTP
type Server struct {
	router      *mux.Router
	manager     *project.Manager
	coordinator *analysis.Coordinator
	repo        storage.FileRepository
	publisher   pubsub.Publisher
	defaults    analysis.Options
}

// NewServer creates the web server
func NewServer(manager *project.Manager, coordinator *analysis.Coordinator, repo storage.FileRepository, defaults analysis.Options) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// analysis_status: new subscribers only care about the current state
	ssePublisher.ConfigureTopic(pubsub.TopicAnalysisStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// research_update: events are deltas, replay the recent history
	ssePublisher.ConfigureTopic(pubsub.TopicResearchUpdate, pubsub.TopicConfig{
		BufferSize: 50,
		ReplayAll:  true,
	})

	s := &Server{
		router:      mux.NewRouter(),
		manager:     manager,
		coordinator: coordinator,
		repo:        repo,
		publisher:   ssePublisher,
		defaults:    defaults,
	}
	s.setupRoutes()
	return s
}

// Publisher returns the server's event publisher, for components that
// push events (e.g. the research watcher).
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/projects", s.handleListProjects).Methods("GET")
	s.router.HandleFunc("/api/projects/load", s.handleLoadProject).Methods("POST")
	s.router.HandleFunc("/api/projects/{id}/graph", s.handleGraph).Methods("POST")
	s.router.HandleFunc("/api/projects/{id}/characters", s.handlePutCharacter).Methods("PUT")
	s.router.HandleFunc("/api/projects/{id}/characters/{charID}", s.handleDeleteCharacter).Methods("DELETE")
	s.router.HandleFunc("/api/projects/{id}/chapters", s.handleCreateChapter).Methods("POST")
	s.router.HandleFunc("/api/projects/{id}/chapters/{chapterID}", s.handleGetChapter).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/chapters/{chapterID}", s.handlePutChapter).Methods("PUT")
	s.router.HandleFunc("/api/projects/{id}/chapters/{chapterID}", s.handleDeleteChapter).Methods("DELETE")
	s.router.HandleFunc("/api/projects/{id}/chapters/{chapterID}/snapshots", s.handleListSnapshots).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/chapters/{chapterID}/snapshots/{snapshot}/restore", s.handleRestoreSnapshot).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// projectSummary is the list item returned by GET /api/projects
type projectSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Path     string    `json:"path"`
	Chapters int       `json:"chapters"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries := make([]projectSummary, 0)
	for _, id := range s.manager.LoadedIDs() {
		path, meta, err := s.manager.GetContext(id)
		if err != nil {
			continue // Unloaded between listing and lookup
		}
		summaries = append(summaries, projectSummary{
			ID:       meta.ID,
			Title:    meta.Title,
			Author:   meta.Author,
			Path:     path,
			Chapters: len(meta.Manifest.Chapters),
		})
	}
	writeJSON(w, summaries)
}

func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "request body must be {\"path\": ...}", http.StatusBadRequest)
		return
	}

	meta, err := s.manager.Load(req.Path)
	if err != nil {
		logging.WarnContext(r.Context(), "failed to load project", "path", req.Path, "error", err)
		http.Error(w, fmt.Sprintf("failed to load project: %v", err), http.StatusNotFound)
		return
	}

	logging.InfoContext(r.Context(), "project loaded", "id", meta.ID, "title", meta.Title)
	writeJSON(w, meta)
}

// graphRequest carries per-request analysis overrides
type graphRequest struct {
	ProximityWindow *int     `json:"proximityWindow"`
	PruneThreshold  *float64 `json:"pruneThreshold"`
	ChapterIDs      []string `json:"chapterIds"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}

	var req graphRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}

	root, meta, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	opts := s.defaults
	if req.ProximityWindow != nil {
		opts.ProximityWindow = *req.ProximityWindow
	}
	if req.PruneThreshold != nil {
		opts.PruneThreshold = *req.PruneThreshold
	}
	if len(req.ChapterIDs) > 0 {
		opts.ChapterFilter = make(map[string]bool, len(req.ChapterIDs))
		for _, id := range req.ChapterIDs {
			opts.ChapterFilter[id] = true
		}
	}

	total := len(meta.Manifest.Chapters)
	s.publishStatus("scanning", "Scanning chapters for character mentions", 0, total)

	payload, err := s.coordinator.Analyze(r.Context(), projectID, root, meta, opts)
	if err != nil {
		s.publishStatus("failed", err.Error(), 0, total)
		logging.ErrorContext(r.Context(), "analysis failed", "project", projectID, "error", err)
		http.Error(w, fmt.Sprintf("analysis failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.publishStatus("ready", "Character graph ready", total, total)
	writeJSON(w, payload)
}

func (s *Server) handlePutCharacter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}

	var character model.Character
	if err := json.NewDecoder(r.Body).Decode(&character); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if character.Name == "" {
		http.Error(w, "character name must not be empty", http.StatusBadRequest)
		return
	}
	if character.ID == uuid.Nil {
		character.ID = uuid.New()
	}

	if _, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		m.AddOrUpdateCharacter(character)
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, character)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	charID, err := uuid.Parse(mux.Vars(r)["charID"])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid character id: %v", err), http.StatusBadRequest)
		return
	}

	removed := false
	if _, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		removed = m.RemoveCharacter(charID)
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !removed {
		http.Error(w, "character not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}

	var req struct {
		ParentID string `json:"parentId"`
		Title    string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "request body must be {\"title\": ..., \"parentId\"?: ...}", http.StatusBadRequest)
		return
	}

	var chapter model.Chapter
	updated, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		chapter = m.Manifest.CreateChapter(req.ParentID, req.Title)
		m.Manifest.Chapters = append(m.Manifest.Chapters, chapter)
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	root, _, err := s.manager.GetContext(updated.ID)
	if err == nil {
		if err := storage.WriteChapterFile(s.repo, root, chapter.Filename, ""); err != nil {
			logging.WarnContext(r.Context(), "failed to create chapter file", "chapter", chapter.ID, "error", err)
		}
	}
	writeJSON(w, chapter)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	chapterID := mux.Vars(r)["chapterID"]

	root, meta, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if _, found := meta.Manifest.FindChapter(chapterID); !found {
		http.Error(w, storage.ErrChapterNotFound.Error(), http.StatusNotFound)
		return
	}

	var filenames []string
	if _, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		filenames = m.Manifest.RemoveNodeRecursively(chapterID)
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Remove the backing files for the whole subtree
	for _, filename := range filenames {
		if err := storage.DeleteChapterFile(s.repo, root, filename); err != nil {
			logging.WarnContext(r.Context(), "failed to delete chapter file", "filename", filename, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	chapterID := mux.Vars(r)["chapterID"]

	root, meta, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	content, err := storage.ReadChapterContent(s.repo, root, meta, chapterID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	chapter, _ := meta.Manifest.FindChapter(chapterID)
	writeJSON(w, map[string]interface{}{
		"chapter": chapter,
		"content": content,
	})
}

func (s *Server) handlePutChapter(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	chapterID := mux.Vars(r)["chapterID"]

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	root, meta, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	chapter, found := meta.Manifest.FindChapter(chapterID)
	if !found {
		http.Error(w, storage.ErrChapterNotFound.Error(), http.StatusNotFound)
		return
	}

	// Snapshot the previous version before overwriting
	previous, err := storage.ReadChapterContent(s.repo, root, meta, chapterID)
	if err == nil && previous != "" {
		if _, err := storage.CreateSnapshot(s.repo, root, chapterID, previous); err != nil {
			logging.WarnContext(r.Context(), "failed to snapshot chapter", "chapter", chapterID, "error", err)
		}
	}

	if err := storage.WriteChapterFile(s.repo, root, chapter.Filename, req.Content); err != nil {
		http.Error(w, fmt.Sprintf("failed to write chapter: %v", err), http.StatusInternalServerError)
		return
	}

	words := model.CountWords(req.Content)
	updated, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		if !m.Manifest.UpdateNodeMetadata(chapterID, model.NodeMetadataUpdate{WordCount: &words}) {
			return storage.ErrChapterNotFound
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to update manifest: %v", err), http.StatusInternalServerError)
		return
	}

	chapter, _ = updated.Manifest.FindChapter(chapterID)
	writeJSON(w, chapter)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	chapterID := mux.Vars(r)["chapterID"]

	root, _, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	snapshots, err := storage.ListSnapshots(s.repo, root, chapterID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list snapshots: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snapshots)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	chapterID := vars["chapterID"]
	snapshot := vars["snapshot"]

	root, meta, err := s.manager.GetContext(projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	chapter, found := meta.Manifest.FindChapter(chapterID)
	if !found {
		http.Error(w, storage.ErrChapterNotFound.Error(), http.StatusNotFound)
		return
	}

	current, err := storage.ReadChapterContent(s.repo, root, meta, chapterID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	content, err := storage.RestoreSnapshot(s.repo, root, chapterID, snapshot, current, chapter.Filename)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to restore snapshot: %v", err), http.StatusNotFound)
		return
	}

	words := model.CountWords(content)
	if _, err := s.manager.Mutate(projectID, func(m *model.ProjectMetadata) error {
		m.Manifest.UpdateNodeMetadata(chapterID, model.NodeMetadataUpdate{WordCount: &words})
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"content": content})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicAnalysisStatus && topic != pubsub.TopicResearchUpdate {
		http.Error(w, fmt.Sprintf("unknown topic: %s", topic), http.StatusNotFound)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.Warn("error writing SSE event", "topic", topic, "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// projectID parses the {id} path variable, writing a 400 on failure
func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid project id: %v", err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) publishStatus(state, message string, chapters, total int) {
	status := pubsub.AnalysisStatus{
		State:    state,
		Message:  message,
		Chapters: chapters,
		Total:    total,
	}
	if err := s.publisher.Publish(pubsub.TopicAnalysisStatus, state, status); err != nil {
		logging.Warn("failed to publish analysis status", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}
