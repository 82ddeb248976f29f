package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"paperrag/config"
	"paperrag/internal/adapter/cache"
	"paperrag/internal/adapter/catalog"
	"paperrag/internal/adapter/docs"
	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

// Server exposes the pipeline over HTTP: upload a document, ask questions
// against it, inspect status, clear the index. Queries read an immutable
// engine snapshot; uploads build a new engine and swap the pointer, so a
// long-running question is never broken by a concurrent re-ingest.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	ingestor  *usecase.Ingestor
	embedder  port.Embedder
	generator port.Generator
	catalog   *catalog.Catalog
	finder    *docs.Finder
	queries   *cache.QueryCache

	engine   atomic.Pointer[usecase.Engine]
	ingestMu sync.Mutex
}

func New(cfg *config.Config, ingestor *usecase.Ingestor, embedder port.Embedder, generator port.Generator, cat *catalog.Catalog) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		cfg:       cfg,
		ingestor:  ingestor,
		embedder:  embedder,
		generator: generator,
		catalog:   cat,
		finder:    docs.NewFinder(cfg.Ingest.Includes),
		queries:   cache.NewQueryCache(100, 5*time.Minute),
	}

	e.POST("/upload", s.handleUpload)
	e.POST("/ask", s.handleAsk)
	e.POST("/clear", s.handleClear)
	e.GET("/status", s.handleStatus)

	return s
}

// TryLoad publishes an engine from a pair left by an earlier run. A
// missing pair is not an error; the server just starts empty.
func (s *Server) TryLoad() error {
	if _, err := os.Stat(s.cfg.IndexPath()); os.IsNotExist(err) {
		return nil
	}
	eng, err := usecase.OpenEngine(s.embedder, s.generator, s.cfg)
	if err != nil {
		return err
	}
	s.engine.Store(eng)
	return nil
}

func (s *Server) Start() error {
	err := s.echo.Start(s.cfg.Server.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying mux for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type uploadResponse struct {
	RunID  string `json:"run_id"`
	File   string `json:"file"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
}

type askRequest struct {
	Question string `json:"question"`
}

type outOfContextResponse struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

type statusResponse struct {
	Indexed bool   `json:"indexed"`
	File    string `json:"file,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Chunks  int    `json:"chunks,omitempty"`
}

func (s *Server) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	if !s.finder.Accepted(file.Filename) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported document %q", file.Filename))
	}

	path, err := s.saveUpload(file)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	// One ingestion at a time; the pair on disk is a single slot.
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	result, err := s.ingestor.Ingest(c.Request().Context(), path)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	eng, err := usecase.OpenEngine(s.embedder, s.generator, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to load new index: %w", err)
	}
	s.engine.Store(eng)
	s.queries.Invalidate()

	return c.JSON(http.StatusOK, uploadResponse{
		RunID:  result.RunID,
		File:   filepath.Base(path),
		Pages:  result.Pages,
		Chunks: result.Chunks,
	})
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	eng := s.engine.Load()
	if eng == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no document indexed; upload one first")
	}

	ctx := c.Request().Context()
	chunks, cached := s.queries.Get(req.Question)
	if !cached {
		fresh, err := eng.Retrieve(ctx, req.Question)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		chunks = fresh
		s.queries.Put(req.Question, chunks)
	}
	if len(chunks) == 0 {
		return c.JSON(http.StatusOK, outOfContextResponse{
			Answer:     usecase.OutOfContextAnswer,
			Confidence: 0,
		})
	}

	stream, err := eng.Answer(ctx, req.Question, chunks)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	defer stream.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	resp.WriteHeader(http.StatusOK)

	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Client gone or upstream died mid-stream; the status line is
			// already out, so just stop writing.
			return nil
		}
		if _, err := resp.Write([]byte(frag)); err != nil {
			return nil
		}
		resp.Flush()
	}
}

func (s *Server) handleClear(c echo.Context) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.engine.Store(nil)
	s.queries.Invalidate()
	if err := usecase.ClearPair(s.cfg); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{Indexed: s.engine.Load() != nil}
	if s.catalog != nil && resp.Indexed {
		if run, ok, err := s.catalog.Latest(); err == nil && ok {
			resp.File = run.File
			resp.Pages = run.Pages
			resp.Chunks = run.Chunks
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// saveUpload copies the uploaded document under the uploads directory,
// keeping only its base name so the client cannot pick the path.
func (s *Server) saveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dir := filepath.Join(s.cfg.Storage.DataDir, s.cfg.Storage.UploadsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(file.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
