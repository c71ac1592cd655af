// Package downloadstation provides the typed task operations of the
// Download Station API. All session and retry behavior lives in the
// syno package; this layer only shapes requests and payloads.
package downloadstation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/synodl/synodl/internal/syno"
)

const (
	apiTask         = "SYNO.DownloadStation2.Task"
	apiTaskComplete = "SYNO.DownloadStation2.Task.Complete"

	taskVersion = 2
)

// additionalSections are the detail blocks requested on list/get calls.
var additionalSections = []string{"transfer", "detail"}

var (
	ErrNoTaskIDs        = errors.New("at least one task id is required")
	ErrEmptyURI         = errors.New("uri must not be empty")
	ErrEmptyDestination = errors.New("destination must not be empty")
	ErrEmptyFile        = errors.New("file content must not be empty")
	ErrEmptyFileName    = errors.New("file name must not be empty")
	ErrUnsupportedURI   = errors.New("uri must start with http://, https://, or magnet:")
)

// Station drives download tasks through an authenticated API client.
type Station struct {
	api    *syno.Client
	logger zerolog.Logger
}

// New creates a task facade on top of an API client.
func New(api *syno.Client, logger zerolog.Logger) *Station {
	return &Station{
		api:    api,
		logger: logger.With().Str("component", "downloadstation").Logger(),
	}
}

// List returns all download tasks with transfer and detail sections.
func (s *Station) List(ctx context.Context) (*TaskList, error) {
	req := syno.NewRequest(apiTask, taskVersion, "list").
		SetJSON("additional", additionalSections)

	var list TaskList
	if err := s.api.Call(ctx, req, &list); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return &list, nil
}

// Get returns detailed information for the given task ids.
func (s *Station) Get(ctx context.Context, ids ...string) ([]Task, error) {
	if len(ids) == 0 {
		return nil, ErrNoTaskIDs
	}

	req := syno.NewRequest(apiTask, taskVersion, "get").
		Set("id", strings.Join(ids, ",")).
		SetJSON("additional", additionalSections)

	var info taskInfo
	if err := s.api.Call(ctx, req, &info); err != nil {
		return nil, fmt.Errorf("getting tasks: %w", err)
	}
	return info.Tasks, nil
}

// Create starts a download from an HTTP/HTTPS URL or magnet link. The
// URI is passed through untouched beyond standard form encoding.
func (s *Station) Create(ctx context.Context, uri, destination string) (*TaskCreated, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	if destination == "" {
		return nil, ErrEmptyDestination
	}
	if !strings.HasPrefix(uri, "http://") &&
		!strings.HasPrefix(uri, "https://") &&
		!strings.HasPrefix(uri, "magnet:") {
		return nil, fmt.Errorf("%w, got %q", ErrUnsupportedURI, uri)
	}

	req := syno.NewRequest(apiTask, taskVersion, "create").
		SetJSON("type", "url").
		SetJSON("destination", destination).
		SetJSON("url", []string{uri}).
		SetBool("create_list", false)

	var created TaskCreated
	if err := s.api.Call(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	s.logger.Debug().Str("uri", uri).Str("destination", destination).
		Strs("task_id", created.TaskID).Msg("task created")
	return &created, nil
}

// CreateFromFile starts a download from a torrent file, uploaded as a
// multipart part named "torrent".
func (s *Station) CreateFromFile(ctx context.Context, filename string, content []byte, destination string) (*TaskCreated, error) {
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if filename == "" {
		return nil, ErrEmptyFileName
	}
	if destination == "" {
		return nil, ErrEmptyDestination
	}

	req := syno.NewRequest(apiTask, taskVersion, "create").
		SetJSON("type", "file").
		SetJSON("file", []string{"torrent"}).
		SetJSON("destination", destination).
		SetBool("create_list", false).
		Attach(syno.Upload{
			Field:       "torrent",
			Filename:    filename,
			ContentType: "application/x-bittorrent",
			Content:     content,
		})

	var created TaskCreated
	if err := s.api.Call(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("creating task from file: %w", err)
	}
	s.logger.Debug().Str("file", filename).Int("bytes", len(content)).
		Str("destination", destination).Msg("task created from file")
	return &created, nil
}

// Pause pauses a task.
func (s *Station) Pause(ctx context.Context, id string) error {
	req := syno.NewRequest(apiTask, taskVersion, "pause").Set("id", id)
	if err := s.api.Call(ctx, req, nil); err != nil {
		return fmt.Errorf("pausing task %s: %w", id, err)
	}
	return nil
}

// Resume resumes a paused task and reports which tasks, if any, could
// not be resumed.
func (s *Station) Resume(ctx context.Context, id string) (*TaskOperation, error) {
	req := syno.NewRequest(apiTask, taskVersion, "resume").Set("id", id)

	var op TaskOperation
	if err := s.api.Call(ctx, req, &op); err != nil {
		return nil, fmt.Errorf("resuming task %s: %w", id, err)
	}
	return &op, nil
}

// Complete forces a task to finalize immediately.
func (s *Station) Complete(ctx context.Context, id string) (*TaskCompleted, error) {
	req := syno.NewRequest(apiTaskComplete, 1, "start").Set("id", id)

	var completed TaskCompleted
	if err := s.api.Call(ctx, req, &completed); err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}
	return &completed, nil
}

// Delete removes a task. When forceComplete is set, finished portions
// are moved to the destination before removal.
func (s *Station) Delete(ctx context.Context, id string, forceComplete bool) (*TaskOperation, error) {
	req := syno.NewRequest(apiTask, taskVersion, "delete").
		Set("id", id).
		SetBool("force_complete", forceComplete)

	var op TaskOperation
	if err := s.api.Call(ctx, req, &op); err != nil {
		return nil, fmt.Errorf("deleting task %s: %w", id, err)
	}
	return &op, nil
}

// ClearCompleted removes every task in the finished state.
func (s *Station) ClearCompleted(ctx context.Context) error {
	req := syno.NewRequest(apiTask, taskVersion, "delete_condition").
		SetInt("status", int(StatusFinished))

	if err := s.api.Call(ctx, req, nil); err != nil {
		return fmt.Errorf("clearing completed tasks: %w", err)
	}
	return nil
}
