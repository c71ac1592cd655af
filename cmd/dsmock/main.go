// dsmock is an in-memory Download Station API emulator for developing
// and testing synodl without a NAS. It speaks the same entry.cgi
// form/multipart protocol, issues session tokens, and can expire them
// after a fixed number of calls to exercise re-authentication.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type task struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Size           int64  `json:"size"`
	Status         int    `json:"status"`
	Additional     any    `json:"additional,omitempty"`
	sizeDownloaded int64
}

const (
	statusDownloading = 2
	statusPaused      = 3
	statusFinished    = 5
)

type server struct {
	account    string
	passwd     string
	sessionTTL int // calls per sid before it expires; 0 disables expiry
	logger     zerolog.Logger

	mu       sync.Mutex
	nextSID  int
	nextTask int
	sessions map[string]int // sid -> remaining calls
	tasks    map[string]*task
	order    []string
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "listen address")
	account := flag.String("account", "admin", "accepted account name")
	passwd := flag.String("passwd", "pw", "accepted password")
	sessionTTL := flag.Int("session-ttl", 0, "expire each sid after this many calls (0 = never)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "dsmock").Logger()

	s := &server{
		account:    *account,
		passwd:     *passwd,
		sessionTTL: *sessionTTL,
		logger:     logger,
		sessions:   map[string]int{},
		tasks:      map[string]*task{},
	}
	s.seed()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/webapi/entry.cgi", s.handle)

	logger.Info().Str("addr", *addr).Int("session_ttl", *sessionTTL).Msg("dsmock listening")
	if err := e.Start(*addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// seed installs a couple of tasks so list output is never empty.
func (s *server) seed() {
	s.addTask("bt", "ubuntu-24.04-desktop-amd64.iso", 6114656256, statusDownloading)
	s.addTask("bt", "debian-13.0.0-amd64-netinst.iso", 702545920, statusFinished)
}

func (s *server) addTask(typ, title string, size int64, status int) *task {
	s.nextTask++
	t := &task{
		ID:       fmt.Sprintf("dbid_%d", s.nextTask),
		Username: s.account,
		Type:     typ,
		Title:    title,
		Size:     size,
		Status:   status,
	}
	if status == statusFinished {
		t.sizeDownloaded = size
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return t
}

func (s *server) handle(c echo.Context) error {
	api := c.FormValue("api")
	method := c.FormValue("method")

	if api == "SYNO.API.Auth" && method == "login" {
		return s.handleLogin(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sid := c.FormValue("_sid")
	remaining, found := s.sessions[sid]
	if !found {
		return fail(c, 119)
	}
	if s.sessionTTL > 0 {
		if remaining <= 1 {
			delete(s.sessions, sid)
			s.logger.Debug().Str("sid", sid).Msg("session expired")
		} else {
			s.sessions[sid] = remaining - 1
		}
	}

	s.logger.Debug().Str("api", api).Str("method", method).Msg("call")

	switch {
	case api == "SYNO.DownloadStation2.Task":
		return s.handleTask(c, method)
	case api == "SYNO.DownloadStation2.Task.Complete" && method == "start":
		return s.handleComplete(c)
	default:
		return fail(c, 102)
	}
}

func (s *server) handleLogin(c echo.Context) error {
	if c.FormValue("account") != s.account || c.FormValue("passwd") != s.passwd {
		return fail(c, 400)
	}
	if c.FormValue("format") != "sid" {
		return fail(c, 101)
	}

	s.mu.Lock()
	s.nextSID++
	sid := fmt.Sprintf("sid-%06d", s.nextSID)
	s.sessions[sid] = s.sessionTTL
	s.mu.Unlock()

	s.logger.Info().Str("sid", sid).Msg("login")
	return ok(c, map[string]any{"sid": sid})
}

func (s *server) handleTask(c echo.Context, method string) error {
	switch method {
	case "list":
		s.advance()
		return ok(c, map[string]any{
			"offset": 0,
			"total":  len(s.order),
			"task":   s.snapshot(s.order...),
		})

	case "get":
		ids := strings.Split(c.FormValue("id"), ",")
		for _, id := range ids {
			if _, found := s.tasks[id]; !found {
				return fail(c, 408)
			}
		}
		return ok(c, map[string]any{"task": s.snapshot(ids...)})

	case "create":
		return s.handleCreate(c)

	case "pause":
		t, found := s.tasks[c.FormValue("id")]
		if !found {
			return fail(c, 408)
		}
		t.Status = statusPaused
		return ok(c, nil)

	case "resume":
		t, found := s.tasks[c.FormValue("id")]
		if !found {
			return fail(c, 408)
		}
		t.Status = statusDownloading
		return ok(c, map[string]any{"failed_task": []any{}})

	case "delete":
		id := c.FormValue("id")
		if _, found := s.tasks[id]; !found {
			return fail(c, 408)
		}
		s.remove(id)
		return ok(c, map[string]any{"failed_task": []any{}})

	case "delete_condition":
		status := c.FormValue("status")
		var removed []string
		for _, id := range s.order {
			if fmt.Sprint(s.tasks[id].Status) == status {
				removed = append(removed, id)
			}
		}
		for _, id := range removed {
			s.remove(id)
		}
		s.logger.Info().Int("removed", len(removed)).Msg("delete_condition")
		return ok(c, nil)

	default:
		return fail(c, 103)
	}
}

func (s *server) handleCreate(c echo.Context) error {
	destination := c.FormValue("destination")
	switch strings.Trim(c.FormValue("type"), `"`) {
	case "url":
		var uris []string
		if err := json.Unmarshal([]byte(c.FormValue("url")), &uris); err != nil || len(uris) == 0 {
			return fail(c, 101)
		}
		t := s.addTask("bt", titleFromURI(uris[0]), 1234567890, statusDownloading)
		s.logger.Info().Str("id", t.ID).Str("uri", uris[0]).Str("destination", destination).Msg("create")
		return ok(c, map[string]any{"list_id": []any{}, "task_id": []string{t.ID}})

	case "file":
		file, err := c.FormFile("torrent")
		if err != nil {
			return fail(c, 101)
		}
		src, err := file.Open()
		if err != nil {
			return fail(c, 101)
		}
		defer src.Close()
		size, _ := io.Copy(io.Discard, src)

		t := s.addTask("bt", file.Filename, size*1000, statusDownloading)
		s.logger.Info().Str("id", t.ID).Str("file", file.Filename).Str("destination", destination).Msg("create from file")
		return ok(c, map[string]any{"list_id": []any{}, "task_id": []string{t.ID}})

	default:
		return fail(c, 101)
	}
}

func (s *server) handleComplete(c echo.Context) error {
	t, found := s.tasks[c.FormValue("id")]
	if !found {
		return fail(c, 408)
	}
	t.Status = statusFinished
	t.sizeDownloaded = t.Size
	return ok(c, map[string]any{"task_id": t.ID})
}

// advance nudges every downloading task forward so repeated list calls
// show visible progress.
func (s *server) advance() {
	for _, t := range s.tasks {
		if t.Status != statusDownloading {
			continue
		}
		t.sizeDownloaded += t.Size / 20
		if t.sizeDownloaded >= t.Size {
			t.sizeDownloaded = t.Size
			t.Status = statusFinished
		}
	}
}

func (s *server) snapshot(ids ...string) []task {
	out := make([]task, 0, len(ids))
	for _, id := range ids {
		t := s.tasks[id]
		snap := *t
		speed := int64(0)
		if t.Status == statusDownloading {
			speed = 4 << 20
		}
		snap.Additional = map[string]any{
			"transfer": map[string]any{
				"size_downloaded": t.sizeDownloaded,
				"size_uploaded":   t.sizeDownloaded / 4,
				"speed_download":  speed,
				"speed_upload":    0,
			},
			"detail": map[string]any{
				"destination":  "downloads",
				"uri":          "",
				"created_time": time.Now().Add(-time.Hour).Unix(),
			},
		}
		out = append(out, snap)
	}
	return out
}

func (s *server) remove(id string) {
	delete(s.tasks, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func titleFromURI(uri string) string {
	if idx := strings.Index(uri, "dn="); idx != -1 {
		title := uri[idx+3:]
		if end := strings.IndexByte(title, '&'); end != -1 {
			title = title[:end]
		}
		return title
	}
	if idx := strings.LastIndexByte(uri, '/'); idx != -1 && idx < len(uri)-1 {
		return uri[idx+1:]
	}
	return uri
}

func ok(c echo.Context, data any) error {
	resp := map[string]any{"success": true}
	if data != nil {
		resp["data"] = data
	}
	return c.JSON(http.StatusOK, resp)
}

func fail(c echo.Context, code int) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": false,
		"error":   map[string]any{"code": code},
	})
}
