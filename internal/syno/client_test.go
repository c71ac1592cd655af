package syno

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/synodl/synodl/internal/testutil"
)

const taskAPI = "SYNO.DownloadStation2.Task"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(Config{
		URL:      baseURL,
		Username: "admin",
		Password: "pw",
	}, testutil.NewTestLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

// callRecorder tracks every network call the executor makes, in order,
// so tests can assert the exact retry budget.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (c *callRecorder) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *callRecorder) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *callRecorder) reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty username", Config{URL: "http://nas:5000", Password: "pw"}},
		{"empty password", Config{URL: "http://nas:5000", Username: "admin"}},
		{"empty url", Config{Username: "admin", Password: "pw"}},
		{"bad scheme", Config{URL: "ftp://nas:5000", Username: "admin", Password: "pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, testutil.NopLogger()); err == nil {
				t.Error("New() accepted invalid config")
			}
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	client, err := New(Config{URL: "https://nas:5001/", Username: "admin", Password: "pw"}, testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.cfg.URL != "https://nas:5001" {
		t.Errorf("URL = %q, want trailing slash trimmed", client.cfg.URL)
	}
}

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/webapi/entry.cgi" {
			t.Errorf("path = %s, want /webapi/entry.cgi", r.URL.Path)
		}
		r.ParseForm()
		for key, want := range map[string]string{
			"api":     "SYNO.API.Auth",
			"version": "7",
			"method":  "login",
			"account": "admin",
			"passwd":  "pw",
			"session": "DownloadStation",
			"format":  "sid",
		} {
			if got := r.PostFormValue(key); got != want {
				t.Errorf("form[%s] = %q, want %q", key, got, want)
			}
		}
		if r.PostForm.Has("_sid") {
			t.Error("login request carries a _sid")
		}
		fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if client.Authenticated() {
		t.Error("Authenticated() = true before login")
	}

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !client.Authenticated() {
		t.Error("Authenticated() = false after login")
	}
	if got := client.session.token(); got != "abc123" {
		t.Errorf("token = %q, want %q", got, "abc123")
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":{"code":400}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login() error = %v, want *AuthError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		t.Errorf("Login() error = %v, want wrapped APIError code 400", err)
	}
	if client.Authenticated() {
		t.Error("Authenticated() = true after rejected login")
	}
}

func TestLogin_FailureKeepsPreviousToken(t *testing.T) {
	rejectLogins := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejectLogins {
			fmt.Fprint(w, `{"success":false,"error":{"code":400}}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	rejectLogins = true
	if err := client.Login(context.Background()); err == nil {
		t.Fatal("Login() succeeded, want failure")
	}
	if got := client.session.token(); got != "abc123" {
		t.Errorf("token = %q, want previous token abc123 kept", got)
	}
}

func TestCall_LoginBeforeFirstCall(t *testing.T) {
	rec := &callRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			rec.record("login")
			fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			return
		}
		rec.record(r.PostFormValue("method"))
		if got := r.PostFormValue("_sid"); got != "abc123" {
			t.Errorf("_sid = %q, want %q", got, "abc123")
		}
		fmt.Fprint(w, `{"success":true,"data":{"total":0,"offset":0,"task":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var out struct {
		Total int `json:"total"`
	}
	if err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), &out); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	want := []string{"login", "list"}
	if got := rec.snapshot(); !equalCalls(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

// The full recovery sequence: login yields abc123, the list call with
// _sid=abc123 hits the expiry code, the executor re-logs-in to xyz789
// and replays once, returning the replayed payload.
func TestCall_SessionExpiryRecovery(t *testing.T) {
	rec := &callRecorder{}
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			logins++
			rec.record("login")
			if logins == 1 {
				fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			} else {
				fmt.Fprint(w, `{"success":true,"data":{"sid":"xyz789"}}`)
			}
			return
		}

		sid := r.PostFormValue("_sid")
		rec.record("list sid=" + sid)
		switch sid {
		case "abc123":
			fmt.Fprint(w, `{"success":false,"error":{"code":119}}`)
		case "xyz789":
			fmt.Fprint(w, `{"success":true,"data":{"total":2,"offset":0,"task":[{"id":"dbid_1"},{"id":"dbid_2"}]}}`)
		default:
			t.Errorf("unexpected _sid %q", sid)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var out struct {
		Total int `json:"total"`
		Tasks []struct {
			ID string `json:"id"`
		} `json:"task"`
	}
	if err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), &out); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if out.Total != 2 || len(out.Tasks) != 2 {
		t.Errorf("payload = %+v, want the replayed task list", out)
	}
	want := []string{"login", "list sid=abc123", "login", "list sid=xyz789"}
	if got := rec.snapshot(); !equalCalls(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

// With a session already held, recovery is exactly three round trips:
// primary, login, replay.
func TestCall_RetryBudgetExactlyThreeCalls(t *testing.T) {
	rec := &callRecorder{}
	sid := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			sid++
			rec.record("login")
			fmt.Fprintf(w, `{"success":true,"data":{"sid":"sid-%d"}}`, sid)
			return
		}
		rec.record("primary")
		if r.PostFormValue("_sid") == "sid-1" {
			fmt.Fprint(w, `{"success":false,"error":{"code":119}}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	rec.reset()

	if err := client.Call(context.Background(), NewRequest(taskAPI, 2, "pause"), nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	want := []string{"primary", "login", "primary"}
	if got := rec.snapshot(); !equalCalls(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

// When the replay expires again the executor stops: three calls total,
// and the replay's API failure is surfaced. No third attempt.
func TestCall_SecondExpiryNotRetried(t *testing.T) {
	rec := &callRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			rec.record("login")
			fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			return
		}
		rec.record("primary")
		fmt.Fprint(w, `{"success":false,"error":{"code":119}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	rec.reset()

	err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != CodeSessionExpired {
		t.Fatalf("Call() error = %v, want APIError code 119", err)
	}
	want := []string{"primary", "login", "primary"}
	if got := rec.snapshot(); !equalCalls(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestCall_NonExpiryCodeSurfacedImmediately(t *testing.T) {
	rec := &callRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			rec.record("login")
			fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			return
		}
		rec.record("primary")
		fmt.Fprint(w, `{"success":false,"error":{"code":408}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	rec.reset()

	err := client.Call(context.Background(), NewRequest(taskAPI, 2, "delete"), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 408 {
		t.Fatalf("Call() error = %v, want APIError code 408", err)
	}
	if got := rec.snapshot(); !equalCalls(got, []string{"primary"}) {
		t.Errorf("calls = %v, want exactly one primary call", got)
	}
}

// A failed re-login surfaces the auth failure, not the stale 119.
func TestCall_ReloginFailureSurfaced(t *testing.T) {
	rec := &callRecorder{}
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			logins++
			rec.record("login")
			if logins == 1 {
				fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			} else {
				fmt.Fprint(w, `{"success":false,"error":{"code":400}}`)
			}
			return
		}
		rec.record("primary")
		fmt.Fprint(w, `{"success":false,"error":{"code":119}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	rec.reset()

	err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), nil)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Call() error = %v, want *AuthError from the re-login", err)
	}
	if IsSessionExpired(err) {
		t.Error("Call() surfaced the stale expiry code instead of the auth failure")
	}
	want := []string{"primary", "login"}
	if got := rec.snapshot(); !equalCalls(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestCall_TransportFailureNotRetried(t *testing.T) {
	primaries := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			return
		}
		primaries++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Call() error = %v, want *TransportError", err)
	}
	if primaries != 1 {
		t.Errorf("primary calls = %d, want 1", primaries)
	}
}

func TestCall_DecodeFailureNotRetried(t *testing.T) {
	primaries := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			fmt.Fprint(w, `{"success":true,"data":{"sid":"abc123"}}`)
			return
		}
		primaries++
		fmt.Fprint(w, `not even json`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	err := client.Call(context.Background(), NewRequest(taskAPI, 2, "list"), nil)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Call() error = %v, want *DecodeError", err)
	}
	if primaries != 1 {
		t.Errorf("primary calls = %d, want 1", primaries)
	}
}

// Concurrent calls that each observe expiry each perform their own
// re-login; both succeed and the surviving token is a fresh one.
func TestCall_ConcurrentExpiryRecovery(t *testing.T) {
	var mu sync.Mutex
	sid := 0
	valid := map[string]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		defer mu.Unlock()
		if r.PostFormValue("api") == "SYNO.API.Auth" {
			sid++
			token := fmt.Sprintf("sid-%d", sid)
			valid[token] = true
			fmt.Fprintf(w, `{"success":true,"data":{"sid":%q}}`, token)
			return
		}
		if valid[r.PostFormValue("_sid")] {
			fmt.Fprint(w, `{"success":true}`)
			return
		}
		fmt.Fprint(w, `{"success":false,"error":{"code":119}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.session.replace("stale")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Call(context.Background(), NewRequest(taskAPI, 2, "pause"), nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d error = %v", i, err)
		}
	}
	if !strings.HasPrefix(client.session.token(), "sid-") {
		t.Errorf("token = %q, want a freshly issued sid", client.session.token())
	}
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
