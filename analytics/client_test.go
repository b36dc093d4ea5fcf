package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestNewClientRejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "http://", "://nope"} {
		if _, err := NewClient(raw, nil, time.Second); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", raw)
		}
	}
}

func TestClientAuthURL(t *testing.T) {
	c, err := NewClient("https://backend.example.com/", nil, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got, want := c.AuthURL(), "https://backend.example.com/auth"; got != want {
		t.Errorf("AuthURL() = %q, want %q", got, want)
	}
}

func TestFetchParsesRowsAndForwardsCookies(t *testing.T) {
	var gotPath, gotCookie, gotAccept string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		if ck, err := r.Cookie("connect.sid"); err == nil {
			gotCookie = ck.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[
			{"keys":["cat food","p1","MOBILE","US"],"clicks":5,"impressions":100,"ctr":0.05},
			{"keys":["cat food","p2","DESKTOP","US"],"clicks":3.0,"impressions":50}
		]}`))
	})

	rows, err := c.Fetch(context.Background(), []*http.Cookie{{Name: "connect.sid", Value: "s3cret"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/search-analytics" {
		t.Errorf("path = %q, want /search-analytics", gotPath)
	}
	if gotCookie != "s3cret" {
		t.Errorf("forwarded cookie = %q, want s3cret", gotCookie)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if diff := cmp.Diff(catFoodRows(), rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not logged in"}`, http.StatusUnauthorized)
	})

	_, err := c.Fetch(context.Background(), nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if errors.Is(err, ErrFetchFailed) {
		t.Errorf("401 must not classify as a generic failure")
	}
}

func TestFetchServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Fetch(context.Background(), nil)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Errorf("err = %v, want StatusError 500", err)
	}
}

func TestFetchForbiddenIsGenericFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Fetch(context.Background(), nil)
	if !errors.Is(err, ErrFetchFailed) || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want generic failure", err)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Fetch(context.Background(), nil)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fetch(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrFetchFailed) {
		t.Errorf("cancelled fetch must not classify as a failure")
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[{"keys":["cat food"],"clicks":5}],"pad":"`))
		w.Write([]byte(strings.Repeat("x", maxBodyBytes)))
		w.Write([]byte(`"}`))
	})

	rows, err := c.Fetch(context.Background(), nil)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, rows = %d, want ErrFetchFailed", err, len(rows))
	}
	if state := Resolve(rows, err); state.Kind != StateError {
		t.Errorf("state = %v, want error", state.Kind)
	}
}

func TestFetchAcceptsBodyAtCap(t *testing.T) {
	prefix := `{"rows":[{"keys":["cat food"],"clicks":5}],"pad":"`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(prefix))
		w.Write([]byte(strings.Repeat("x", maxBodyBytes-len(prefix)-2)))
		w.Write([]byte(`"}`))
	})

	rows, err := c.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 || rows[0].Query() != "cat food" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseRowsTolerantOfMissingRows(t *testing.T) {
	cases := map[string]string{
		"absent":      `{}`,
		"null":        `{"rows":null}`,
		"not array":   `{"rows":"nope"}`,
		"invalid":     `<html>oops</html>`,
		"empty body":  ``,
		"empty array": `{"rows":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rows := ParseRows([]byte(body))
			if rows == nil || len(rows) != 0 {
				t.Errorf("ParseRows(%q) = %#v, want empty non-nil slice", body, rows)
			}
		})
	}
}

func TestParseRowsMalformedRow(t *testing.T) {
	rows := ParseRows([]byte(`{"rows":[{"keys":"x","clicks":"7"},{}]}`))
	want := []Row{
		{Keys: []string{}, Clicks: 7},
		{Keys: []string{}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}
