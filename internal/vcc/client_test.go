package vcc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vccadmin/internal/config"
	"vccadmin/internal/logger"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	cfg := config.Default().API
	cfg.RESTURL = srv.URL + "/rest"
	cfg.SOAPURL = srv.URL + "/soap"
	cfg.BootstrapInterval = time.Millisecond
	cfg.BootstrapMaxAttempts = 3
	opts = append([]Option{WithLogger(logger.Discard()), WithDomain(Domain{ID: "42", Name: "acme"})}, opts...)
	return NewClient(cfg, Credentials{Username: "admin", Password: "secret"}, opts...)
}

func TestSendSOAP(t *testing.T) {
	var gotBody, gotType, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotUser, gotPass, _ = r.BasicAuth()
		assert.Equal(t, "/soap", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte("<ok/>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.SendSOAP(context.Background(), "<envelope/>")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "<ok/>", resp.Text())
	assert.Equal(t, "<envelope/>", gotBody)
	assert.Equal(t, "text/xml; charset=utf-8", gotType)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		kind     Kind
		sentinel error
	}{
		{401, KindAuth, ErrAuth},
		{500, KindServer, ErrServer},
		{404, KindStatus, ErrStatus},
		{201, KindStatus, ErrStatus},
		{503, KindStatus, ErrStatus},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("fault body"))
			}))
			defer srv.Close()

			c := newTestClient(t, srv)
			resp, err := c.SendSOAP(context.Background(), "<x/>")
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.ErrorIs(t, err, tt.sentinel)

			var vErr *Error
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.status, vErr.Status)

			require.NotNil(t, resp, "response should be returned alongside the error")
			assert.Equal(t, "fault body", resp.Text())
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.SendSOAP(context.Background(), "<x/>")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.SendSOAP(context.Background(), "<x/>")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestSendRESTRequiresDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected before bootstrap")
	}))
	defer srv.Close()

	cfg := config.Default().API
	cfg.RESTURL = srv.URL
	c := NewClient(cfg, Credentials{}, WithLogger(logger.Discard()))

	_, err := c.GetJSON(context.Background(), "campaigns", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDomain)
}

func TestSendRESTPathAndBody(t *testing.T) {
	var gotPath, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"id":"7"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	res, err := c.PutJSON(context.Background(), "skills/7", map[string]any{"whisperPrompt": map[string]string{"id": "9"}})
	require.NoError(t, err)
	assert.Equal(t, "/rest/42/skills/7", gotPath)
	assert.JSONEq(t, `{"whisperPrompt":{"id":"9"}}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "7", res.Get("id").String())

	_, err = c.PostJSON(context.Background(), "call-lists", `{"name":"Quality Issues","kind":"CALL_LIST"}`)
	require.NoError(t, err)
	assert.Equal(t, "/rest/42/call-lists", gotPath)
	assert.Equal(t, `{"name":"Quality Issues","kind":"CALL_LIST"}`, gotBody)
}

func TestGetJSONInvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetJSON(context.Background(), "campaigns", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestFirstEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("filter"), "Missing") {
			_, _ = w.Write([]byte(`{"entities":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"entities":[{"id":"cv-1","name":"Call.ANI"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	got, err := c.FirstEntity(context.Background(), "call-variables", `fullName=="Call.ANI"`)
	require.NoError(t, err)
	assert.Equal(t, "cv-1", got.Get("id").String())

	_, err = c.FirstEntity(context.Background(), "call-variables", `fullName=="Missing"`)
	assert.ErrorIs(t, err, ErrNotFound)
}

// pagedServer 提供 total 筆資料的分頁端點
func pagedServer(t *testing.T, total int, withTotalCount bool, requests *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+limit, total)

		var b strings.Builder
		b.WriteString(`{"entities":[`)
		for i := offset; i < end; i++ {
			if i > offset {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"id":"%d","name":"item-%d"}`, i, i)
		}
		fmt.Fprintf(&b, `],"resultsCount":%d`, max(end-offset, 0))
		if withTotalCount {
			fmt.Fprintf(&b, `,"totalCount":%d`, total)
		}
		b.WriteString("}")
		_, _ = w.Write([]byte(b.String()))
	}))
}

func TestListAllPagination(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		withTotalCount bool
		wantRequests   int32
	}{
		{"250 items", 250, false, 3},
		{"exact page multiple", 200, false, 3},
		{"exact multiple with total count", 200, true, 2},
		{"single partial page", 5, false, 1},
		{"empty", 0, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests int32
			srv := pagedServer(t, tt.total, tt.withTotalCount, &requests)
			defer srv.Close()

			c := newTestClient(t, srv)
			items, err := c.ListAll(context.Background(), "scripts", ListOptions{})
			require.NoError(t, err)
			assert.Len(t, items, tt.total)
			assert.Equal(t, tt.wantRequests, atomic.LoadInt32(&requests))

			seen := make(map[string]bool, len(items))
			for _, it := range items {
				id := it.Get("id").String()
				assert.False(t, seen[id], "duplicate item %s", id)
				seen[id] = true
			}
		})
	}
}

func TestListAllStopsOnError(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var b strings.Builder
		b.WriteString(`{"entities":[`)
		for i := 0; i < 100; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"id":"%d"}`, i)
		}
		b.WriteString(`],"resultsCount":100}`)
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	items, err := c.ListAll(context.Background(), "skills", ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Len(t, items, 100)
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(KindServer, "get campaigns", 500, nil)
	assert.Contains(t, err.Error(), "get campaigns")
	assert.Contains(t, err.Error(), "status 500")
	assert.True(t, errors.Is(err, ErrServer))
	assert.False(t, errors.Is(err, ErrAuth))

	wrapped := fmt.Errorf("outer: %w", Errorf(KindConflict, "add parameter", "parameter %q exists", "lang"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "conflict", KindConflict.String())
}
