/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T) (*httptest.Server, func() []map[string]any) {
	t.Helper()
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		var m map[string]any
		if json.Unmarshal(b, &m) == nil {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		return append([]map[string]any(nil), got...)
	}
}

func waitFor(n int, read func() []map[string]any) []map[string]any {
	deadline := time.Now().Add(2 * time.Second)
	for {
		ev := read()
		if len(ev) >= n || time.Now().After(deadline) {
			return ev
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDefaultClientExportEvents(t *testing.T) {
	srv, read := collect(t)
	NewDefault(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	t.Cleanup(func() { NewDefault(Config{}) })

	ExportDone("pdf", 3, 1500*time.Millisecond)
	ExportFailed("typst-pdf", "render_backend_failure")
	Flush(context.Background())

	ev := waitFor(2, read)
	if len(ev) != 2 {
		t.Fatalf("want 2 events, got %d", len(ev))
	}
	byName := map[string]map[string]any{}
	for _, e := range ev {
		byName[e["name"].(string)] = e
	}
	done := byName[EventExportDone]
	if done == nil || done["format"] != "pdf" || done["pages"] != float64(3) || done["ms"] != float64(1500) {
		t.Fatalf("export_done payload: %v", done)
	}
	failed := byName[EventExportFailed]
	if failed == nil || failed["kind"] != "render_backend_failure" {
		t.Fatalf("export_failed payload: %v", failed)
	}
	// Only format, counts and kind leave the machine; never document text.
	for _, e := range ev {
		for k := range e {
			switch k {
			case "name", "ts", "version", "os", "arch", "format", "pages", "ms", "kind":
			default:
				t.Fatalf("unexpected field %q in %v", k, e)
			}
		}
	}
}

func TestSendFailureIsQuiet(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event(EventAppStarted, map[string]any{"cmd": "export"})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(50 * time.Millisecond)
}

func TestFlushReturnsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Flush(ctx)
}

func TestDefaultClientLazyInit(t *testing.T) {
	t.Setenv("SHW_TELEMETRY_OPT_IN", "")
	NewDefault(Config{})
	defaultMu.Lock()
	old := defaultClient
	defaultClient = nil
	defaultMu.Unlock()
	old.Close()
	t.Cleanup(func() { NewDefault(Config{}) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		ExportDone("pdf", 1, time.Millisecond)
		ExportFailed("png", "io_failure")
		_ = Enabled()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first use of the default client did not return")
	}
	defaultMu.Lock()
	c := defaultClient
	defaultMu.Unlock()
	if c == nil {
		t.Fatal("default client not created on first use")
	}
}
