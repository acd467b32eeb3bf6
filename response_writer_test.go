package relay

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// recordingWriter is an http.ResponseWriter with no optional interfaces.
type recordingWriter struct {
	headers http.Header
	status  int
	body    []byte
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{headers: make(http.Header)}
}

func (w *recordingWriter) Header() http.Header { return w.headers }

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *recordingWriter) WriteHeader(status int) { w.status = status }

var errHijack = errors.New("hijack refused")

// capableWriter supports Flush, Hijack and Push and records each call.
type capableWriter struct {
	*recordingWriter
	flushed    bool
	hijacked   bool
	pushTarget string
}

func (w *capableWriter) Flush() { w.flushed = true }

func (w *capableWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, errHijack
}

func (w *capableWriter) Push(target string, _ *http.PushOptions) error {
	w.pushTarget = target
	return nil
}

func TestResponseWriter_TracksStatusAndSize(t *testing.T) {
	inner := newRecordingWriter()
	rw := wrapResponseWriter(inner)

	if rw.Written() || rw.Status() != http.StatusOK || rw.Size() != 0 {
		t.Fatalf("fresh writer: written=%v status=%d size=%d", rw.Written(), rw.Status(), rw.Size())
	}

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusInternalServerError)
	if _, err := rw.Write([]byte("short")); err != nil {
		t.Fatal(err)
	}
	if _, err := rw.Write([]byte(" and stout")); err != nil {
		t.Fatal(err)
	}

	if rw.Status() != http.StatusTeapot || inner.status != http.StatusTeapot {
		t.Errorf("first WriteHeader should win, got %d (inner %d)", rw.Status(), inner.status)
	}
	if rw.Size() != 15 || string(inner.body) != "short and stout" {
		t.Errorf("size %d, body %q", rw.Size(), inner.body)
	}
}

func TestResponseWriter_WriteImpliesOK(t *testing.T) {
	rw := wrapResponseWriter(newRecordingWriter())

	if _, err := rw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if !rw.Written() || rw.Status() != http.StatusOK {
		t.Errorf("written=%v status=%d", rw.Written(), rw.Status())
	}
}

func TestResponseWriter_NotWrappedTwice(t *testing.T) {
	rw := wrapResponseWriter(newRecordingWriter())

	if again := wrapResponseWriter(rw); again != rw {
		t.Error("wrapping a tracked writer should return it unchanged")
	}
	if rw.(*responseWriter).Unwrap() == nil {
		t.Error("Unwrap should expose the inner writer")
	}
}

func TestResponseWriter_OptionalInterfaces(t *testing.T) {
	inner := &capableWriter{recordingWriter: newRecordingWriter()}
	rw := wrapResponseWriter(inner)

	rw.(http.Flusher).Flush()
	if !inner.flushed {
		t.Error("Flush was not forwarded")
	}
	if !rw.Written() {
		t.Error("Flush should mark the response as started")
	}

	if _, _, err := rw.(http.Hijacker).Hijack(); !errors.Is(err, errHijack) || !inner.hijacked {
		t.Errorf("Hijack was not forwarded: %v", err)
	}

	if err := rw.(http.Pusher).Push("/app.css", nil); err != nil || inner.pushTarget != "/app.css" {
		t.Errorf("Push was not forwarded: %v %q", err, inner.pushTarget)
	}
}

func TestResponseWriter_OptionalInterfacesUnsupported(t *testing.T) {
	rw := wrapResponseWriter(newRecordingWriter())

	// Flush on a writer that cannot flush is a no-op.
	rw.(http.Flusher).Flush()

	if _, _, err := rw.(http.Hijacker).Hijack(); !errors.Is(err, http.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported from Hijack, got %v", err)
	}
	if err := rw.(http.Pusher).Push("/app.css", nil); !errors.Is(err, http.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported from Push, got %v", err)
	}
}

func TestResponseWriter_SeenByActions(t *testing.T) {
	rt := New()

	var flusher, hijacker, pusher bool
	var status, size int
	rt.OnAll(func(ctx *Context, next Next) error {
		err := next()
		status, size = ctx.Response.Status(), ctx.Response.Size()
		return err
	})
	rt.Get("/test", func(ctx *Context, next Next) error {
		_, flusher = ctx.Response.(http.Flusher)
		_, hijacker = ctx.Response.(http.Hijacker)
		_, pusher = ctx.Response.(http.Pusher)
		return ctx.Send.Plain(http.StatusAccepted, "queued")
	})

	server := httptest.NewServer(rt)
	defer server.Close()

	resp, err := http.Get(server.URL + "/test")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if !flusher || !hijacker || !pusher {
		t.Errorf("optional interfaces missing: flusher=%v hijacker=%v pusher=%v", flusher, hijacker, pusher)
	}
	if status != http.StatusAccepted || size != len("queued") {
		t.Errorf("outer action saw status %d size %d", status, size)
	}
}
