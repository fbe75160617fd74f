package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/stretchr/testify/require"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	stdout *bytes.Buffer
	stderr *hookWriter
}

// newTestApp returns an app that stores its configuration and databases in
// dir. Databases are SQLite files, so the OS filesystem is used.
func newTestApp(ctx context.Context, t *testing.T, dir string) *testApp {
	t.Helper()

	stdout, stderr := &bytes.Buffer{}, newHookWriter()
	app, err := New("vocbase",
		filepath.Join(dir, "config.json"), filepath.Join(dir, "data"),
		WithContext(ctx),
		WithTimeNow(timeNowFn),
		WithFS(osfs.New()),
		WithFDs(strings.NewReader(""), stdout, stderr),
	)
	require.NoError(t, err)

	// Not using WithLogger, since it replaces the default logger shared by
	// parallel tests.
	app.ctx.Logger = slog.New(tint.NewHandler(stderr, &tint.Options{
		Level: slog.LevelDebug, NoColor: true,
	}))

	return &testApp{App: app, stdout: stdout, stderr: stderr}
}

func (ta *testApp) Run(args ...string) error {
	return ta.App.Run(args)
}

// hookWriter is a concurrency-safe buffer that signals when a written line
// contains a pattern.
type hookWriter struct {
	mx    sync.Mutex
	buf   bytes.Buffer
	hooks map[string]chan struct{}
}

func newHookWriter() *hookWriter {
	return &hookWriter{hooks: map[string]chan struct{}{}}
}

func (hw *hookWriter) Write(p []byte) (int, error) {
	hw.mx.Lock()
	defer hw.mx.Unlock()

	for pattern, ch := range hw.hooks {
		if bytes.Contains(p, []byte(pattern)) {
			close(ch)
			delete(hw.hooks, pattern)
		}
	}

	return hw.buf.Write(p)
}

func (hw *hookWriter) String() string {
	hw.mx.Lock()
	defer hw.mx.Unlock()
	return hw.buf.String()
}

// On returns a channel that is closed once pattern is written.
func (hw *hookWriter) On(pattern string) <-chan struct{} {
	hw.mx.Lock()
	defer hw.mx.Unlock()

	ch := make(chan struct{})
	hw.hooks[pattern] = ch

	return ch
}

// tableRows returns the rows of a rendered table without the header, with
// cells separated by single spaces.
func tableRows(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		if row := strings.Join(strings.Fields(line), " "); row != "" {
			rows = append(rows, row)
		}
	}

	return rows
}
