package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type contextKey string

const eventIDKey contextKey = "event_id"

// Options configures Handler output.
type Options struct {
	// Level reports the minimum level to log. Defaults to slog.LevelInfo when nil.
	Level slog.Leveler

	TimeFormat string

	// ShowSource prints the short file:line of the log call.
	ShowSource bool

	// NoColor strips ANSI escapes from every line.
	NoColor bool
}

var DefaultOptions = &Options{
	Level:      slog.LevelDebug,
	TimeFormat: time.DateTime,
	ShowSource: true,
}

var levelBadges = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.BgCyan, color.FgHiWhite),
	slog.LevelInfo:  color.New(color.BgGreen, color.FgHiWhite),
	slog.LevelWarn:  color.New(color.BgYellow, color.FgHiWhite),
	slog.LevelError: color.New(color.BgRed, color.FgHiWhite),
}

var (
	faint   = color.New(color.Faint)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgCyan)
	red     = color.New(color.FgRed)
)

// Handler is a colored single-line slog.Handler.
type Handler struct {
	opts   Options
	attrs  []slog.Attr
	groups []string

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a Handler writing to out. A nil opts means [DefaultOptions].
func NewHandler(out io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = DefaultOptions
	}
	return &Handler{opts: *opts, mu: &sync.Mutex{}, out: out}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	bf := bufPool.Get().(*bytes.Buffer)
	bf.Reset()
	defer bufPool.Put(bf)

	if !r.Time.IsZero() {
		bf.WriteString(faint.Sprint(r.Time.Format(h.opts.TimeFormat)))
		bf.WriteByte(' ')
	}

	if eventID, ok := EventIDFromContext(ctx); ok {
		bf.WriteString(magenta.Sprint(eventID))
		bf.WriteByte(' ')
	}

	bf.WriteString(levelBadge(r.Level))
	bf.WriteByte(' ')

	if h.opts.ShowSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(bf, "%s:%d ", filepath.Base(f.File), f.Line)
	}

	bf.WriteString(color.HiWhiteString("| "))
	bf.WriteString(r.Message)

	writeAttr := func(key string, v slog.Value) {
		c := cyan
		if strings.Contains(key, "err") {
			c = red
		}
		bf.WriteByte(' ')
		bf.WriteString(c.Sprintf("%s=", key))
		bf.WriteString(v.String())
	}
	for _, a := range h.attrs {
		writeAttr(a.Key, a.Value)
	}
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(prefix+a.Key, a.Value)
		return true
	})
	bf.WriteByte('\n')

	line := bf.Bytes()
	if h.opts.NoColor {
		line = ansi.ReplaceAll(line, nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line)
	return err
}

// WithAttrs stores attrs with the group prefix that is current at the time of the call.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr{}, h.attrs...)
	prefix := h.groupPrefix()
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	h2 := *h
	h2.groups = append(append([]string{}, h.groups...), name)
	return &h2
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func levelBadge(level slog.Level) string {
	name := fmt.Sprintf("%-5s", level.String())
	if c, ok := levelBadges[level]; ok {
		return c.Sprint(name)
	}
	return name
}

var bufPool = sync.Pool{
	New: func() any { return &bytes.Buffer{} },
}

var ansi = regexp.MustCompile("[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))")

// Err wraps an error as a log attribute.
func Err(err error) slog.Attr {
	return slog.Any("err", err)
}

func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDKey, eventID)
}

func EventIDFromContext(ctx context.Context) (string, bool) {
	eventID, ok := ctx.Value(eventIDKey).(string)
	return eventID, ok
}
