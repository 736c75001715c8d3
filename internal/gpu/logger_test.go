package gpu

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/gogpu/volren"
)

type countingHandler struct {
	records atomic.Int32
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *countingHandler) Handle(context.Context, slog.Record) error {
	h.records.Add(1)
	return nil
}
func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func TestLoggerFollowsModuleConfiguration(t *testing.T) {
	h := &countingHandler{}
	volren.SetLogger(slog.New(h))
	defer volren.SetLogger(nil)

	slogger().Info("device opened")
	if got := h.records.Load(); got != 1 {
		t.Fatalf("got %d records, want 1", got)
	}

	volren.SetLogger(nil)
	slogger().Info("discarded")
	if got := h.records.Load(); got != 1 {
		t.Fatalf("nop logger still reached the handler: %d records", got)
	}
}
