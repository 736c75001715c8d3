package gpu

import (
	"log/slog"

	"github.com/gogpu/volren"
)

// slogger returns the module-wide logger configured via volren.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return volren.Logger() }
