package runlog

import (
	"fmt"

	"github.com/kilianp07/simforecast/config"
	"github.com/kilianp07/simforecast/core/runlog"
)

// New opens the store selected by cfg.Backend.
func New(cfg config.RunLogConfig) (runlog.Store, error) {
	switch cfg.Backend {
	case "none":
		return runlog.NopStore{}, nil
	case "jsonl":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown run log backend %s", cfg.Backend)
	}
}
