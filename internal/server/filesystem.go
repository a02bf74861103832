package server

import (
	"os"

	"github.com/JxcChen/bili-pro/internal/config"
)

// PrepareFilesystem ensures necessary directories exist
func PrepareFilesystem(cfg *config.Config) error {
	return os.MkdirAll(cfg.TempDir, 0755)
}
