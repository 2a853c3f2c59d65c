package gib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

// DumpDocument writes the canonical XML to dir for operator troubleshooting.
// Best-effort side channel: any failure is logged at debug level and never
// blocks the submission that triggered it. A blank dir disables the dump.
func DumpDocument(dir, documentNumber string, xmlBytes []byte, log *logger.Logger) {
	if dir == "" {
		return
	}
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, documentNumber)
	path := filepath.Join(dir, name+".xml")
	if err := os.WriteFile(path, xmlBytes, 0o644); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("debug dump failed")
		return
	}
	log.Debug().Str("path", path).Msg("canonical document dumped")
}
