package zip

import (
	"fmt"

	"github.com/gobeaver/docview"
)

func init() {
	docview.RegisterDriver("zip", func(cfg *docview.Config) (docview.FileReader, error) {
		if cfg.ZipPath == "" {
			return nil, fmt.Errorf("zip driver requires an archive path")
		}
		return Open(cfg.ZipPath)
	})
}
