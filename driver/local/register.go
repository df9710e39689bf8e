package local

import "github.com/gobeaver/docview"

func init() {
	docview.RegisterDriver("local", func(cfg *docview.Config) (docview.FileReader, error) {
		return New(cfg.LocalBasePath)
	})
}
