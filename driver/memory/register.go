package memory

import "github.com/gobeaver/docview"

func init() {
	docview.RegisterDriver("memory", func(cfg *docview.Config) (docview.FileReader, error) {
		return New(), nil
	})
}
