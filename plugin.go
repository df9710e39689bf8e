package docview

import (
	"fmt"

	"github.com/gobeaver/docview/filetype"
)

// Plugin names the viewer component that renders a document
type Plugin string

// Viewer plugins
const (
	PluginPDF     Plugin = "pdf"
	PluginMSExcel Plugin = "msexcel" // xlsx
	PluginExcel   Plugin = "excel"   // xls
	PluginImages  Plugin = "images"
	PluginMSWord  Plugin = "msword" // docx
	PluginEbook   Plugin = "ebook"
)

var pluginBySimpleType = map[string]Plugin{
	filetype.TypePDF:   PluginPDF,
	filetype.TypeXLSX:  PluginMSExcel,
	filetype.TypeXLS:   PluginExcel,
	filetype.TypeImage: PluginImages,
	filetype.TypeDOCX:  PluginMSWord,
	filetype.TypeEbook: PluginEbook,
}

// Plugins returns every plugin name
func Plugins() []Plugin {
	return []Plugin{PluginPDF, PluginMSExcel, PluginExcel, PluginImages, PluginMSWord, PluginEbook}
}

// Valid reports whether p is a known plugin
func (p Plugin) Valid() bool {
	for _, known := range Plugins() {
		if p == known {
			return true
		}
	}
	return false
}

// DispatchError reports that a classified document cannot be shown
type DispatchError struct {
	SimpleType  string
	ContentType string
	Plugin      Plugin // set when the plugin exists but is disabled
	Err         error  // ErrNoPlugin or ErrPluginDisabled
}

func (e *DispatchError) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err, e.Plugin, e.SimpleType)
	}
	return fmt.Sprintf("%s: %q", e.Err, e.SimpleType)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatch picks the plugin for a classified document. doc, ppt, pptx and
// anything unrecognised have no plugin.
func Dispatch(ft filetype.FileType, disabled []Plugin) (Plugin, error) {
	plugin, ok := pluginBySimpleType[ft.SimpleType]
	if !ok {
		return "", &DispatchError{SimpleType: ft.SimpleType, ContentType: ft.ContentType, Err: ErrNoPlugin}
	}

	for _, d := range disabled {
		if d == plugin {
			return "", &DispatchError{
				SimpleType:  ft.SimpleType,
				ContentType: ft.ContentType,
				Plugin:      plugin,
				Err:         ErrPluginDisabled,
			}
		}
	}

	return plugin, nil
}
