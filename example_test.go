package docview_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/driver/memory"
)

func ExampleViewer_Open() {
	ctx := context.Background()

	store := memory.New()
	_ = store.Write(ctx, "reports/q1.xlsx", bytes.NewReader([]byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00}))

	v := docview.NewViewer(store)

	doc, err := v.Open(ctx, "reports/q1.xlsx")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(doc.Type.SimpleType, doc.Plugin)
	// Output: xlsx msexcel
}

func ExampleMessageFor() {
	v := docview.NewViewer(nil)

	ole := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	_, err := v.OpenBytes(ole, "minutes.doc", "application/msword")

	fmt.Println(errors.Is(err, docview.ErrNoPlugin))
	fmt.Println(docview.MessageFor(err))
	// Output:
	// true
	// formatInfoDocx
}

func ExampleViewer_List() {
	ctx := context.Background()

	store := memory.New()
	for _, name := range []string{"a.pdf", "notes.txt", "reports/q1.xlsx", "reports/old/q4.xls"} {
		_ = store.Write(ctx, name, bytes.NewReader([]byte("...")))
	}

	v := docview.NewViewer(store)
	files, _ := v.List(ctx, "/", docview.Not(docview.Glob("*.pdf")), true)
	for _, f := range files {
		fmt.Println(f.Path)
	}
	// Output:
	// reports/old/q4.xls
	// reports/q1.xlsx
}

func ExampleDispatch_disabled() {
	v := docview.NewViewer(nil, docview.WithDisabledPlugins(docview.PluginImages))

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	_, err := v.OpenBytes(png, "logo.png", "image/png")

	fmt.Println(docview.MessageFor(err))
	// Output: pluginDisabled
}
