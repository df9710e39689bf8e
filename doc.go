// Package docview opens documents for an in-browser viewer and decides
// which viewer plugin can show them.
//
// A document arrives from a store, a URL, a multipart upload or a buffer.
// The [Viewer] reads it, classifies it with the filetype package, dispatches
// it to a [Plugin] and, when it cannot be shown, maps the failure to the
// overlay message the user sees.
//
// # Stores
//
// Stores are read-only and implement [FileReader]. Drivers register
// themselves on import:
//
//   - Local disk (github.com/gobeaver/docview/driver/local)
//   - Amazon S3 and compatible servers (github.com/gobeaver/docview/driver/s3)
//   - In-memory (github.com/gobeaver/docview/driver/memory)
//   - Google Cloud Storage (github.com/gobeaver/docview/driver/gcs)
//   - Azure Blob Storage (github.com/gobeaver/docview/driver/azure)
//   - SFTP servers (github.com/gobeaver/docview/driver/sftp)
//   - ZIP archives (github.com/gobeaver/docview/driver/zip)
//
// [Mounts] combines stores in one namespace, for example a case archive
// next to the shared drive:
//
//	mounts := docview.NewMounts(shared)
//	mounts.Mount("archive", bundle)
//	v := docview.NewViewer(mounts)
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/docview/driver/local"
//
//	v, err := docview.NewViewerFromConfig(&docview.Config{
//	    Driver:        "local",
//	    LocalBasePath: "./documents",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	doc, err := v.Open(ctx, "reports/q1.xlsx")
//	if err != nil {
//	    // doc may still be set; show the overlay instead of the document
//	    fmt.Println(docview.MessageFor(err).Text())
//	    return
//	}
//	fmt.Println(doc.Plugin) // msexcel
//
// # Plugins and Messages
//
// [Dispatch] maps a classified type to pdf, msexcel, excel, images, msword
// or ebook. Legacy Word files and PowerPoint decks have no plugin; the
// error they produce maps to an advice message through [MessageFor]:
//
//	_, err := v.OpenBytes(data, "minutes.doc", "")
//	docview.MessageFor(err) // formatInfoDocx
//
// # Watching and Caching
//
// Stores that implement [CanWatch] report changes through single-use
// [ChangeToken] values. Remote stores poll with [WatchByListing]. [OnChange] re-subscribes after every change, and
// [CachingReader] uses it to drop cached listings:
//
//	cached := docview.NewCachingReader(store, time.Minute)
//	stop := cached.InvalidateOnChange(ctx, "**")
//	defer stop()
//
// # Selecting Documents
//
//	selector := docview.And(
//	    docview.Glob("*.{xls,xlsx}"),
//	    docview.Depth(2, "/reports"),
//	)
//	files, err := v.List(ctx, "/reports", selector, true)
//
// # Error Handling
//
//	_, err := v.Open(ctx, "missing.pdf")
//	if docview.IsNotExist(err) {
//	    // no such document
//	}
//
//	var pathErr *docview.PathError
//	if errors.As(err, &pathErr) {
//	    fmt.Printf("Operation: %s, Path: %s\n", pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// [GetConfig] reads BEAVER_DOCVIEW_* environment variables; [WithPrefix]
// selects another prefix. [Init] and [Default] manage a process-wide viewer.
package docview
