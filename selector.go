package docview

import (
	"context"
	"strings"

	"github.com/gobwas/glob"

	"github.com/gobeaver/docview/filetype"
)

// FileSelector filters store listings.
//
// Selectors compose with And, Or and Not:
//
//	// PDFs and workbooks under /reports, at most two levels deep
//	selector := docview.And(
//	    docview.Or(docview.Glob("*.pdf"), docview.Glob("*.xls?")),
//	    docview.Depth(2, "/reports"),
//	)
//	docs, err := docview.ListWithSelector(ctx, store, "/reports", selector, true)
type FileSelector interface {
	// Match returns true if the file should be included in results.
	Match(file *FileInfo) bool

	// TraverseDescendants reports whether a directory is worth descending
	// into. Only called for directories.
	TraverseDescendants(file *FileInfo) bool
}

// ListWithSelector lists the files under path accepted by selector. With
// recursive set it walks into every directory the selector lets it traverse.
func ListWithSelector(ctx context.Context, store FileReader, path string, selector FileSelector, recursive bool) ([]FileInfo, error) {
	if selector == nil {
		selector = All()
	}

	var results []FileInfo
	if err := walk(ctx, store, path, selector, recursive, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func walk(ctx context.Context, store FileReader, path string, selector FileSelector, recursive bool, results *[]FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := store.ListContents(ctx, path, false)
	if err != nil {
		return err
	}

	for i := range entries {
		entry := &entries[i]

		if !entry.IsDir {
			if selector.Match(entry) {
				*results = append(*results, *entry)
			}
			continue
		}

		if recursive && selector.TraverseDescendants(entry) {
			if err := walk(ctx, store, entry.Path, selector, recursive, results); err != nil {
				return err
			}
		}
	}

	return nil
}

type allSelector struct{}

func (allSelector) Match(*FileInfo) bool               { return true }
func (allSelector) TraverseDescendants(*FileInfo) bool { return true }

// All matches every file and traverses every directory.
func All() FileSelector {
	return allSelector{}
}

type globSelector struct {
	pattern  glob.Glob
	fullPath bool
}

// Glob matches files against a glob pattern. Patterns without a slash match
// the base name; patterns with one match the whole path, where ** crosses
// directories. Supports *, ?, [abc], [a-z] and {a,b}.
//
//	Glob("*.pdf")            // any PDF
//	Glob("*.{xls,xlsx}")     // workbooks
//	Glob("reports/**.docx")  // Word files anywhere under reports/
//
// An invalid pattern matches nothing.
func Glob(pattern string) FileSelector {
	s := &globSelector{fullPath: strings.Contains(pattern, "/")}
	g, err := glob.Compile(strings.TrimPrefix(pattern, "/"), '/')
	if err == nil {
		s.pattern = g
	}
	return s
}

func (s *globSelector) Match(file *FileInfo) bool {
	if s.pattern == nil {
		return false
	}
	if s.fullPath {
		return s.pattern.Match(strings.TrimPrefix(file.Path, "/"))
	}
	return s.pattern.Match(file.Name)
}

func (s *globSelector) TraverseDescendants(*FileInfo) bool {
	return true
}

type depthSelector struct {
	maxDepth int
	basePath string
}

// Depth limits traversal to maxDepth levels below basePath.
// Depth 1 means immediate children only.
func Depth(maxDepth int, basePath string) FileSelector {
	return &depthSelector{
		maxDepth: maxDepth,
		basePath: strings.Trim(basePath, "/"),
	}
}

func (s *depthSelector) depth(path string) int {
	rel := strings.Trim(path, "/")
	if s.basePath != "" {
		rel = strings.TrimPrefix(rel, s.basePath)
		rel = strings.Trim(rel, "/")
	}
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func (s *depthSelector) Match(file *FileInfo) bool {
	return s.depth(file.Path) <= s.maxDepth
}

func (s *depthSelector) TraverseDescendants(file *FileInfo) bool {
	return s.depth(file.Path) < s.maxDepth
}

type viewableSelector struct{}

// Viewable matches files whose extension the classifier knows, so listings
// only offer documents the viewer can identify without reading them.
func Viewable() FileSelector {
	return viewableSelector{}
}

func (viewableSelector) Match(file *FileInfo) bool {
	return filetype.KnownExtension(filetype.Extension(file.Name))
}

func (viewableSelector) TraverseDescendants(*FileInfo) bool { return true }

type andSelector []FileSelector

// And matches only if every selector matches.
func And(selectors ...FileSelector) FileSelector {
	return andSelector(selectors)
}

func (s andSelector) Match(file *FileInfo) bool {
	for _, sel := range s {
		if !sel.Match(file) {
			return false
		}
	}
	return true
}

func (s andSelector) TraverseDescendants(file *FileInfo) bool {
	for _, sel := range s {
		if !sel.TraverseDescendants(file) {
			return false
		}
	}
	return true
}

type orSelector []FileSelector

// Or matches if any selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return orSelector(selectors)
}

func (s orSelector) Match(file *FileInfo) bool {
	for _, sel := range s {
		if sel.Match(file) {
			return true
		}
	}
	return false
}

func (s orSelector) TraverseDescendants(file *FileInfo) bool {
	for _, sel := range s {
		if sel.TraverseDescendants(file) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match result. Traversal is never restricted.
func Not(selector FileSelector) FileSelector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(file *FileInfo) bool {
	return !s.selector.Match(file)
}

func (s *notSelector) TraverseDescendants(*FileInfo) bool {
	return true
}

type funcSelector func(*FileInfo) bool

// FuncSelector wraps a match function; all directories are traversed.
//
//	FuncSelector(func(f *docview.FileInfo) bool {
//	    return f.Size < 20<<20
//	})
func FuncSelector(fn func(*FileInfo) bool) FileSelector {
	return funcSelector(fn)
}

func (f funcSelector) Match(file *FileInfo) bool          { return f(file) }
func (funcSelector) TraverseDescendants(*FileInfo) bool { return true }
