// docview classifies documents for the viewer and serves the classification
// API over HTTP.
//
// Configuration comes from BEAVER_DOCVIEW_* environment variables; command
// flags override it.
//
//	docview classify report.pdf budget.xlsx
//	docview classify --mime application/msword minutes.bin
//	docview list reports --pattern '*.xls?' --recursive
//	docview mime-types
//	docview serve --addr :9000
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"

	"github.com/gobeaver/docview"
	_ "github.com/gobeaver/docview/driver/azure"
	_ "github.com/gobeaver/docview/driver/gcs"
	_ "github.com/gobeaver/docview/driver/local"
	_ "github.com/gobeaver/docview/driver/memory"
	_ "github.com/gobeaver/docview/driver/s3"
	_ "github.com/gobeaver/docview/driver/sftp"
	_ "github.com/gobeaver/docview/driver/zip"
	"github.com/gobeaver/docview/server"
)

// exitError carries a process exit code other than 1
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

func commands() []command {
	return []command{
		{"classify", "identify local files and pick their viewer plugin", runClassify},
		{"list", "list viewable documents in the configured store", runList},
		{"mime-types", "print the MIME types and extensions accepted for upload", runMIMETypes},
		{"serve", "serve the classification API over HTTP", runServe},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		return nil
	}

	for _, cmd := range commands() {
		if cmd.name == args[0] {
			return cmd.run(ctx, args[1:], stdout, stderr)
		}
	}

	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n  docview <command> [flags]\n\nCommands:\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commands() {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nRun 'docview <command> --help' for the flags of a command.\n")
}

// parseFlags parses args into fs. A help request is reported as done=true
// with a nil error.
func parseFlags(fs *pflag.FlagSet, args []string, stderr io.Writer) (done bool, err error) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return true, err
	}
	return false, nil
}

func runClassify(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		mimeType      string
		extensionOnly bool
		asJSON        bool
		logLevel      string
	)
	fs := pflag.NewFlagSet("classify", pflag.ContinueOnError)
	fs.StringVar(&mimeType, "mime", "", "declared MIME type for every file")
	fs.BoolVar(&extensionOnly, "extension-only", false, "identify by file name and MIME type without reading content")
	fs.BoolVar(&asJSON, "json", false, "print documents as JSON")
	fs.StringVar(&logLevel, "log-level", "", "override DOCVIEW_LOG_LEVEL")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  docview classify [flags] files...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if done, err := parseFlags(fs, args, stderr); done {
		return err
	}

	files := fs.Args()
	if len(files) == 0 {
		return docview.ErrNoFile
	}

	cfg, err := docview.GetConfig()
	if err != nil {
		return err
	}
	// files come from the command line, not from a store
	cfg.Driver = "memory"
	cfg.Mounts = ""
	if extensionOnly {
		cfg.Identification = docview.IdentifyByExtension
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	v, err := newViewer(cfg, stderr)
	if err != nil {
		return err
	}
	defer v.Close()

	var (
		results    []classifyResult
		unviewable int
	)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := classifyFile(v, file, mimeType)
		if res.Message != "" {
			unviewable++
		}
		results = append(results, res)
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tTYPE\tCONTENT\tSIZE\tRESULT")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.File, dash(r.SimpleType), dash(r.ContentType), units.HumanSize(float64(r.Size)), r.outcome())
		}
		tw.Flush()
	}

	if unviewable > 0 {
		return &exitError{code: 2, msg: fmt.Sprintf("%d of %d files cannot be shown", unviewable, len(files))}
	}
	return nil
}

type classifyResult struct {
	File        string             `json:"file"`
	SimpleType  string             `json:"simpleType,omitempty"`
	ContentType string             `json:"contentType,omitempty"`
	Ambiguous   bool               `json:"ambiguous,omitempty"`
	Size        int64              `json:"size"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Plugin      docview.Plugin     `json:"plugin,omitempty"`
	Message     docview.MessageKey `json:"message,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (r classifyResult) outcome() string {
	if r.Plugin != "" {
		if r.Ambiguous {
			return string(r.Plugin) + " (unconfirmed)"
		}
		return string(r.Plugin)
	}
	return string(r.Message)
}

func classifyFile(v *docview.Viewer, file, mimeType string) classifyResult {
	res := classifyResult{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		res.Message = docview.MessageSomethingWrong
		res.Error = err.Error()
		return res
	}
	res.Size = int64(len(data))

	doc, err := v.OpenBytes(data, filepath.Base(file), mimeType)
	if doc != nil {
		res.SimpleType = doc.Type.SimpleType
		res.ContentType = doc.Type.ContentType
		res.Ambiguous = doc.Type.Ambiguous()
		res.Fingerprint = doc.Fingerprint
		res.Plugin = doc.Plugin
	}
	if err != nil {
		res.Message = docview.MessageFor(err)
		res.Error = err.Error()
	}
	return res
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		pattern   string
		recursive bool
		asJSON    bool
	)
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.StringVarP(&pattern, "pattern", "p", "", "glob the documents must match, e.g. '*.{xls,xlsx}'")
	fs.BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	fs.BoolVar(&asJSON, "json", false, "print entries as JSON")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  docview list [dir] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if done, err := parseFlags(fs, args, stderr); done {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(1))
	}
	dir := fs.Arg(0)

	cfg, err := docview.GetConfig()
	if err != nil {
		return err
	}
	v, err := newViewer(cfg, stderr)
	if err != nil {
		return err
	}
	defer v.Close()

	var selector docview.FileSelector
	if pattern != "" {
		selector = docview.Glob(pattern)
	}

	files, err := v.List(ctx, dir, selector, recursive)
	if err != nil {
		return err
	}

	if asJSON {
		if files == nil {
			files = []docview.FileInfo{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Path, units.HumanSize(float64(f.Size)), f.ModTime.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runMIMETypes(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		extensions bool
		asJSON     bool
	)
	fs := pflag.NewFlagSet("mime-types", pflag.ContinueOnError)
	fs.BoolVar(&extensions, "extensions", false, "print extensions instead of MIME types")
	fs.BoolVar(&asJSON, "json", false, "print the accept list as JSON")
	if done, err := parseFlags(fs, args, stderr); done {
		return err
	}

	accept := docview.AcceptList()
	if asJSON {
		return json.NewEncoder(stdout).Encode(accept)
	}

	values := accept.MIMETypes
	if extensions {
		values = accept.Extensions
	}
	for _, v := range values {
		fmt.Fprintln(stdout, v)
	}
	return nil
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		addr          string
		maxUploadSize string
	)
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVar(&addr, "addr", "", "listen address (default from DOCVIEW_SERVER_ADDR or :8080)")
	fs.StringVar(&maxUploadSize, "max-upload", "", "cap on upload request bodies, e.g. 50MB (default DOCVIEW_MAX_DOCUMENT_SIZE plus 1MB)")
	if done, err := parseFlags(fs, args, stderr); done {
		return err
	}

	cfg, err := docview.GetConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	logger, err := docview.NewLogger(cfg, stderr)
	if err != nil {
		return err
	}

	v, err := docview.NewViewerFromConfig(cfg, docview.WithLogger(logger))
	if err != nil {
		return err
	}
	defer v.Close()

	limit, err := uploadLimit(cfg, maxUploadSize)
	if err != nil {
		return err
	}

	logger.Info("starting docview",
		"driver", cfg.Driver,
		"identification", cfg.Identification,
		"max_upload", units.HumanSize(float64(limit)))

	return server.New(v, logger, limit).ListenAndServe(ctx, cfg.ListenAddr())
}

// uploadLimit returns the request body cap for uploads: the flag when set,
// otherwise the document limit plus room for the multipart envelope. Zero
// means no cap.
func uploadLimit(cfg *docview.Config, flag string) (int64, error) {
	if flag != "" {
		n, err := units.FromHumanSize(flag)
		if err != nil {
			return 0, fmt.Errorf("invalid --max-upload %q: %w", flag, err)
		}
		return n, nil
	}

	maxDoc, err := cfg.MaxDocumentBytes()
	if err != nil || maxDoc == 0 {
		return 0, err
	}
	return maxDoc + units.MB, nil
}

// newViewer builds the viewer from cfg with logs going to stderr
func newViewer(cfg *docview.Config, stderr io.Writer) (*docview.Viewer, error) {
	logger, err := docview.NewLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	return docview.NewViewerFromConfig(cfg, docview.WithLogger(logger))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
