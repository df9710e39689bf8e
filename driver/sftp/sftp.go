package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// DefaultPollInterval is how often Watch lists the remote tree
const DefaultPollInterval = time.Minute

// Config holds SFTP connection settings
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded
	BasePath   string
	// HostKey verifies the server; nil accepts any host key
	HostKey ssh.PublicKey
	Timeout time.Duration
}

// Adapter serves documents from a directory on an SFTP server. It is
// read-only.
type Adapter struct {
	client       *sftp.Client
	conn         io.Closer
	basePath     string
	pollInterval time.Duration
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithBasePath roots the store at dir on the server
func WithBasePath(dir string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = path.Clean("/" + dir)
	}
}

// WithPollInterval sets how often Watch checks for changes
func WithPollInterval(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// Dial connects to the server in cfg over SSH
func Dial(cfg Config, options ...AdapterOption) (*Adapter, error) {
	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
	}
	if cfg.HostKey != nil {
		sshConfig.HostKeyCallback = ssh.FixedHostKey(cfg.HostKey)
	}

	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(cfg.Password))
	}
	if len(sshConfig.Auth) == 0 {
		return nil, errors.New("no authentication method provided")
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, port), sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH: %w", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a := New(client, append([]AdapterOption{WithBasePath(cfg.BasePath)}, options...)...)
	a.conn = conn
	return a, nil
}

// New creates a store over an established client
func New(client *sftp.Client, options ...AdapterOption) *Adapter {
	a := &Adapter{
		client:       client,
		basePath:     "/",
		pollInterval: DefaultPollInterval,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Close closes the SFTP session and the SSH connection it runs on
func (a *Adapter) Close() error {
	err := a.client.Close()
	if a.conn != nil {
		err = errors.Join(err, a.conn.Close())
	}
	return err
}

// fullPath maps a store path below the base path. Cleaning against "/"
// first keeps ".." from escaping it.
func (a *Adapter) fullPath(p string) string {
	return path.Join(a.basePath, path.Clean("/"+p))
}

func (a *Adapter) relPath(full string) string {
	return strings.TrimPrefix(strings.TrimPrefix(full, a.basePath), "/")
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := a.client.Open(a.fullPath(filePath))
	if err != nil {
		return nil, mapSFTPError("read", filePath, err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, docview.WrapPathErr("read", filePath, docview.ErrIsDir)
	}
	return f, nil
}

// ReadAll implements docview.FileReader
func (a *Adapter) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	rc, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stat implements docview.FileReader. Servers declare no content type, so
// ContentType is derived from the extension.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := a.fullPath(filePath)
	info, err := a.client.Stat(full)
	if err != nil {
		return nil, mapSFTPError("stat", filePath, err)
	}

	fi := fileInfo(a.relPath(full), info)
	return &fi, nil
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]docview.FileInfo, error) {
	full := a.fullPath(dir)

	info, err := a.client.Stat(full)
	if err != nil {
		return nil, mapSFTPError("listcontents", dir, err)
	}
	if !info.IsDir() {
		return nil, docview.WrapPathErr("listcontents", dir, docview.ErrNotDir)
	}

	var entries []docview.FileInfo
	if err := a.list(ctx, full, recursive, &entries); err != nil {
		return nil, mapSFTPError("listcontents", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

func (a *Adapter) list(ctx context.Context, full string, recursive bool, entries *[]docview.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := a.client.ReadDir(full)
	if err != nil {
		return err
	}

	for _, info := range infos {
		child := path.Join(full, info.Name())
		*entries = append(*entries, fileInfo(a.relPath(child), info))

		if recursive && info.IsDir() {
			if err := a.list(ctx, child, recursive, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

// Watch implements docview.CanWatch by listing the tree every poll
// interval. Cancel ctx to stop polling.
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	return docview.WatchByListing(ctx, a, filter, a.pollInterval)
}

func fileInfo(rel string, info fs.FileInfo) docview.FileInfo {
	fi := docview.FileInfo{
		Name:    path.Base(rel),
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if rel == "" {
		fi.Name = "/"
	}
	if fi.IsDir {
		fi.Size = 0
	} else {
		fi.ContentType = filetype.MIMETypeForShortName(filetype.Extension(fi.Name))
	}
	return fi
}

// mapSFTPError maps SFTP errors to docview errors. The client already
// translates the no-such-file and permission status codes to fs errors.
func mapSFTPError(op, filePath string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotExist, err))
	case errors.Is(err, fs.ErrPermission):
		return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotAllowed, err))
	case errors.Is(err, os.ErrClosed):
		return docview.WrapPathErr(op, filePath, fmt.Errorf("connection closed: %w", err))
	default:
		return docview.WrapPathErr(op, filePath, err)
	}
}

var (
	_ docview.FileReader = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
)
