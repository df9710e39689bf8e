package docview

// WriteOption configures a FileWriter.Write call
type WriteOption func(*WriteOptions)

// WriteOptions contains the options a writable store honors
type WriteOptions struct {
	// ContentType specifies the MIME type of the file. When empty the store
	// derives one from the file name.
	ContentType string

	// Metadata contains additional metadata for the file
	Metadata map[string]string

	// Overwrite determines whether to overwrite existing files
	Overwrite bool
}

// WithContentType sets the declared content type of the file
func WithContentType(contentType string) WriteOption {
	return func(o *WriteOptions) {
		o.ContentType = contentType
	}
}

// WithMetadata sets the metadata of the file
func WithMetadata(metadata map[string]string) WriteOption {
	return func(o *WriteOptions) {
		o.Metadata = metadata
	}
}

// WithOverwrite sets whether to overwrite an existing file
func WithOverwrite(overwrite bool) WriteOption {
	return func(o *WriteOptions) {
		o.Overwrite = overwrite
	}
}

// ApplyWriteOptions folds options into a WriteOptions value. Drivers call it
// at the top of Write.
func ApplyWriteOptions(options ...WriteOption) *WriteOptions {
	opts := &WriteOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
