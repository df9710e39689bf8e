package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/gobeaver/docview"
)

func init() {
	docview.RegisterDriver("gcs", createGCSStore)
}

// createGCSStore builds the store from config. Without a credentials file
// the client uses GOOGLE_APPLICATION_CREDENTIALS or the default credentials
// of the environment; an endpoint targets emulators.
func createGCSStore(cfg *docview.Config) (docview.FileReader, error) {
	var clientOpts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}
	if cfg.GCSEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.GCSEndpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	opts := []AdapterOption{WithPollInterval(cfg.PollInterval())}
	if cfg.GCSPrefix != "" {
		opts = append(opts, WithPrefix(cfg.GCSPrefix))
	}

	return New(client, cfg.GCSBucket, opts...), nil
}
