package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/gobeaver/docview"
)

func init() {
	docview.RegisterDriver("azure", createAzureStore)
}

// createAzureStore builds the store from config. Without an account key the
// container must allow anonymous reads; an endpoint targets Azurite.
func createAzureStore(cfg *docview.Config) (docview.FileReader, error) {
	if cfg.AzureAccountName == "" || cfg.AzureContainer == "" {
		return nil, fmt.Errorf("azure account name and container are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AzureAccountName)
	if cfg.AzureEndpoint != "" {
		serviceURL = cfg.AzureEndpoint
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.AzureAccountKey != "" {
		cred, cerr := azblob.NewSharedKeyCredential(cfg.AzureAccountName, cfg.AzureAccountKey)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create azure credential: %w", cerr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	} else {
		client, err = azblob.NewClientWithNoCredential(serviceURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	opts := []AdapterOption{WithPollInterval(cfg.PollInterval())}
	if cfg.AzurePrefix != "" {
		opts = append(opts, WithPrefix(cfg.AzurePrefix))
	}

	return New(client, cfg.AzureContainer, opts...), nil
}
