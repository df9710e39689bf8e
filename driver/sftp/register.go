package sftp

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/gobeaver/docview"
)

// dialTimeout bounds the SSH handshake when the store is created from config
const dialTimeout = 15 * time.Second

func init() {
	docview.RegisterDriver("sftp", createSFTPStore)
}

func createSFTPStore(cfg *docview.Config) (docview.FileReader, error) {
	sc, err := configFrom(cfg)
	if err != nil {
		return nil, err
	}
	return Dial(sc, WithPollInterval(cfg.PollInterval()))
}

// configFrom turns docview settings into connection settings, loading the
// private key file and parsing the pinned host key.
func configFrom(cfg *docview.Config) (Config, error) {
	if cfg.SFTPHost == "" {
		return Config{}, fmt.Errorf("SFTP host is required")
	}

	sc := Config{
		Host:     cfg.SFTPHost,
		Port:     cfg.SFTPPort,
		Username: cfg.SFTPUsername,
		Password: cfg.SFTPPassword,
		BasePath: cfg.SFTPBasePath,
		Timeout:  dialTimeout,
	}

	if cfg.SFTPPrivateKeyFile != "" {
		keyData, err := os.ReadFile(cfg.SFTPPrivateKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read private key: %w", err)
		}
		sc.PrivateKey = keyData
	}

	if cfg.SFTPHostKey != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.SFTPHostKey))
		if err != nil {
			return Config{}, fmt.Errorf("invalid SFTP host key: %w", err)
		}
		sc.HostKey = key
	}

	return sc, nil
}
