// Package secrets stores small credential blobs encrypted at rest.
// Each secret is a named file under the secret directory, encrypted
// with a per-secret DEK derived from a root key kept in the key store.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
)

const (
	descriptorPrefix = "kvterm:secret:"
	secretFileSuffix = ".enc"

	// NameBackendPassword is the secret slot for the backend password
	// referenced by the serve command.
	NameBackendPassword = "backend-password"
)

// ErrNotFound is returned when a named secret has never been stored.
var ErrNotFound = errors.New("secret not found")

// Store manages encrypted secrets under a directory.
type Store struct {
	storePath string
	secretDir string
	log       pslog.Logger
}

// NewStore initializes the secret store and ensures the root key exists.
func NewStore(storePath, secretDir string) (*Store, error) {
	return NewStoreWithLogger(storePath, secretDir, nil)
}

// NewStoreWithLogger initializes the secret store with logging.
func NewStoreWithLogger(storePath, secretDir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(storePath) == "" {
		return nil, fmt.Errorf("secret key store path is required")
	}
	if strings.TrimSpace(secretDir) == "" {
		return nil, fmt.Errorf("secret directory is required")
	}
	if err := ensureKeyStore(storePath, logger); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(secretDir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("secret_store", storePath, "secret_dir", secretDir)
	}
	return &Store{storePath: storePath, secretDir: secretDir, log: logger}, nil
}

// Set writes the secret value for name, replacing any previous value.
func (s *Store) Set(name string, value []byte) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	material, root, err := s.materialForSecret(name, true)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret write failed", "secret", name, "err", err)
		}
		return err
	}
	kg := kryptograf.New(root)

	tmp, err := os.CreateTemp(s.secretDir, name+"-*"+secretFileSuffix)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret write failed", "secret", name, "err", err)
		}
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	writer, err := kg.EncryptWriter(tmp, material)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("secret write failed", "secret", name, "err", err)
		}
		return err
	}
	if _, err := io.Copy(writer, bytes.NewReader(value)); err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := writer.Close(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	_ = tmp.Close()
	if err := os.Rename(tmpPath, s.secretPath(name)); err != nil {
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("secret write failed", "secret", name, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("secret write ok", "secret", name)
	}
	return nil
}

// Get reads and decrypts the secret value for name.
func (s *Store) Get(name string) ([]byte, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	path := s.secretPath(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	material, root, err := s.materialForSecret(name, false)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret load failed", "secret", name, "err", err)
		}
		return nil, err
	}
	kg := kryptograf.New(root)
	file, err := os.Open(path)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret load failed", "secret", name, "err", err)
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()
	reader, err := kg.DecryptReader(file, material)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret load failed", "secret", name, "err", err)
		}
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	plain, err := io.ReadAll(reader)
	if err != nil {
		if s.log != nil {
			s.log.Warn("secret load failed", "secret", name, "err", err)
		}
		return nil, err
	}
	return plain, nil
}

// Delete removes the secret value for name. Deleting an absent secret
// is not an error.
func (s *Store) Delete(name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.secretPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if s.log != nil {
		s.log.Info("secret delete ok", "secret", name)
	}
	return nil
}

// Exists reports whether a value has been stored for name.
func (s *Store) Exists(name string) (bool, error) {
	name, err := normalizeName(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(s.secretPath(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) secretPath(name string) string {
	return filepath.Join(s.secretDir, name+secretFileSuffix)
}

func (s *Store) materialForSecret(name string, rotate bool) (keymgmt.Material, keymgmt.RootKey, error) {
	store, err := keymgmt.LoadProto(s.storePath)
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	descName := descriptorPrefix + name
	contextBytes := []byte(descName)
	var material keymgmt.Material
	if rotate {
		material, err = keymgmt.MintDEK(root, contextBytes)
		if err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
		if err := store.SetDescriptor(descName, material.Descriptor); err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
	} else {
		material, err = store.EnsureDescriptor(descName, root, contextBytes)
		if err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
	}
	if err := store.Commit(); err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	return material, root, nil
}

func ensureKeyStore(path string, logger pslog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	store, err := keymgmt.LoadProto(path)
	if err != nil {
		if logger != nil {
			logger.Warn("secret key store ensure failed", "err", err)
		}
		return err
	}
	if _, err := store.EnsureRootKey(); err != nil {
		return err
	}
	if err := store.Commit(); err != nil {
		return err
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("secret name is required")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return "", fmt.Errorf("invalid secret name %q", name)
		}
	}
	return name, nil
}
