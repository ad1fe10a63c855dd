package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/illarion/passvault/internal/codec"
	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/git"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/sync"
	"github.com/illarion/passvault/internal/vault"
)

var (
	ErrNotInitialized   = errors.New("passvault not initialized")
	ErrAlreadyExists    = errors.New("passvault already exists")
	ErrWrongPassword    = codec.ErrInvalidPassword
	ErrPasswordRequired = errors.New("password required")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrReservedName     = errors.New("name is a reserved document field")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// PassVault manages the encrypted vault document of one configuration
type PassVault struct {
	cfg    *config.Config
	codec  *codec.Codec
	logger *slog.Logger
}

// New creates a PassVault for cfg. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *PassVault {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &PassVault{
		cfg:    cfg,
		logger: logger,
		codec: codec.New(
			codec.WithSaltLength(cfg.SaltLength),
			codec.WithLogger(logger),
			codec.WithDebug(cfg.Debug),
		),
	}
}

// Path returns the location of the vault
func (p *PassVault) Path() string {
	return p.cfg.VaultPath
}

// Codec returns the codec used for reading and writing documents
func (p *PassVault) Codec() *codec.Codec {
	return p.codec
}

func (p *PassVault) openStore() (storage.Store, error) {
	return storage.Open(p.cfg.Backend, p.cfg.VaultPath)
}

// openExistingStore opens the store of an initialized vault. Opening a bolt
// database creates the file, so a missing vault is reported before that.
func (p *PassVault) openExistingStore() (storage.Store, error) {
	if _, err := os.Stat(p.cfg.VaultPath); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotInitialized
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat vault: %w", err)
	}
	return p.openStore()
}

// readDocument returns the raw stored document
func (p *PassVault) readDocument() ([]byte, error) {
	store, err := p.openExistingStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data, err := store.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	return data, err
}

func (p *PassVault) writeDocument(data []byte) error {
	store, err := p.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(data); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	return nil
}

// Init creates an empty vault protected by password
func (p *PassVault) Init(password []byte) error {
	if len(password) == 0 {
		return ErrPasswordRequired
	}

	store, err := p.openStore()
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer store.Close()

	if _, err := store.Load(); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	data, err := p.codec.Save(vault.New(), password)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	if err := store.Save(data); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}

	p.logger.Debug("vault created", "path", p.cfg.VaultPath, "backend", p.cfg.Backend)
	return nil
}

// Open decrypts the stored vault. The warning is non-nil for documents
// written in an older format; the next Commit upgrades them.
func (p *PassVault) Open(password []byte) (*vault.Vault, *codec.Warning, error) {
	data, err := p.readDocument()
	if err != nil {
		return nil, nil, err
	}
	return p.codec.Load(data, password)
}

// Commit encrypts v with password and replaces the stored document
func (p *PassVault) Commit(v *vault.Vault, password []byte) error {
	data, err := p.codec.Save(v, password)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	return p.writeDocument(data)
}

// Update opens the vault, applies fn and commits the result unless fn fails
func (p *PassVault) Update(password []byte, fn func(v *vault.Vault) error) error {
	v, warning, err := p.Open(password)
	if err != nil {
		return err
	}
	if warning != nil {
		p.logger.Info("upgrading vault format", "from", warning.DocumentVersion, "to", warning.CurrentVersion)
	}

	if err := fn(v); err != nil {
		return err
	}
	return p.Commit(v, password)
}

// Get returns the value of one entry
func (p *PassVault) Get(password []byte, name string) (string, error) {
	v, _, err := p.Open(password)
	if err != nil {
		return "", err
	}

	value, ok := v.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return value, nil
}

// Set stores or replaces one entry
func (p *PassVault) Set(password []byte, name, value string) error {
	return p.Update(password, func(v *vault.Vault) error {
		if codec.IsReserved(name) {
			return fmt.Errorf("%w: %s", ErrReservedName, name)
		}
		return v.Set(name, value)
	})
}

// Delete removes entries. Every name must exist; nothing is removed otherwise.
func (p *PassVault) Delete(password []byte, names ...string) error {
	return p.Update(password, func(v *vault.Vault) error {
		for _, name := range names {
			if !v.Has(name) {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
			}
		}
		for _, name := range names {
			v.Delete(name)
		}
		return nil
	})
}

// ChangePassword re-encrypts the vault under newPassword. A fresh IV and
// fresh salts are generated.
func (p *PassVault) ChangePassword(currentPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return ErrPasswordRequired
	}

	v, _, err := p.Open(currentPassword)
	if err != nil {
		return err
	}
	return p.Commit(v, newPassword)
}

// VerifyPassword checks if the password decrypts this vault. An empty vault
// has nothing to decrypt and accepts any password; see CanVerifyPassword.
func (p *PassVault) VerifyPassword(password []byte) error {
	_, _, err := p.Open(password)
	return err
}

// CanVerifyPassword reports whether the vault holds at least one entry.
// Without one, a mistyped password cannot be detected and the next write
// re-encrypts the vault under it.
func (p *PassVault) CanVerifyPassword(ctx context.Context) (bool, error) {
	names, err := p.List(ctx)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// Serve publishes the vault on addr until ctx is cancelled. The vault is
// decrypted and re-encoded first, so a wrong password fails here and every
// client receives a current-format document.
func (p *PassVault) Serve(ctx context.Context, password []byte, addr string) error {
	srv, err := p.newServer(password)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr)
}

// ServeListener is Serve on an existing listener
func (p *PassVault) ServeListener(ctx context.Context, password []byte, ln net.Listener) error {
	srv, err := p.newServer(password)
	if err != nil {
		ln.Close()
		return err
	}
	return srv.Serve(ctx, ln)
}

func (p *PassVault) newServer(password []byte) (*sync.Server, error) {
	v, _, err := p.Open(password)
	if err != nil {
		return nil, err
	}

	doc, err := p.codec.Encode(v, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault: %w", err)
	}
	return sync.NewServer(doc, sync.ServerConfig{Logger: p.logger})
}

// SyncResult describes a completed sync
type SyncResult struct {
	*sync.MergeResult

	LocalWarning  *codec.Warning
	RemoteWarning *codec.Warning
	Saved         bool
}

// Sync fetches the vault served at addr and merges it into the local vault.
// remotePassword defaults to password when empty. The local vault is only
// rewritten when the merge changed it or its format was outdated.
func (p *PassVault) Sync(ctx context.Context, addr string, password, remotePassword []byte, resolver sync.ConflictResolver) (*SyncResult, error) {
	local, localWarning, err := p.Open(password)
	if err != nil {
		return nil, err
	}
	if len(remotePassword) == 0 {
		remotePassword = password
	}

	merged, remoteWarning, err := sync.Sync(ctx, addr, local, remotePassword, resolver, p.codec)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		MergeResult:   merged,
		LocalWarning:  localWarning,
		RemoteWarning: remoteWarning,
	}

	p.logger.Debug("merge finished",
		"imported", len(merged.Imported),
		"overwritten", len(merged.Overwritten),
		"kept", len(merged.Kept),
		"unchanged", len(merged.Unchanged))

	if merged.Changed() || localWarning != nil {
		if err := p.Commit(merged.Vault, password); err != nil {
			return nil, err
		}
		result.Saved = true
	}
	return result, nil
}

// Diff fetches the vault served at addr and compares it with the local one
func (p *PassVault) Diff(ctx context.Context, addr string, password, remotePassword []byte) ([]Change, error) {
	local, _, err := p.Open(password)
	if err != nil {
		return nil, err
	}
	if len(remotePassword) == 0 {
		remotePassword = password
	}

	remote, _, err := sync.FetchVault(ctx, addr, remotePassword, p.codec)
	if err != nil {
		return nil, err
	}
	return DescribeChanges(local, remote), nil
}

// StatusInfo contains status information
type StatusInfo struct {
	Path           string
	Backend        string
	VaultID        string
	Size           int64
	Modified       time.Time
	Version        int
	CurrentVersion int
	Cipher         string
	KeyGen         string
	SaltLength     int
	Entries        []string
	Git            *git.Status
}

// Outdated reports whether the document predates the current format
func (s *StatusInfo) Outdated() bool {
	return s.Version < s.CurrentVersion
}

// Status reads the document metadata (no password required). Entry names
// are stored in clear and are listed too.
func (p *PassVault) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store, err := p.openExistingStore()
	if err != nil {
		if errors.Is(err, ErrNotInitialized) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	defer store.Close()

	info, err := store.Info()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	data, err := store.Load()
	if err != nil {
		return nil, err
	}
	doc, err := codec.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	vaultID, err := store.ID()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault ID: %w", err)
	}

	return &StatusInfo{
		Path:           info.Path,
		Backend:        info.Backend,
		VaultID:        vaultID,
		Size:           info.Size,
		Modified:       info.Modified,
		Version:        doc.Version,
		CurrentVersion: crypto.CurrentVersion,
		Cipher:         doc.Cipher,
		KeyGen:         doc.KeyGen,
		SaltLength:     doc.SaltLength,
		Entries:        doc.Entries(),
		Git:            git.Check(info.Path),
	}, nil
}

// List returns the entry names without decrypting anything
func (p *PassVault) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := p.readDocument()
	if err != nil {
		return nil, err
	}
	doc, err := codec.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Entries(), nil
}

// VaultID returns the identifier used for keyring entries
func (p *PassVault) VaultID() (string, error) {
	store, err := p.openExistingStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	if _, err := store.Info(); errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotInitialized
	}
	return store.ID()
}

// Compact reclaims unused space in the vault database. It reports false
// for backends that have nothing to compact.
func (p *PassVault) Compact() (bool, error) {
	store, err := p.openExistingStore()
	if err != nil {
		return false, err
	}
	defer store.Close()

	if _, err := store.Info(); errors.Is(err, storage.ErrNotFound) {
		return false, ErrNotInitialized
	}

	bolt, ok := store.(*storage.BoltStore)
	if !ok {
		return false, nil
	}
	if err := bolt.Compact(); err != nil {
		return false, err
	}
	return true, nil
}
