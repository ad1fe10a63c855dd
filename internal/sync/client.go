package sync

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/illarion/passvault/internal/codec"
	"github.com/illarion/passvault/internal/vault"
)

const DefaultPort = 2000

// MaxDocumentSize caps how much Fetch reads from a peer before giving up on
// the newline.
var MaxDocumentSize int64 = 32 << 20

// Address joins host and port into a dial address
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Fetch connects to addr, reads exactly one newline-terminated document and
// closes the connection. There is no retry and no peer authentication.
func Fetch(ctx context.Context, addr string) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &NetworkError{Op: "dial", Addr: addr, Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	limit := MaxDocumentSize
	msg, err := bufio.NewReader(io.LimitReader(conn, limit)).ReadBytes('\n')
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case errors.Is(err, io.EOF) && int64(len(msg)) >= limit:
			err = fmt.Errorf("%w: no end of document within %d bytes", ErrDocumentTooLarge, limit)
		case errors.Is(err, io.EOF):
			err = fmt.Errorf("connection closed before end of document: %w", io.ErrUnexpectedEOF)
		}
		return nil, &NetworkError{Op: "read", Addr: addr, Err: err}
	}

	return bytes.TrimSuffix(msg, []byte{'\n'}), nil
}

// FetchVault fetches the remote document and decodes it with password
func FetchVault(ctx context.Context, addr string, password []byte, c *codec.Codec) (*vault.Vault, *codec.Warning, error) {
	data, err := Fetch(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	return c.Load(data, password)
}

// Sync fetches the vault served at addr, decodes it with remotePassword and
// merges it into local. local itself is not modified.
func Sync(ctx context.Context, addr string, local *vault.Vault, remotePassword []byte, resolver ConflictResolver, c *codec.Codec) (*MergeResult, *codec.Warning, error) {
	remote, warning, err := FetchVault(ctx, addr, remotePassword, c)
	if err != nil {
		return nil, nil, err
	}

	result, err := Merge(local, remote, resolver)
	if err != nil {
		return nil, warning, err
	}
	return result, warning, nil
}
