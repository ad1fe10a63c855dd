package sync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/illarion/passvault/internal/codec"
	"github.com/illarion/passvault/internal/vault"
)

// startServer serves v on a loopback port until the test ends
func startServer(t *testing.T, v *vault.Vault, password string) (string, *Server) {
	t.Helper()

	doc, err := codec.New().Encode(v, []byte(password))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	srv, err := NewServer(doc, ServerConfig{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not stop after cancel")
		}
	})

	return ln.Addr().String(), srv
}

func TestFetchSingleDocument(t *testing.T) {
	addr, srv := startServer(t, vault.FromMap(map[string]string{"github": "pw1"}), "secret")

	data, err := Fetch(context.Background(), addr)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if bytes.HasSuffix(data, []byte{'\n'}) {
		t.Error("Fetch should strip the delimiter")
	}
	if !bytes.Equal(append(data, '\n'), srv.Payload()) {
		t.Error("Fetch returned a different document than served")
	}

	v, _, err := codec.New().Load(data, []byte("secret"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if value, _ := v.Get("github"); value != "pw1" {
		t.Errorf("github = %q, want pw1", value)
	}
}

func TestServerSendsSameDocumentToEveryClient(t *testing.T) {
	addr, _ := startServer(t, vault.FromMap(map[string]string{"a": "1"}), "secret")

	first, err := Fetch(context.Background(), addr)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		next, err := Fetch(context.Background(), addr)
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if !bytes.Equal(first, next) {
			t.Fatal("document should be encoded once and reused")
		}
	}
}

func TestServerClosesAfterOneMessage(t *testing.T) {
	addr, srv := startServer(t, vault.New(), "secret")

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	all, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(all, srv.Payload()) {
		t.Errorf("connection carried %d bytes, want exactly one message", len(all))
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	doc, _ := codec.New().Encode(vault.New(), []byte("secret"))
	srv, err := NewServer(doc, ServerConfig{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}

func TestListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	doc, _ := codec.New().Encode(vault.New(), []byte("secret"))
	srv, _ := NewServer(doc, ServerConfig{})

	err = srv.ListenAndServe(context.Background(), ln.Addr().String())
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Op != "listen" {
		t.Errorf("expected listen NetworkError, got %v", err)
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = Fetch(context.Background(), addr)
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Op != "dial" {
		t.Fatalf("expected dial NetworkError, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("NetworkError should match ErrNetwork")
	}
}

func TestFetchUnexpectedDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte(`{"version":2,`))
		conn.Close()
	}()

	_, err = Fetch(context.Background(), ln.Addr().String())
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Op != "read" {
		t.Fatalf("expected read NetworkError, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestFetchDocumentTooLarge(t *testing.T) {
	old := MaxDocumentSize
	MaxDocumentSize = 64
	t.Cleanup(func() { MaxDocumentSize = old })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	// The peer keeps the connection open and never sends a newline
	held := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		held <- conn
		_, _ = conn.Write(bytes.Repeat([]byte("a"), 256))
	}()
	defer func() {
		select {
		case conn := <-held:
			conn.Close()
		case <-time.After(time.Second):
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = Fetch(ctx, ln.Addr().String())
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Op != "read" {
		t.Fatalf("expected read NetworkError, got %v", err)
	}
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("expected ErrDocumentTooLarge, got %v", err)
	}
}

func TestFetchCancelledWhileStalled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	held := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			held <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-held:
			conn.Close()
		default:
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = Fetch(ctx, ln.Addr().String())
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected NetworkError wrapping deadline, got %v", err)
	}
}

func TestSync(t *testing.T) {
	remote := vault.FromMap(map[string]string{"a": "2", "b": "3"})
	addr, _ := startServer(t, remote, "remote-secret")

	local := vault.FromMap(map[string]string{"a": "1"})

	result, warning, err := Sync(context.Background(), addr, local, []byte("remote-secret"), KeepLocal, codec.New())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if warning != nil {
		t.Errorf("unexpected warning: %s", warning)
	}
	want := map[string]string{"a": "1", "b": "3"}
	if !reflect.DeepEqual(result.Vault.Map(), want) {
		t.Errorf("Sync = %v, want %v", result.Vault.Map(), want)
	}

	result, _, err = Sync(context.Background(), addr, local, []byte("remote-secret"), UseRemote, codec.New())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	want = map[string]string{"a": "2", "b": "3"}
	if !reflect.DeepEqual(result.Vault.Map(), want) {
		t.Errorf("Sync = %v, want %v", result.Vault.Map(), want)
	}
}

func TestSyncWrongRemotePassword(t *testing.T) {
	remote := vault.FromMap(map[string]string{"a": "alpha", "b": "bravo", "c": "charlie"})
	addr, _ := startServer(t, remote, "remote-secret")

	result, _, err := Sync(context.Background(), addr, vault.New(), []byte("wrong"), UseRemote, codec.New())
	if err == nil {
		if result.Vault.Equal(remote) {
			t.Fatal("wrong password reproduced the remote vault")
		}
		return
	}
	if !errors.Is(err, codec.ErrInvalidPassword) {
		t.Errorf("expected invalid password, got %v", err)
	}
}
