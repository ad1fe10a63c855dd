// Package sync exchanges vaults between two machines.
//
// The protocol is plain TCP (default port 2000): the server writes exactly
// one newline-terminated encoded document per accepted connection and
// closes it. Connections are served strictly one after another. There is no
// handshake, no authentication and no transport encryption; the document's
// field encryption is the only protection, and the master password is
// never sent.
//
// Merge pulls a remote vault into a local one. Conflicting values are
// decided by a ConflictResolver, so merge logic needs no terminal.
package sync
