// Package storage persists serialized vault documents.
//
// Two backends are available:
//   - file: the document is a plain JSON file, replaced atomically by
//     writing a temporary file in the same directory and renaming it
//   - bolt: the document is kept in a BBolt database together with
//     unencrypted bookkeeping (format version, timestamps, vault ID)
//
// Either way a save replaces the whole document; there is no history.
// Nothing prevents two processes from saving the same vault: the last
// writer wins.
package storage
