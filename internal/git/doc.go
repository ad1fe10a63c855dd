// Package git reports whether the vault file lives inside a git work tree.
//
// The document encrypts values but stores entry names in clear, so a vault
// committed to a repository publishes the list of accounts it protects.
// Status flags a tracked or unignored vault file so the CLI can warn.
package git
