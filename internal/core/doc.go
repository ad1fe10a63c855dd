// Package core provides the main passvault operations on top of the codec,
// storage and sync packages.
//
// Core operations include:
//   - Init: Create an empty vault protected by a master password
//   - Get/Set/Delete: Read and edit entries; every edit rewrites the document
//   - Serve: Publish the encrypted document to sync peers
//   - Sync: Fetch a peer's document and merge it into the local vault
//   - ChangePassword: Re-encrypt the vault with a new password
//
// Conflict resolution during sync supports multiple strategies:
//   - Keep local value
//   - Use remote value (overwrite)
//   - Ask for each entry, optionally showing a diff of the two values
//   - Abort on the first conflict
package core
