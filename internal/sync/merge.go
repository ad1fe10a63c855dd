package sync

import (
	"fmt"

	"github.com/illarion/passvault/internal/vault"
)

// Resolution is a conflict resolver's decision for one entry
type Resolution int

const (
	Keep      Resolution = iota // Keep the local value
	Overwrite                   // Replace the local value with the remote one
)

func (r Resolution) String() string {
	switch r {
	case Keep:
		return "keep"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// ConflictResolver decides what happens to an entry whose local and remote
// values differ. Returning an error aborts the merge.
type ConflictResolver interface {
	Resolve(name, localValue, remoteValue string) (Resolution, error)
}

// ResolverFunc adapts a function to ConflictResolver
type ResolverFunc func(name, localValue, remoteValue string) (Resolution, error)

// Resolve calls f
func (f ResolverFunc) Resolve(name, localValue, remoteValue string) (Resolution, error) {
	return f(name, localValue, remoteValue)
}

// Fixed returns a resolver that always answers r
func Fixed(r Resolution) ConflictResolver {
	return ResolverFunc(func(string, string, string) (Resolution, error) {
		return r, nil
	})
}

var (
	KeepLocal = Fixed(Keep)      // Never overwrite local values
	UseRemote = Fixed(Overwrite) // Always take remote values
)

// MergeResult contains the merged vault and what happened to each remote entry
type MergeResult struct {
	Vault       *vault.Vault
	Imported    []string // Only in remote, added
	Overwritten []string // Conflicts resolved with the remote value
	Kept        []string // Conflicts resolved with the local value
	Unchanged   []string // Same value on both sides
}

// Changed reports whether the merged vault differs from local
func (r *MergeResult) Changed() bool {
	return len(r.Imported) > 0 || len(r.Overwritten) > 0
}

// Merge pulls remote entries into a copy of local. Entries only in local are
// untouched; entries only in remote are imported; differing values go to
// resolver (KeepLocal when nil). Merge is not symmetric.
func Merge(local, remote *vault.Vault, resolver ConflictResolver) (*MergeResult, error) {
	if resolver == nil {
		resolver = KeepLocal
	}

	result := &MergeResult{Vault: local.Clone()}

	for _, name := range remote.Names() {
		remoteValue, _ := remote.Get(name)
		localValue, ok := result.Vault.Get(name)

		switch {
		case !ok:
			if err := result.Vault.Set(name, remoteValue); err != nil {
				return nil, err
			}
			result.Imported = append(result.Imported, name)
		case localValue == remoteValue:
			result.Unchanged = append(result.Unchanged, name)
		default:
			resolution, err := resolver.Resolve(name, localValue, remoteValue)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMergeAborted, name, err)
			}

			switch resolution {
			case Overwrite:
				if err := result.Vault.Set(name, remoteValue); err != nil {
					return nil, err
				}
				result.Overwritten = append(result.Overwritten, name)
			case Keep:
				result.Kept = append(result.Kept, name)
			default:
				return nil, fmt.Errorf("%w: %s: unknown resolution %s", ErrMergeAborted, name, resolution)
			}
		}
	}

	return result, nil
}
