package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"

	"github.com/illarion/passvault/internal/sync"
	"github.com/illarion/passvault/internal/vault"
)

// MergeStrategy defines how to handle entry conflicts during sync
type MergeStrategy int

const (
	StrategyAsk       MergeStrategy = iota // Ask user for each conflict
	StrategyKeepLocal                      // Always keep local value
	StrategyUseRemote                      // Always use remote value
	StrategyAbort                          // Abort on any conflict
)

var ErrConflict = errors.New("conflicting entry")

// Resolver returns the conflict resolver for strategy. StrategyAsk prompts
// on the terminal.
func Resolver(strategy MergeStrategy) sync.ConflictResolver {
	switch strategy {
	case StrategyKeepLocal:
		return sync.KeepLocal
	case StrategyUseRemote:
		return sync.UseRemote
	case StrategyAbort:
		return sync.ResolverFunc(func(string, string, string) (sync.Resolution, error) {
			return sync.Keep, ErrConflict
		})
	default:
		return NewPromptResolver()
	}
}

// PromptResolver asks the user about each conflicting entry. Values are only
// shown when the user asks for the diff.
type PromptResolver struct {
	Out        io.Writer
	ReadChoice func() (string, error)
}

// NewPromptResolver creates a resolver reading single keys from stdin
func NewPromptResolver() *PromptResolver {
	return &PromptResolver{
		Out:        os.Stdout,
		ReadChoice: readChoice,
	}
}

// Resolve implements sync.ConflictResolver
func (r *PromptResolver) Resolve(name, localValue, remoteValue string) (sync.Resolution, error) {
	fmt.Fprintf(r.Out, "\nwarning: conflict detected: %s\n", name)
	fmt.Fprintf(r.Out, "   Local and remote values differ\n")
	fmt.Fprintf(r.Out, "\nOptions:\n")
	fmt.Fprintf(r.Out, "  [l] Keep local value\n")
	fmt.Fprintf(r.Out, "  [r] Use remote value (overwrite local)\n")
	fmt.Fprintf(r.Out, "  [d] Show diff (prints both values)\n")
	fmt.Fprintf(r.Out, "  [x] Abort sync\n")

	for {
		fmt.Fprintf(r.Out, "\nYour choice: ")
		choice, err := r.ReadChoice()
		if err != nil {
			return sync.Keep, err
		}

		switch choice {
		case "l":
			return sync.Keep, nil
		case "r":
			return sync.Overwrite, nil
		case "d":
			fmt.Fprintf(r.Out, "%s\n", ValueDiff(localValue, remoteValue))
		case "x":
			return sync.Keep, fmt.Errorf("aborted by user")
		default:
			fmt.Fprintf(r.Out, "Invalid choice. Please enter l, r, d, x\n")
		}
	}
}

// readChoice reads a single character choice from the terminal
func readChoice() (string, error) {
	// Try to use raw mode for single-key input
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		// Fallback to regular input
		var input string
		_, err := fmt.Scanln(&input)
		if err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(input)), nil
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()

	buf := make([]byte, 1)
	_, err = os.Stdin.Read(buf)
	if err != nil {
		return "", err
	}

	choice := strings.ToLower(string(buf[0]))
	fmt.Printf("%s\n", choice) // Echo the choice
	return choice, nil
}

// ValueDiff renders a character diff of two values, word-diff style:
// removed text as [-...-], added text as {+...+}.
func ValueDiff(localValue, remoteValue string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(localValue, remoteValue, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		}
	}
	return b.String()
}

// ChangeKind classifies a difference between local and remote vaults
type ChangeKind int

const (
	ChangeAdded    ChangeKind = iota // Only in remote
	ChangeRemoved                    // Only in local
	ChangeModified                   // In both, different values
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is one entry that differs between local and remote
type Change struct {
	Name        string
	Kind        ChangeKind
	LocalValue  string
	RemoteValue string
}

// Diff renders the value change
func (c Change) Diff() string {
	return ValueDiff(c.LocalValue, c.RemoteValue)
}

// DescribeChanges lists entries that differ between local and remote,
// sorted by name. Identical entries are omitted.
func DescribeChanges(local, remote *vault.Vault) []Change {
	var changes []Change

	for _, name := range local.Names() {
		localValue, _ := local.Get(name)
		remoteValue, ok := remote.Get(name)
		switch {
		case !ok:
			changes = append(changes, Change{Name: name, Kind: ChangeRemoved, LocalValue: localValue})
		case localValue != remoteValue:
			changes = append(changes, Change{Name: name, Kind: ChangeModified, LocalValue: localValue, RemoteValue: remoteValue})
		}
	}
	for _, name := range remote.Names() {
		if local.Has(name) {
			continue
		}
		remoteValue, _ := remote.Get(name)
		changes = append(changes, Change{Name: name, Kind: ChangeAdded, RemoteValue: remoteValue})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Name < changes[j].Name
	})
	return changes
}
