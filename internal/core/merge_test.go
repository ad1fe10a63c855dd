package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/illarion/passvault/internal/sync"
	"github.com/illarion/passvault/internal/vault"
)

func scriptedResolver(out *bytes.Buffer, choices ...string) *PromptResolver {
	return &PromptResolver{
		Out: out,
		ReadChoice: func() (string, error) {
			if len(choices) == 0 {
				return "", errors.New("no more input")
			}
			c := choices[0]
			choices = choices[1:]
			return c, nil
		},
	}
}

func TestPromptResolver(t *testing.T) {
	tests := []struct {
		name    string
		choices []string
		want    sync.Resolution
		wantErr bool
	}{
		{"keep local", []string{"l"}, sync.Keep, false},
		{"use remote", []string{"r"}, sync.Overwrite, false},
		{"invalid then remote", []string{"q", "r"}, sync.Overwrite, false},
		{"diff then keep", []string{"d", "l"}, sync.Keep, false},
		{"abort", []string{"x"}, sync.Keep, true},
		{"input closed", nil, sync.Keep, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := scriptedResolver(&out, tt.choices...)

			got, err := r.Resolve("email", "old-secret", "new-secret")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "conflict detected: email") {
				t.Errorf("prompt does not name the entry: %q", out.String())
			}
		})
	}
}

func TestPromptResolverHidesValues(t *testing.T) {
	var out bytes.Buffer
	r := scriptedResolver(&out, "l")

	if _, err := r.Resolve("email", "old-secret", "new-secret"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if strings.Contains(out.String(), "secret") {
		t.Error("values should only be shown on request")
	}

	out.Reset()
	r = scriptedResolver(&out, "d", "l")
	if _, err := r.Resolve("email", "old-secret", "new-secret"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.Contains(out.String(), "-secret") {
		t.Errorf("diff not shown: %q", out.String())
	}
}

func TestPromptResolverInMerge(t *testing.T) {
	var out bytes.Buffer
	local := vault.FromMap(map[string]string{"a": "1", "b": "2"})
	remote := vault.FromMap(map[string]string{"a": "10", "b": "20"})

	// Merge visits conflicts in name order
	result, err := sync.Merge(local, remote, scriptedResolver(&out, "r", "l"))
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want := vault.FromMap(map[string]string{"a": "10", "b": "2"})
	if !result.Vault.Equal(want) {
		t.Errorf("merged = %v, want %v", result.Vault.Map(), want.Map())
	}
}

func TestResolverStrategies(t *testing.T) {
	if r, _ := Resolver(StrategyKeepLocal).Resolve("a", "1", "2"); r != sync.Keep {
		t.Errorf("StrategyKeepLocal = %v", r)
	}
	if r, _ := Resolver(StrategyUseRemote).Resolve("a", "1", "2"); r != sync.Overwrite {
		t.Errorf("StrategyUseRemote = %v", r)
	}
	if _, err := Resolver(StrategyAbort).Resolve("a", "1", "2"); !errors.Is(err, ErrConflict) {
		t.Errorf("StrategyAbort error = %v", err)
	}
	if _, ok := Resolver(StrategyAsk).(*PromptResolver); !ok {
		t.Error("StrategyAsk should prompt")
	}
}

func TestValueDiff(t *testing.T) {
	tests := []struct {
		name          string
		local, remote string
		want          string
	}{
		{"identical", "same", "same", "same"},
		{"append", "pass", "password", "pass{+word+}"},
		{"remove", "password", "pass", "pass[-word-]"},
		{"empty local", "", "new", "{+new+}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueDiff(tt.local, tt.remote); got != tt.want {
				t.Errorf("ValueDiff(%q, %q) = %q, want %q", tt.local, tt.remote, got, tt.want)
			}
		})
	}
}

func TestDescribeChanges(t *testing.T) {
	local := vault.FromMap(map[string]string{"same": "x", "mod": "1", "gone": "g"})
	remote := vault.FromMap(map[string]string{"same": "x", "mod": "2", "new": "n"})

	changes := DescribeChanges(local, remote)
	if len(changes) != 3 {
		t.Fatalf("DescribeChanges = %+v", changes)
	}

	want := []Change{
		{Name: "gone", Kind: ChangeRemoved, LocalValue: "g"},
		{Name: "mod", Kind: ChangeModified, LocalValue: "1", RemoteValue: "2"},
		{Name: "new", Kind: ChangeAdded, RemoteValue: "n"},
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}

	if got := DescribeChanges(local, local.Clone()); len(got) != 0 {
		t.Errorf("identical vaults should have no changes: %+v", got)
	}
}
