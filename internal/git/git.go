package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status contains git integration status for one vault file
type Status struct {
	IsRepo  bool
	Tracked bool // Committed or staged: entry names are in history
	Ignored bool
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// Check inspects the repository containing vaultPath, if any. Without a git
// binary every check reports false.
func Check(vaultPath string) *Status {
	dir := filepath.Dir(vaultPath)
	base := filepath.Base(vaultPath)

	status := &Status{IsRepo: IsGitRepo(dir)}
	if !status.IsRepo {
		return status
	}
	status.Tracked = IsTracked(dir, base)
	status.Ignored = IsIgnored(dir, base)
	return status
}

// Warning returns a message for a vault exposed through git, or ""
func (s *Status) Warning(vaultPath string) string {
	switch {
	case !s.IsRepo:
		return ""
	case s.Tracked:
		return fmt.Sprintf("%s is tracked by git; entry names are stored in clear (run: git rm --cached %s)",
			vaultPath, filepath.Base(vaultPath))
	case !s.Ignored:
		return fmt.Sprintf("%s is inside a git work tree and not in .gitignore", vaultPath)
	default:
		return ""
	}
}
