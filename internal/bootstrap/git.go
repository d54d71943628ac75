// Package bootstrap mines git history and project docs into seed events for
// a freshly initialized store.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rcliao/engram/internal/model"
)

var (
	fixRegex      = regexp.MustCompile(`(?i)\b(fix|bug|patch|resolve|hotfix|repair)\b`)
	refactorRegex = regexp.MustCompile(`(?i)\b(refactor|restructure|migrate|rewrite|redesign|overhaul|reorganize)\b`)
)

// NUL-delimited so commit subjects containing the separator can't break
// parsing.
const (
	gitLogFormat = "%H%x00%aI%x00%an%x00%s"
	separator    = "\x00"
)

const bootstrapAgentID = "git-bootstrap"

// GitBootstrapper generates seed events from a project's git history.
type GitBootstrapper struct {
	projectDir string
}

// NewGitBootstrapper fails if projectDir is not a git repository.
func NewGitBootstrapper(projectDir string) (*GitBootstrapper, error) {
	if _, err := os.Stat(filepath.Join(projectDir, ".git")); err != nil {
		return nil, fmt.Errorf("not a git repository: %s", projectDir)
	}
	return &GitBootstrapper{projectDir: projectDir}, nil
}

// MineHistory parses git log and project docs into seed events, ready for
// InsertBatch.
func (b *GitBootstrapper) MineHistory(maxCommits int) ([]model.Event, error) {
	raw, err := b.runGit("log", "--pretty=format:"+gitLogFormat, "--name-only",
		fmt.Sprintf("-n%d", maxCommits))
	if err != nil {
		return nil, err
	}
	events := ParseCommits(raw)
	events = append(events, b.extractProjectDocs()...)
	return events, nil
}

// ParseCommits converts raw `git log --name-only` output into events. One
// block per commit: a formatted header line followed by touched file paths.
func ParseCommits(raw string) []model.Event {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var events []model.Event
	for _, block := range strings.Split(raw, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}
		parts := strings.Split(lines[0], separator)
		if len(parts) < 4 {
			continue
		}
		date, subject := parts[1], parts[3]

		var files []string
		for _, l := range lines[1:] {
			if l = strings.TrimSpace(l); l != "" {
				files = append(files, l)
			}
		}

		eventType, content := classifyCommit(subject, files)

		var scope []string
		if len(files) > 0 {
			scope = files
			if len(scope) > 10 {
				scope = scope[:10]
			}
		}
		if len(content) > model.MaxContentLen {
			content = content[:model.MaxContentLen]
		}

		events = append(events, model.Event{
			Timestamp: date,
			Type:      eventType,
			AgentID:   bootstrapAgentID,
			Content:   content,
			Scope:     scope,
		})
	}
	return events
}

// classifyCommit maps a commit to an event type: fixes read as discoveries
// (something was learned), large or refactoring commits as decisions,
// everything else as plain mutations.
func classifyCommit(subject string, files []string) (model.EventType, string) {
	if fixRegex.MatchString(subject) {
		return model.Discovery, "Fixed: " + subject
	}
	if len(files) >= 10 || refactorRegex.MatchString(subject) {
		note := ""
		if len(files) >= 10 {
			note = fmt.Sprintf(" (%d files)", len(files))
		}
		return model.Decision, "Refactored: " + subject + note
	}
	return model.Mutation, subject
}

// extractProjectDocs turns README/agent docs into discovery events.
func (b *GitBootstrapper) extractProjectDocs() []model.Event {
	var events []model.Event
	for _, filename := range []string{"README.md", "CLAUDE.md"} {
		raw, err := os.ReadFile(filepath.Join(b.projectDir, filename))
		if err != nil {
			continue
		}
		text := string(raw)
		// Leave room for the prefix under the content cap.
		truncated := text
		if len(truncated) > 1800 {
			truncated = truncated[:1800] + "... (truncated)"
		}
		events = append(events, model.Event{
			Type:    model.Discovery,
			AgentID: bootstrapAgentID,
			Content: fmt.Sprintf("Project %s: %s", filename, truncated),
			Scope:   []string{filename},
		})
	}
	return events
}

// DetectProjectName tries the git remote, then package manifests, then the
// directory name.
func (b *GitBootstrapper) DetectProjectName() string {
	if remote, err := b.runGit("remote", "get-url", "origin"); err == nil {
		remote = strings.TrimSpace(remote)
		if remote != "" {
			name := remote[strings.LastIndex(strings.TrimRight(remote, "/"), "/")+1:]
			name = strings.TrimSuffix(name, ".git")
			if name != "" {
				return name
			}
		}
	}

	if raw, err := os.ReadFile(filepath.Join(b.projectDir, "go.mod")); err == nil {
		for _, line := range strings.Split(string(raw), "\n") {
			if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "module "); ok {
				if i := strings.LastIndex(rest, "/"); i >= 0 {
					rest = rest[i+1:]
				}
				if rest != "" {
					return rest
				}
			}
		}
	}

	if raw, err := os.ReadFile(filepath.Join(b.projectDir, "package.json")); err == nil {
		var pkg struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &pkg) == nil && pkg.Name != "" {
			return pkg.Name
		}
	}

	return filepath.Base(b.projectDir)
}

func (b *GitBootstrapper) runGit(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = b.projectDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
