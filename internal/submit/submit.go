package submit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/security"
	"github.com/banshee-data/gram/internal/sweep"
)

// ErrNotBuilt is returned when asked to submit a sweep with no simulations.
var ErrNotBuilt = errors.New("submit: sweep has not been built")

// Target is where the submission script runs. The zero value is this
// machine; otherwise the script runs over ssh on Host, which must see the
// sweep directory at the same path (a shared cluster filesystem).
type Target struct {
	Host          string
	User          string
	Key           string
	IdentityAgent string
	Port          string
}

// IsLocal returns true if the target is this machine.
func (t Target) IsLocal() bool {
	return t.Host == "" || t.Host == "localhost" || t.Host == "127.0.0.1"
}

// ResolveTarget fills a Target from host (optionally user@host) and the
// matching block of the ssh config at configPath. Explicit user and key
// take precedence over the config.
func ResolveTarget(host, user, key, configPath string) (Target, error) {
	if i := strings.Index(host, "@"); i >= 0 {
		user, host = host[:i], host[i+1:]
	}
	t := Target{Host: host, User: user, Key: key}
	if t.IsLocal() {
		return t, nil
	}

	cfg, err := LookupHost(host, configPath)
	if err != nil {
		return Target{}, fmt.Errorf("failed to parse SSH config: %w", err)
	}
	if cfg == nil {
		return t, nil
	}
	if cfg.HostName != "" {
		t.Host = cfg.HostName
	}
	if t.User == "" {
		t.User = cfg.User
	}
	if t.Key == "" {
		t.Key = cfg.IdentityFile
	}
	t.IdentityAgent = cfg.IdentityAgent
	t.Port = cfg.Port
	return t, nil
}

// Submission describes one run of a submission script.
type Submission struct {
	Script  string   `json:"script"`
	Command []string `json:"command"`
	Output  string   `json:"output,omitempty"`
	JobIDs  []string `json:"job_ids,omitempty"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// Submitter runs job submission scripts.
type Submitter struct {
	Target  Target
	DryRun  bool
	Builder CommandBuilder
}

// Submit runs the submission script of a built sweep from its scripts
// directory. The script path must resolve inside the sweep directory.
func (s Submitter) Submit(ctx context.Context, sw *sweep.Sweep) (*Submission, error) {
	if sw.N() == 0 || sw.ScriptsPath == "" {
		return nil, ErrNotBuilt
	}
	script := sw.SubmissionScriptPath()

	var name string
	var args []string
	dir := ""
	if s.Target.IsLocal() {
		if err := security.WithinResolved(script, sw.Path); err != nil {
			return nil, err
		}
		name, args, dir = "bash", []string{script}, sw.ScriptsPath
	} else {
		if err := security.Within(script, sw.Path); err != nil {
			return nil, err
		}
		remote := fmt.Sprintf("cd %s && bash %s", scheduler.ShellQuote(sw.ScriptsPath), scheduler.ShellQuote(script))
		name, args = "ssh", s.sshArgs(remote)
	}

	sub := &Submission{Script: script, Command: append([]string{name}, args...), DryRun: s.DryRun}
	if s.DryRun {
		monitoring.Logf("[DRY-RUN] would execute: %s", strings.Join(sub.Command, " "))
		return sub, nil
	}

	builder := s.Builder
	if builder == nil {
		builder = RealCommandBuilder{}
	}
	monitoring.Debugf("executing %s", strings.Join(sub.Command, " "))
	out, err := builder.BuildCommand(ctx, dir, name, args...).Run()
	sub.Output = string(out)
	sub.JobIDs = ParseJobIDs(sub.Output)
	if err != nil {
		return sub, fmt.Errorf("submit %s: %w", script, err)
	}
	monitoring.Logf("submitted %s: %d job(s)", sw.Name, len(sub.JobIDs))
	return sub, nil
}

func (s Submitter) sshArgs(remote string) []string {
	args := []string{"-o", "BatchMode=yes"}
	if s.Target.Key != "" {
		args = append(args, "-i", s.Target.Key)
	}
	if s.Target.IdentityAgent != "" {
		args = append(args, "-o", "IdentityAgent="+s.Target.IdentityAgent)
	}
	if s.Target.Port != "" {
		args = append(args, "-p", s.Target.Port)
	}
	host := s.Target.Host
	if s.Target.User != "" {
		host = s.Target.User + "@" + host
	}
	return append(args, host, remote)
}

// ParseJobIDs extracts the IDs from the "JobID = <id> submitted on ..."
// lines the slurm and moab submission scripts print.
func ParseJobIDs(output string) []string {
	var ids []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "JobID = ")
		if !ok {
			continue
		}
		if f := strings.Fields(rest); len(f) > 0 && f[0] != "submitted" {
			ids = append(ids, f[0])
		}
	}
	return ids
}
