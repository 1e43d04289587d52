package submit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSSHConfig = `# cluster access
Host quest
	HostName quest.northwestern.edu
	User netid
	IdentityFile ~/.ssh/quest_ed25519

Host *.example.org !bastion.example.org
	User shared
	Port 2222
	IdentityAgent "~/.1password/agent.sock"

Host *
	User fallback
	IdentityFile ~/.ssh/id_rsa
`

func writeSSHConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(testSSHConfig), 0600); err != nil {
		t.Fatalf("Failed to write ssh config: %v", err)
	}
	return path
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		target   string
		patterns []string
		expected bool
	}{
		{"quest", []string{"quest"}, true},
		{"quest", []string{"other"}, false},
		{"login.example.org", []string{"*.example.org"}, true},
		{"bastion.example.org", []string{"*.example.org", "!bastion.example.org"}, false},
		{"node7", []string{"node?"}, true},
		{"node17", []string{"node?"}, false},
		{"anything", []string{"*"}, true},
		{"x", []string{"[bad"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.target+"_"+strings.Join(tc.patterns, ","), func(t *testing.T) {
			if got := MatchHost(tc.target, tc.patterns); got != tc.expected {
				t.Errorf("MatchHost(%s, %v) = %v, want %v", tc.target, tc.patterns, got, tc.expected)
			}
		})
	}
}

func TestLookupHost(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	path := writeSSHConfig(t)

	cfg, err := LookupHost("quest", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config for quest")
	}
	if cfg.HostName != "quest.northwestern.edu" {
		t.Errorf("HostName = %q", cfg.HostName)
	}
	if cfg.User != "netid" {
		t.Errorf("User = %q, first value should win over Host *", cfg.User)
	}
	if cfg.IdentityFile != "/home/test/.ssh/quest_ed25519" {
		t.Errorf("IdentityFile = %q", cfg.IdentityFile)
	}

	cfg, err = LookupHost("login.example.org", path)
	if err != nil || cfg == nil {
		t.Fatalf("LookupHost(login.example.org) = %v, %v", cfg, err)
	}
	if cfg.User != "shared" || cfg.Port != "2222" {
		t.Errorf("got user %q port %q", cfg.User, cfg.Port)
	}
	if cfg.IdentityAgent != "/home/test/.1password/agent.sock" {
		t.Errorf("IdentityAgent = %q", cfg.IdentityAgent)
	}
	if cfg.IdentityFile != "/home/test/.ssh/id_rsa" {
		t.Errorf("IdentityFile = %q, want the Host * value", cfg.IdentityFile)
	}

	cfg, err = LookupHost("bastion.example.org", path)
	if err != nil || cfg == nil {
		t.Fatalf("LookupHost(bastion.example.org) = %v, %v", cfg, err)
	}
	if cfg.User != "fallback" || cfg.Port != "" {
		t.Errorf("negated pattern should skip the block, got user %q port %q", cfg.User, cfg.Port)
	}
}

func TestLookupHost_Missing(t *testing.T) {
	cfg, err := LookupHost("quest", filepath.Join(t.TempDir(), "nope"))
	if err != nil || cfg != nil {
		t.Errorf("LookupHost on missing file = %v, %v; want nil, nil", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("Host other\n\tUser x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LookupHost("quest", path)
	if err != nil || cfg != nil {
		t.Errorf("LookupHost for unmatched host = %v, %v; want nil, nil", cfg, err)
	}
}

func TestParseHostConfig_EqualsForm(t *testing.T) {
	cfg := parseHostConfig("hpc", "Host=hpc\n  User = bob\n  Port=22\n  IdentityFile=~/.ssh/hpc\n", "/home/bob")
	if cfg == nil {
		t.Fatal("expected a match")
	}
	want := HostConfig{Host: "hpc", User: "bob", Port: "22", IdentityFile: "/home/bob/.ssh/hpc"}
	if *cfg != want {
		t.Errorf("got %+v, want %+v", *cfg, want)
	}
}

func TestResolveTarget(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	path := writeSSHConfig(t)

	got, err := ResolveTarget("quest", "", "", path)
	if err != nil {
		t.Fatal(err)
	}
	want := Target{Host: "quest.northwestern.edu", User: "netid", Key: "/home/test/.ssh/quest_ed25519"}
	if got != want {
		t.Errorf("ResolveTarget(quest) = %+v, want %+v", got, want)
	}

	got, err = ResolveTarget("me@quest", "", "/keys/k", path)
	if err != nil {
		t.Fatal(err)
	}
	if got.User != "me" || got.Key != "/keys/k" {
		t.Errorf("explicit user and key should win, got %+v", got)
	}

	got, err = ResolveTarget("", "ignored", "", path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsLocal() {
		t.Errorf("empty host should be local, got %+v", got)
	}
}
