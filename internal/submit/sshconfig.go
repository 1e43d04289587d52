package submit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// HostConfig is the subset of an ssh_config Host block used to reach a
// cluster login node.
type HostConfig struct {
	Host          string
	HostName      string
	User          string
	IdentityFile  string
	IdentityAgent string
	Port          string
}

// LookupHost reads the ssh config at configPath (~/.ssh/config when empty)
// and returns the settings for host. It returns nil, nil when the file or a
// matching block does not exist. As in ssh, the first value seen for a
// keyword wins across all matching blocks.
func LookupHost(host, configPath string) (*HostConfig, error) {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if configPath == "" {
		if home == "" {
			return nil, errors.New("no home directory to find ~/.ssh/config in")
		}
		configPath = filepath.Join(home, ".ssh", "config")
	}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read ssh config %s: %w", configPath, err)
	}
	return parseHostConfig(host, string(data), home), nil
}

// splitDirective splits "Keyword value" or "Keyword=value".
func splitDirective(line string) (keyword, value string, ok bool) {
	i := strings.IndexAny(line, " \t=")
	if i < 0 {
		return "", "", false
	}
	keyword = strings.ToLower(line[:i])
	value = strings.TrimLeft(line[i:], " \t=")
	return keyword, value, value != ""
}

func parseHostConfig(host, text, home string) *HostConfig {
	cfg := &HostConfig{Host: host}
	var matching, found bool

	expand := func(v string) string {
		v = strings.Trim(v, `"`)
		if rest, ok := strings.CutPrefix(v, "~/"); ok && home != "" {
			return filepath.Join(home, rest)
		}
		return v
	}
	fields := map[string]*string{
		"hostname":      &cfg.HostName,
		"user":          &cfg.User,
		"identityfile":  &cfg.IdentityFile,
		"identityagent": &cfg.IdentityAgent,
		"port":          &cfg.Port,
	}

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		keyword, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		if keyword == "host" {
			matching = MatchHost(host, strings.Fields(value))
			found = found || matching
			continue
		}
		dst, known := fields[keyword]
		if !known || !matching || *dst != "" {
			continue
		}
		if keyword == "identityfile" || keyword == "identityagent" {
			value = expand(value)
		}
		*dst = value
	}
	if !found {
		return nil
	}
	return cfg
}

// MatchHost reports whether target matches a Host line's patterns. Patterns
// use * and ? wildcards; a pattern prefixed with ! excludes the host even
// if another pattern matches.
func MatchHost(target string, patterns []string) bool {
	matched := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		ok, err := path.Match(p, target)
		if err != nil || !ok {
			continue
		}
		if negate {
			return false
		}
		matched = true
	}
	return matched
}
