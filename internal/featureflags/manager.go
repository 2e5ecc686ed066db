// Package featureflags gates optional board features such as likes and
// comment editing. Flags come from FEATURE_FLAGS, e.g. "likes=on,comment_edit=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const (
	Likes       = "likes"
	CommentEdit = "comment_edit"
)

// Flag describes a flag the application reads.
type Flag struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// Known lists the flags routes consult. An unconfigured known flag falls
// back to its Default; an unconfigured unknown flag is off.
var Known = []Flag{
	{Name: Likes, Description: "like button and /profiles/:id/likes routes", Default: true},
	{Name: CommentEdit, Description: "editing a posted comment", Default: false},
}

// rule is one parsed FEATURE_FLAGS entry. percent is 0..100.
type rule struct {
	raw     string
	percent int
}

func (r rule) allows(name, userID string) bool {
	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == "":
		// partial rollouts only reach signed-in users
		return false
	default:
		return bucket(name, userID) < r.percent
	}
}

// Manager evaluates flags for a caller. A nil *Manager enables nothing.
type Manager struct {
	rules   map[string]rule
	invalid []string
}

// NewManager parses a comma-separated name=value list. Values are
// on/true/1, off/false/0, or a rollout percentage like 25%.
// Malformed entries are skipped and reported by Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			m.invalid = append(m.invalid, entry)
			continue
		}
		pct, err := parsePercent(value)
		if err != nil {
			m.invalid = append(m.invalid, entry)
			continue
		}
		m.rules[name] = rule{raw: value, percent: pct}
	}

	return m
}

func parsePercent(value string) (int, error) {
	switch value {
	case "on", "true", "1":
		return 100, nil
	case "off", "false", "0":
		return 0, nil
	}
	num, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("unrecognized flag value %q", value)
	}
	pct, err := strconv.Atoi(num)
	if err != nil || pct < 0 || pct > 100 {
		return 0, fmt.Errorf("rollout must be 0%%..100%%, got %q", value)
	}
	return pct, nil
}

// Enabled reports whether name is on for userID ("" for anonymous callers).
// Percentage rollouts hash name and userID so a user keeps the same answer.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	if r, ok := m.rules[name]; ok {
		return r.allows(name, userID)
	}
	for _, f := range Known {
		if f.Name == name {
			return f.Default
		}
	}
	return false
}

// Names returns configured flag names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.rules))
	for k := range m.rules {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Raw returns the configured value of every parsed flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Invalid returns the entries NewManager could not parse.
func (m *Manager) Invalid() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.invalid...)
}

// Snapshot evaluates every known and configured flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	out := make(map[string]bool, len(Known))
	for _, f := range Known {
		out[f.Name] = m.Enabled(f.Name, userID)
	}
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}
