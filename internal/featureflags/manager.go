// Package featureflags switches optional subsystems on and off from the
// FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// PageCache serves the index feed from redis.
	PageCache = "page_cache"
	// LiveFeed pushes new posts and followers over websockets.
	LiveFeed = "live_feed"
)

type state struct {
	on      bool
	percent int // -1 unless the value was "N%"
}

// Manager evaluates a list like "page_cache=on,live_feed=25%".
type Manager struct {
	flags map[string]state
	raw   map[string]string
}

// NewManager parses raw, silently skipping malformed pairs.
func NewManager(raw string) *Manager {
	m := &Manager{
		flags: make(map[string]state),
		raw:   make(map[string]string),
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		st, ok := parseValue(value)
		if !ok {
			continue
		}
		m.flags[key] = st
		m.raw[key] = value
	}

	return m
}

func parseValue(value string) (state, bool) {
	switch value {
	case "on", "true", "1":
		return state{on: true, percent: -1}, true
	case "off", "false", "0":
		return state{percent: -1}, true
	}
	if pctRaw, found := strings.CutSuffix(value, "%"); found {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return state{}, false
		}
		return state{on: pct >= 100, percent: min(max(pct, 0), 100)}, true
	}
	return state{}, false
}

// Enabled reports whether name is on for userID. Percentage rollouts are
// deterministic per user; anonymous visitors (userID 0) only see fully
// rolled-out flags.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	st, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	if st.percent < 0 || st.percent == 100 {
		return st.on
	}
	if st.percent == 0 || userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < st.percent
}

// On reports whether name is switched on for everyone.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, 0)
}

// Names lists the configured flags in order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.raw))
	for k := range m.raw {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.Names()))
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
