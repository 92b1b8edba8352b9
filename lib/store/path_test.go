package store

import (
	"reflect"
	"testing"
)

type stringer struct{}

func (stringer) String() string { return "from-stringer" }

func TestScopePrefix(t *testing.T) {
	defaults := DefaultConfig()
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{"Default store", Config{Name: "app", StoreName: "keyvaluepairs"}, "app/"},
		{"Named store", Config{Name: "app", StoreName: "notes"}, "app/notes/"},
		{"Empty store name", Config{Name: "app"}, "app/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.StoreName == "" {
				cfg.StoreName = defaults.StoreName
			}
			if got := scopePrefix(cfg, defaults); got != tt.expected {
				t.Errorf("scopePrefix() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		key      any
		escape   bool
		expected string
	}{
		{"String", "key", false, "key"},
		{"Slash kept", "a/b", false, "a/b"},
		{"Int", 42, false, "42"},
		{"Float", 2.5, false, "2.5"},
		{"Stringer", stringer{}, false, "from-stringer"},
		{"Escaped slash", "a/b", true, "a%2Fb"},
		{"Escaped percent", "100%", true, "100%25"},
		{"Escaped escape sequence", "%2F", true, "%252F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeKey(tt.key, tt.escape)
			if got != tt.expected {
				t.Errorf("normalizeKey() = %q, want %q", got, tt.expected)
			}
			if tt.escape && unescapePath(got) != tt.key {
				t.Errorf("unescapePath(%q) = %q, want %q", got, unescapePath(got), tt.key)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"", []string{}},
		{"/", []string{}},
		{"a", []string{"a"}},
		{"a/b/c", []string{"a", "b", "c"}},
		{"/a//b/", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := splitPath(tt.path)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("splitPath(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	defaults := Config{Name: "db", StoreName: "store", Extra: map[string]any{"size": 1}}

	merged := Config{StoreName: "custom"}.Merge(defaults)
	if merged.Name != "db" || merged.StoreName != "custom" {
		t.Errorf("Expected name from defaults and own store name, got %+v", merged)
	}
	if merged.Extra["size"] != 1 {
		t.Errorf("Expected extra options from defaults, got %v", merged.Extra)
	}

	own := Config{Extra: map[string]any{"driver": "x"}}.Merge(defaults)
	if !reflect.DeepEqual(own.Extra, map[string]any{"driver": "x"}) {
		t.Errorf("Expected own extra options to be kept verbatim, got %v", own.Extra)
	}
}
