// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

// ldflags is a snapshot of the link-time variables.
type ldflags struct {
	name, time, commit, version string
}

func (l ldflags) apply() {
	buildName, buildTime, buildCommit, buildVersion = l.name, l.time, l.commit, l.version
}

func TestMain(m *testing.M) {
	saved := ldflags{buildName, buildTime, buildCommit, buildVersion}
	savedInfo := *buildFlags

	code := m.Run()

	saved.apply()
	*buildFlags = savedInfo
	os.Exit(code)
}

func TestInitialize(t *testing.T) {
	complete := ldflags{"micscope", "2026-10-16T09:00:00Z", "4f2c1e9", "0.3.1"}

	tests := []struct {
		name    string
		mutate  func(*ldflags)
		wantErr string
	}{
		{"complete", func(*ldflags) {}, ""},
		{"no name", func(l *ldflags) { l.name = "" }, "BuildName is required"},
		{"no time", func(l *ldflags) { l.time = "" }, "BuildTime is required"},
		{"no commit", func(l *ldflags) { l.commit = "" }, "BuildCommit is required"},
		{"no version", func(l *ldflags) { l.version = "" }, "BuildVersion is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = defaultInfo()
			flags := complete
			tt.mutate(&flags)
			flags.apply()

			err := Initialize()
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("Initialize() = %v, want %q", err, tt.wantErr)
				}
				if GetBuildFlags().Version != "unknown" {
					t.Errorf("failed Initialize() touched the build info: %+v", GetBuildFlags())
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			got := *GetBuildFlags()
			want := Info{Name: "micscope", Description: Description, Time: complete.time, Commit: complete.commit, Version: complete.version}
			if got != want {
				t.Errorf("GetBuildFlags() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	buildFlags = defaultInfo()
	ldflags{}.apply()

	if err := Initialize(); err == nil {
		t.Fatal("Initialize() expected error, got nil")
	}
	if got, want := GetBuildFlags().String(), "micscope unknown (commit unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	info := Info{Name: "micscope", Time: "today", Commit: "abc", Version: "1.0.0"}
	if got, want := info.String(), "micscope 1.0.0 (commit abc, built today)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
