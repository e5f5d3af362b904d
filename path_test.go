// SPDX-License-Identifier: MIT
// Source: github.com/wrenpak/pak

package pak

import (
	"reflect"
	"testing"
)

func TestIsPathRooted(t *testing.T) {
	cases := map[string]bool{
		"/Content/A.uasset":  true,
		"C:\\Games\\A":       true,
		"D:/Games/A":         true,
		"Content/A.uasset":   false,
		"":                   false,
		"../../../TestGame/": false,
	}
	for p, want := range cases {
		if got := IsPathRooted(p); got != want {
			t.Errorf("IsPathRooted(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestRelativeMountPoint(t *testing.T) {
	cases := map[string]string{
		"../../../TestGame/": "TestGame/",
		"../../../":           "",
		"/Absolute/Path/":     "",
		"NoPrefix/":           "NoPrefix/",
	}
	for mp, want := range cases {
		if got := relativeMountPoint(mp); got != want {
			t.Errorf("relativeMountPoint(%q) = %q, want %q", mp, got, want)
		}
	}
}

func TestParentDirAndBaseName(t *testing.T) {
	if got := parentDir("Content/Sub/A.uasset"); got != "Content/Sub" {
		t.Errorf("parentDir = %q, want %q", got, "Content/Sub")
	}
	if got := parentDir("A.uasset"); got != rootDir {
		t.Errorf("parentDir of root-level file = %q, want %q", got, rootDir)
	}
	if got := baseName("Content/Sub/A.uasset"); got != "A.uasset" {
		t.Errorf("baseName = %q, want %q", got, "A.uasset")
	}
}

func TestJoinDirFileRoundTripsWithParentBaseName(t *testing.T) {
	paths := []string{"A.uasset", "Content/A.uasset", "Content/Sub/Deep/A.uasset"}
	for _, p := range paths {
		joined := joinDirFile(parentDir(p), baseName(p))
		if joined != p {
			t.Errorf("joinDirFile(parentDir(%q), baseName(%q)) = %q, want %q", p, p, joined, p)
		}
	}
}

func TestAncestorsAreParentFirst(t *testing.T) {
	got := ancestors("Content/Sub/Deep")
	want := []string{rootDir, "Content", "Content/Sub", "Content/Sub/Deep"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}

	if got := ancestors(rootDir); !reflect.DeepEqual(got, []string{rootDir}) {
		t.Errorf("ancestors(root) = %v, want [%q]", got, rootDir)
	}
}
