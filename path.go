// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"regexp"
	"strings"
)

// canonicalMountPrefix is the mount-point prefix Unreal always ships:
// "../../../" walks up from the packaged binary to the project root.
const canonicalMountPrefix = "../../../"

// driveLetterRoot matches a Windows-style rooted path such as "C:\" or
// "C:/". Decided per spec §9 Open Question: IsPathRooted does not defer to
// the host platform's own rootedness rules.
var driveLetterRoot = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// IsPathRooted reports whether p is an absolute path: it starts with "/" or
// a drive letter such as "C:\".
func IsPathRooted(p string) bool {
	return strings.HasPrefix(p, "/") || driveLetterRoot.MatchString(p)
}

// relativeMountPoint strips the canonical "../../../" prefix from
// mountPoint, if present, then collapses to empty when the remainder is a
// rooted path.
func relativeMountPoint(mountPoint string) string {
	if stripped, ok := strings.CutPrefix(mountPoint, canonicalMountPrefix); ok {
		mountPoint = stripped
	}
	if IsPathRooted(mountPoint) {
		return ""
	}
	return mountPoint
}

// normalizeAddedPath strips the canonical mount prefix and the archive's
// relative mount point from a path handed to AddEntry, so the stored key
// matches what a mounted archive's index would key entries by.
func normalizeAddedPath(path, mountPoint string) string {
	path = strings.TrimPrefix(path, canonicalMountPrefix)
	if rel := relativeMountPoint(mountPoint); rel != "" {
		path = strings.TrimPrefix(path, rel)
	}
	return path
}

// findEntryCandidates returns path's lookup variants in priority order:
// exact, mount-point-stripped, relative-mount-point-stripped.
func findEntryCandidates(path, mountPoint string) []string {
	candidates := []string{path}
	if stripped := strings.TrimPrefix(path, mountPoint); stripped != path {
		candidates = append(candidates, stripped)
	}
	if rel := relativeMountPoint(mountPoint); rel != "" {
		if stripped := strings.TrimPrefix(path, rel); stripped != path {
			candidates = append(candidates, stripped)
		}
	}
	return candidates
}

// rootDir is the synthetic directory name for entries with no path
// separator, and the mandatory first bucket in the full-directory index.
const rootDir = "/"

// parentDir returns path's containing directory, or rootDir for a path with
// no separator.
func parentDir(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return rootDir
}

// baseName returns the final path component.
func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// joinDirFile is the inverse of parentDir/baseName: it reconstructs a full
// path from a directory index bucket and a file name within it.
func joinDirFile(dir, file string) string {
	if dir == rootDir || dir == "" {
		return file
	}
	return strings.TrimSuffix(dir, "/") + "/" + file
}

// ancestors returns dir and every ancestor directory of dir, root first,
// for seeding the full-directory index's parent-before-child ordering.
func ancestors(dir string) []string {
	if dir == rootDir || dir == "" {
		return []string{rootDir}
	}
	parts := strings.Split(dir, "/")
	out := make([]string, 0, len(parts)+1)
	out = append(out, rootDir)
	cur := ""
	for _, p := range parts {
		if cur == "" {
			cur = p
		} else {
			cur = cur + "/" + p
		}
		out = append(out, cur)
	}
	return out
}
