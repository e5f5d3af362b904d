// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

/*
Package pak reads and writes Unreal Engine ".pak" archives: a binary
container format that bundles many named entries together with per-entry
metadata and two trailing indices (a path-hash index and a full-directory
index) that resolve a logical asset path to a byte range inside the
archive.

Correctness is defined by byte-identity: re-serializing a mounted
archive's entries reproduces bytes an Unreal Engine build accepts, and
round-tripping a payload through Save then Mount returns identical bytes.

# Mounting

	a, err := pak.Mount("Game.pak")
	if err != nil {
	    return err
	}
	defer a.Close()

	data, err := a.ReadEntry("Content/Characters/Hero.uasset")
	if err != nil {
	    return err
	}
	_ = data

# Building

	a, err := pak.Create("Game.pak", "../../../MyGame/", pak.CreateOptions{
	    Compression: pak.MethodZlib,
	})
	if err != nil {
	    return err
	}
	if err := a.AddEntry("Content/A.uasset", payload); err != nil {
	    return err
	}
	if err := a.Save("Game.pak"); err != nil {
	    return err
	}

Encrypted archives, archives below the minimum supported version (frozen
indices among them), and entries larger than the 32-bit ceiling are
rejected with a typed error. Signed archives and delete-records are not
interpreted either: signatures are not checked, and directory-index files
whose offset marks them deleted are skipped on mount.
*/
package pak
