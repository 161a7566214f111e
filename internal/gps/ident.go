package gps

import (
	"fmt"
	"strings"
)

// PkgId identifies a package by its author and name, the way the registry
// names things: "author/name".
type PkgId struct {
	Author, Name string
}

// String renders id as "author/name".
func (id PkgId) String() string {
	return id.Author + "/" + id.Name
}

// Less orders PkgIds lexicographically by author, then name. Used
// everywhere a deterministic iteration order over packages is required
// (see the determinism requirement on candidate enumeration).
func (id PkgId) Less(o PkgId) bool {
	if id.Author != o.Author {
		return id.Author < o.Author
	}
	return id.Name < o.Name
}

// ParsePkgId parses "author/name" into a PkgId.
func ParsePkgId(s string) (PkgId, error) {
	i := strings.IndexByte(s, '/')
	if i < 0 || i == 0 || i == len(s)-1 {
		return PkgId{}, newParseError("package id", s, fmt.Errorf(`expected the form "author/name"`))
	}
	return PkgId{Author: s[:i], Name: s[i+1:]}, nil
}

// MarshalText lets PkgId serve directly as a JSON object key.
func (id PkgId) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText lets PkgId serve directly as a JSON object key.
func (id *PkgId) UnmarshalText(text []byte) error {
	p, err := ParsePkgId(string(text))
	if err != nil {
		return err
	}
	*id = p
	return nil
}

// PkgVersion is a concrete, resolvable point in the package space: one
// package at one version.
type PkgVersion struct {
	Id      PkgId
	Version SemVer
}

// String renders pv as "author/name@M.m.p".
func (pv PkgVersion) String() string {
	return pv.Id.String() + "@" + pv.Version.String()
}

// ParsePkgVersion parses "author/name@M.m.p" into a PkgVersion.
func ParsePkgVersion(s string) (PkgVersion, error) {
	i := strings.IndexByte(s, '@')
	if i < 0 {
		return PkgVersion{}, newParseError("package version", s, fmt.Errorf("no @version separator found"))
	}
	id, err := ParsePkgId(s[:i])
	if err != nil {
		return PkgVersion{}, newParseError("package version", s, err)
	}
	v, err := ParseSemVer(s[i+1:])
	if err != nil {
		return PkgVersion{}, newParseError("package version", s, err)
	}
	return PkgVersion{Id: id, Version: v}, nil
}
