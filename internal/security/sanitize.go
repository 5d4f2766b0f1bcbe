// Package security implements the two fixed, non-negotiable checks that
// run ahead of every advisory or resource check in the policy chain: the
// filename sanitizer in this file, and the symlink-aware path jail in
// jail.go.
package security

import (
	"strings"

	"github.com/archivekit/safeunzip/internal/xerrors"
)

const (
	maxNameLength      = 1024
	maxComponentLength = 255
)

// windowsReservedNames are rejected case-insensitively and regardless of
// any extension, since Windows treats "CON.txt" the same as "CON".
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName rejects an archive entry name that is syntactically unsafe
// on its own terms, independent of where it resolves to. Traversal syntax
// ("..", absolute paths) is deliberately left to the path jail in jail.go,
// which is the only place that knows the destination root and can resolve
// symlinks; this function only ever looks at the raw name.
func SanitizeName(name string) error {
	if name == "" || isAllSlashes(name) {
		return xerrors.InvalidFilename(name, "name is empty")
	}

	if len(name) > maxNameLength {
		return xerrors.InvalidFilename(name, "name exceeds 1024 bytes")
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7F {
			return xerrors.InvalidFilename(name, "name contains a control character")
		}
	}

	if strings.ContainsRune(name, '\\') {
		return xerrors.InvalidFilename(name, "name contains a backslash")
	}

	for _, component := range strings.Split(name, "/") {
		if component == "" {
			continue
		}
		if len(component) > maxComponentLength {
			return xerrors.InvalidFilename(name, "a path component exceeds 255 bytes")
		}
		if isWindowsReserved(component) {
			return xerrors.InvalidFilename(name, "a path component is a Windows reserved name: "+component)
		}
	}

	return nil
}

func isAllSlashes(name string) bool {
	for _, r := range name {
		if r != '/' {
			return false
		}
	}
	return true
}

func isWindowsReserved(component string) bool {
	base := component
	if idx := strings.LastIndexByte(component, '.'); idx >= 0 {
		base = component[:idx]
	}
	return windowsReservedNames[strings.ToUpper(base)]
}
