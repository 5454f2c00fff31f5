// Package model provides the value types shared by every ccdb package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - RunRange is always validated: Min <= Max, Max may be InfiniteRun
//   - Assignments are immutable once committed; a correction is a new version
//   - Names and paths are NFC normalized at the boundary (NormalizePath, NormalizeName)
//   - Every error surfaced to callers is a *Error carrying a Code
package model
