// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

const redactedPrefix = "<redacted"

// RedactString hides a secret while keeping its last four characters for log correlation
func RedactString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return redactedPrefix + ">"
	}
	return redactedPrefix + ":" + s[len(s)-4:] + ">"
}
