// Package cachekey holds the key rules shared by the restore step and the
// local provider: exact-match comparison and key validation.
//
// Exact matching ignores letter case but keeps accents, so "Build-1" matches
// "build-1" while "build-é" does not match "build-e". Both sides are NFC
// normalized first, so composed and decomposed forms of the same text compare
// equal.
package cachekey
