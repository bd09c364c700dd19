// Package testutil provides scripted collaborators for restore tests.
package testutil
