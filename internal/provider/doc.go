// Package provider implements restore.Provider on top of the local store.
//
// Lookup follows the matching rules of hosted CI caches: the keys
// [primary, restoreKeys...] are tried in order, each first as an exact
// match and then as a prefix returning the newest entry. Entries are only
// visible within the version derived from the cached paths.
//
// Restoring records the restoration in the store under the provider's run
// ID. Archive transfer is outside this package.
package provider
