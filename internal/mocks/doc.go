// Package mocks provides in-memory store implementations for handler and
// service tests. They honor the same sentinel-error contracts as the postgres
// stores but keep everything in maps guarded by a mutex.
package mocks
