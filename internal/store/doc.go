// Package store defines the persistence interfaces of the application and
// the sentinel errors their implementations return. Implementations live in
// internal/platform/postgres; handlers and services depend only on these
// interfaces.
package store
