// Package audit records security events for the portal: authorization
// denials, granted API access, authentication failures and role changes.
//
// Events flow through the SecurityLogger interface. Sinks ship with the
// package for the database (the queryable trail), NDJSON files (offline
// shipping) and fan-out to several sinks at once. Event emission is
// fire-and-forget from the caller's point of view; a failing sink never
// affects the request being served.
//
// A retention job prunes the database trail on a cron schedule,
// optionally archiving pruned events to file first.
package audit
