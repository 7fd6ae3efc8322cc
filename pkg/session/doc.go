/*
Package session owns live ttystep sessions by ID.

It serializes drivers per session (one driver at a time, optionally across
replicas through a distributed locker) and persists each session's
bookkeeping to a ports.SessionStore after every operation, so listings survive
the process that ran the session.
*/
package session
