/*
Package ttyrec records and replays terminal output in ttyrec framing.

Every record is a little-endian header of seconds, microseconds, payload length
(int32 each) and a channel byte, followed by the payload. Channel 0 carries
program output, channel 1 the driver's actions.

A recording is append-only. Readers treat a file as valid up to its last
complete record: a truncated trailing record marks an unfinished session and is
dropped, never reported as corruption.
*/
package ttyrec
