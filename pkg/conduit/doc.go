/*
Package conduit provides the action/observation channel between a driver and
a wrapped program.

Two pipes stand in for the program's standard input and output. The driver
writes one action byte per step into the input pipe; everything the program
writes to the output pipe is drained by a pump goroutine into an observation
buffer, so the program never blocks on a full pipe while the driver is
suspended.

Settle gives the driver a synchronization point: it returns once every byte
written through Output has reached the observation buffer.
*/
package conduit
