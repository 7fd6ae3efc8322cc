/*
Package ports defines the driven ports (interfaces) of the ttystep engine.

These interfaces decouple the stepping engine from the wrapped program and from
external implementations such as session registries and distributed lockers.

# Key Interfaces

  - Program: The wrapped console program, reached only through its entry routine.
  - Terminal: The capability surface a Program is linked against (emit, flush, read, exit).
  - Stepper: One engine strategy (coroutine, isolated image, pty relay) behind a session.
  - SessionStore: Persists SessionInfo summaries.
  - DistributedLocker: Serializes drivers across replicas.
*/
package ports
