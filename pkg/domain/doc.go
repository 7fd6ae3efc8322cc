/*
Package domain contains the core domain models of the ttystep stepping engine.

It defines the vocabulary shared by the scheduler, the recorder and the lifecycle
layer. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Action: One discrete input unit supplied by the driver per step.
  - Record: One framed, timestamped unit of the recording stream.
  - SessionInfo: The persisted summary of a session (steps, resets, completion).
  - Strategy: How a session is reset (isolated image, in-place, relay).
*/
package domain
