/*
Package ttystep turns a blocking, terminal-interactive console program into a
steppable simulation session.

A driver feeds one action (a single key) per step and gets control back as
soon as the program asks for its next key. Everything the program prints is
captured in a ttyrec recording and returned as the step's observation.

# Engines

Three strategies sit behind a Session:

  - isolated (default): the program runs in a child process image. Reset
    respawns the image, so no global state survives an episode.
  - inplace: the program runs as a coroutine inside this process. Reset
    re-runs its entry routine, which is only sound for programs whose whole
    state lives on that routine's stack (see ports.StackConfined).
  - relay: an unmodified binary runs under a pseudo-terminal.

# Usage

	sess, err := ttystep.Start(ctx,
		ttystep.WithProgram("demo"),
		ttystep.WithRecording("demo.ttyrec"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.End()

	fmt.Printf("%s", sess.Observation())
	for _, key := range []domain.Action{'y', 'y', 'l'} {
		done, err := sess.Step(ctx, key)
		if err != nil || done {
			break
		}
		fmt.Printf("%s", sess.Observation())
	}

A program linked into the binary is a ports.Program registered under a name.
Isolated sessions re-execute the current binary with the hidden "host"
command, so binaries embedding this package must route that command to
process.Host (the ttystep CLI does).
*/
package ttystep
