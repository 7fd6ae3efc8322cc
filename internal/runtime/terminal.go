package runtime

import (
	"io"

	"github.com/aretw0/ttystep/internal/coroutine"
	"github.com/aretw0/ttystep/pkg/conduit"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// terminal is the program-side Terminal. Every method runs on the program's
// goroutine; reads park it whenever no action is pending.
type terminal struct {
	y       *coroutine.Yielder
	channel *conduit.Channel
	rec     *ttyrec.Recorder
	dir     string
}

func (t *terminal) check(err error) {
	if err != nil {
		t.y.Fail(err)
	}
}

func (t *terminal) PutChar(c byte) error {
	t.check(t.rec.PutChar(c))
	return nil
}

func (t *terminal) PutString(s string) error {
	t.check(t.rec.PutString(s))
	return nil
}

func (t *terminal) Write(p []byte) (int, error) {
	n, err := t.rec.Write(p)
	t.check(err)
	return n, nil
}

func (t *terminal) Flush() error {
	t.check(t.rec.Flush())
	return nil
}

// await parks the program until the driver has delivered an action.
func (t *terminal) await() {
	for t.channel.Pending() == 0 {
		if t.y.Yield(false) {
			t.y.Unwind()
		}
	}
}

func (t *terminal) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	t.await()
	n, err := t.channel.Input().Read(p)
	if err != nil && err != io.EOF {
		t.check(err)
	}
	return n, err
}

func (t *terminal) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(t, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (t *terminal) Exit(status int) {
	t.y.Exit(status)
}

func (t *terminal) Dir() string {
	return t.dir
}
