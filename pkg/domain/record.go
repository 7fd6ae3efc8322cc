package domain

import "time"

// Channel tags a record with its origin.
type Channel uint8

const (
	// ChannelOutput carries terminal text emitted by the program.
	ChannelOutput Channel = 0
	// ChannelInput carries the action fed by the driver.
	ChannelInput Channel = 1
	// ChannelControl carries engine control frames on the host wire. Never persisted.
	ChannelControl Channel = 255
)

// HeaderSize is the size of a record header: seconds, microseconds, length (int32 each) and channel.
const HeaderSize = 13

// Record is one framed, timestamped unit of a recording.
type Record struct {
	Sec     int32
	Usec    int32
	Channel Channel
	Payload []byte
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(int64(r.Sec), int64(r.Usec)*int64(time.Microsecond))
}

// Before reports whether r is strictly earlier than o.
func (r Record) Before(o Record) bool {
	if r.Sec != o.Sec {
		return r.Sec < o.Sec
	}
	return r.Usec < o.Usec
}
