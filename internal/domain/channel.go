package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxChannels is the highest analog channel number accepted.
const MaxChannels = 8

// Channel identifies one analog input of the oscilloscope.
type Channel int

// ParseChannel accepts "ch1", "CH1" or "1".
func ParseChannel(raw string) (Channel, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "ch")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid channel %q", raw)
	}
	ch := Channel(n)
	if !ch.Valid() {
		return 0, fmt.Errorf("channel %q out of range 1..%d", raw, MaxChannels)
	}
	return ch, nil
}

func (c Channel) Valid() bool { return c >= 1 && c <= MaxChannels }

// SCPI returns the mnemonic used in control commands, e.g. "CH1".
func (c Channel) SCPI() string { return fmt.Sprintf("CH%d", int(c)) }

// SourceName returns the name used by the high-speed transfer protocol, e.g. "ch1".
func (c Channel) SourceName() string { return fmt.Sprintf("ch%d", int(c)) }

func (c Channel) String() string { return c.SCPI() }
