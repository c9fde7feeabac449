package filter

import (
	"path"

	"github.com/dyluth/cantas/pkg/board"
)

// Criteria defines filtering criteria for broadcasts.
// All filters are ANDed together - a broadcast must match ALL criteria to pass.
type Criteria struct {
	ChannelGlob string // path.Match pattern on the channel, empty = no filter
	Room        string // exact room, e.g. "board:<id>", empty = no filter
	Origin      string // exact originating connection, empty = no filter
}

// Matches returns true if msg matches all filter criteria.
// A malformed glob matches nothing.
func (c *Criteria) Matches(msg *board.Message) bool {
	if c.ChannelGlob != "" {
		matched, err := path.Match(c.ChannelGlob, msg.Channel)
		if err != nil || !matched {
			return false
		}
	}

	if c.Room != "" && msg.Room != c.Room {
		return false
	}

	if c.Origin != "" && msg.Origin != c.Origin {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.ChannelGlob != "" || c.Room != "" || c.Origin != ""
}

// Validate reports a malformed channel glob.
func (c *Criteria) Validate() error {
	if c.ChannelGlob == "" {
		return nil
	}
	_, err := path.Match(c.ChannelGlob, "")
	return err
}
