package render

import (
	"fmt"
	"strings"
	"sync"
)

// Level counts what happened to the tiles at one subdivision depth.
type Level struct {
	Tiles  int // tiles visited
	Empty  int // proven outside
	Full   int // proven inside
	Leaves int // evaluated per pixel
	MinLen int // shortest tape used
	MaxLen int // longest tape used
}

// Stats summarizes a render. Levels[0] holds the root tiles.
type Stats struct {
	Levels []Level
	Points int // pixels evaluated individually
}

func (s *Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "points evaluated: %d\n", s.Points)
	for d, l := range s.Levels {
		fmt.Fprintf(&sb, "depth %d: %d tiles (%d empty, %d full, %d leaves), tape %d..%d\n",
			d, l.Tiles, l.Empty, l.Full, l.Leaves, l.MinLen, l.MaxLen)
	}
	return sb.String()
}

// collector gathers stats from concurrent tile workers.
type collector struct {
	mu sync.Mutex
	s  Stats
}

type outcome int

const (
	outcomeSplit outcome = iota
	outcomeEmpty
	outcomeFull
	outcomeLeaf
)

func (c *collector) visit(depth, tapeLen int, o outcome, points int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.s.Levels) <= depth {
		c.s.Levels = append(c.s.Levels, Level{})
	}
	l := &c.s.Levels[depth]
	if l.Tiles == 0 || tapeLen < l.MinLen {
		l.MinLen = tapeLen
	}
	l.MaxLen = max(l.MaxLen, tapeLen)
	l.Tiles++
	switch o {
	case outcomeEmpty:
		l.Empty++
	case outcomeFull:
		l.Full++
	case outcomeLeaf:
		l.Leaves++
	}
	c.s.Points += points
}

func (c *collector) stats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	s.Levels = append([]Level(nil), c.s.Levels...)
	return &s
}
