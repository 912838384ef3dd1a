package input

import (
	"strings"
	"time"

	"color-snake/internal/game"
)

// Command is one parsed player input
type Command struct {
	Kind       CommandKind
	Direction  game.Direction // Set for CmdDirection
	Source     string         // Client identity, used for rate limiting
	ReceivedAt time.Time
}

// CommandKind for routing
type CommandKind int

const (
	CmdDirection CommandKind = iota
	CmdPause                 // Toggle pause, or start from IDLE
	CmdStart                 // Start from IDLE, or restart after game over
	CmdRestart
	CmdUnknown
)

// String returns the wire name of the command kind
func (k CommandKind) String() string {
	switch k {
	case CmdDirection:
		return "direction"
	case CmdPause:
		return "pause"
	case CmdStart:
		return "start"
	case CmdRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// binding is what a key resolves to
type binding struct {
	kind CommandKind
	dir  game.Direction
}

// KeyBindings maps key names (browser KeyboardEvent.key/code values and
// plain words) to commands. Lookup is case-insensitive.
var KeyBindings = map[string]binding{
	// Up variants
	"arrowup": {CmdDirection, game.DirUp},
	"up":      {CmdDirection, game.DirUp},
	"w":       {CmdDirection, game.DirUp},
	"k":       {CmdDirection, game.DirUp},

	// Down variants
	"arrowdown": {CmdDirection, game.DirDown},
	"down":      {CmdDirection, game.DirDown},
	"s":         {CmdDirection, game.DirDown},
	"j":         {CmdDirection, game.DirDown},

	// Left variants
	"arrowleft": {CmdDirection, game.DirLeft},
	"left":      {CmdDirection, game.DirLeft},
	"a":         {CmdDirection, game.DirLeft},
	"h":         {CmdDirection, game.DirLeft},

	// Right variants
	"arrowright": {CmdDirection, game.DirRight},
	"right":      {CmdDirection, game.DirRight},
	"d":          {CmdDirection, game.DirRight},
	"l":          {CmdDirection, game.DirRight},

	// Pause variants
	" ":     {CmdPause, ""},
	"space": {CmdPause, ""},
	"p":     {CmdPause, ""},
	"pause": {CmdPause, ""},

	// Start variants
	"enter": {CmdStart, ""},
	"start": {CmdStart, ""},

	// Restart variants
	"r":       {CmdRestart, ""},
	"restart": {CmdRestart, ""},
}

// ParseKey resolves a key name to a command. Unknown keys yield CmdUnknown.
func ParseKey(key, source string) Command {
	name := strings.ToLower(key)
	if name != " " {
		name = strings.TrimSpace(name)
	}
	b, ok := KeyBindings[name]
	if !ok {
		return Command{Kind: CmdUnknown, Source: source}
	}
	return Command{Kind: b.kind, Direction: b.dir, Source: source}
}

// DirectionCommand builds a direction command from a direction name
func DirectionCommand(name, source string) (Command, error) {
	dir, err := game.ParseDirection(name)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: CmdDirection, Direction: dir, Source: source}, nil
}
