package domain

// CommandType is the kind of operator console command.
type CommandType int

const (
	CommandUnknown  CommandType = iota
	CommandLive                 // interrupt with a live announcement
	CommandSay                  // enqueue at the scheduled tier
	CommandSkip                 // stop the current playback
	CommandQueue                // show current + pending
	CommandSchedule             // show the watch list
	CommandReload               // re-read the schedule file
	CommandHelp
	CommandQuit
)

// String returns a human-readable command type.
func (c CommandType) String() string {
	switch c {
	case CommandLive:
		return "live"
	case CommandSay:
		return "say"
	case CommandSkip:
		return "skip"
	case CommandQueue:
		return "queue"
	case CommandSchedule:
		return "schedule"
	case CommandReload:
		return "reload"
	case CommandHelp:
		return "help"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is a parsed line of operator input.
type Command struct {
	Type CommandType
	Text string // announcement text for live/say
}
