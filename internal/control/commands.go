package control

import (
	"fmt"
	"strings"

	"github.com/sweeney/ir-learner/internal/logic"
)

// Command is an operator text command.
type Command int

const (
	CommandUnknown Command = iota
	CommandSend
	CommandLearn
	CommandStatus
	CommandHelp
)

var commandNames = map[string]Command{
	"send":   CommandSend,
	"learn":  CommandLearn,
	"status": CommandStatus,
	"help":   CommandHelp,
}

// ParseCommand maps a trimmed, case-insensitive word to a Command.
func ParseCommand(s string) Command {
	if c, ok := commandNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CommandUnknown
}

func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "unknown"
}

// HelpText lists the accepted commands.
const HelpText = `commands:
  send    replay the learned signal
  learn   enter learning mode (again to cancel)
  status  show mode, learned signal and counters
  help    show this text`

// FormatStatus renders a one-line human summary of st.
func FormatStatus(st Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s", st.Mode)
	if st.Mode == logic.ModeLearning {
		fmt.Fprintf(&b, " progress=%d/%d", st.Progress, logic.RegistrationSamples)
	}
	if st.Learned.Committed {
		fmt.Fprintf(&b, " learned=%s", FormatSignal(st.Learned))
	} else {
		b.WriteString(" learned=none")
	}
	if st.LastOutcome != logic.OutcomeNone {
		fmt.Fprintf(&b, " last=%s", st.LastOutcome)
		if st.LastReason != "" {
			fmt.Fprintf(&b, " (%s)", st.LastReason)
		}
	}
	fmt.Fprintf(&b, " sent=%d committed=%d detected=%d identified=%d",
		st.Counts.Sent, st.Counts.Committed, st.Counts.Detected, st.Counts.Identified)
	return b.String()
}

// FormatSignal renders a signal as PROTOCOL 0xVALUE/bits, with the
// address/data split for 48-bit Panasonic frames.
func FormatSignal(s logic.LearnedSignal) string {
	out := fmt.Sprintf("%s %s/%d", s.Protocol, hex(s.Value), s.Bits)
	if addr, data, ok := logic.PanasonicFields(s.Protocol, s.Value, s.Bits); ok {
		out += fmt.Sprintf(" (address=0x%04X data=0x%08X)", addr, data)
	}
	return out
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}
