package control

import (
	"strings"
	"testing"

	"github.com/sweeney/ir-learner/internal/logic"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"send", CommandSend},
		{"SEND", CommandSend},
		{"  learn\n", CommandLearn},
		{"Status", CommandStatus},
		{"help", CommandHelp},
		{"", CommandUnknown},
		{"sendx", CommandUnknown},
		{"send now", CommandUnknown},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCommandString(t *testing.T) {
	if CommandLearn.String() != "learn" {
		t.Errorf("got %q", CommandLearn.String())
	}
	if CommandUnknown.String() != "unknown" {
		t.Errorf("got %q", CommandUnknown.String())
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	for _, name := range []string{"send", "learn", "status", "help"} {
		if !strings.Contains(HelpText, name) {
			t.Errorf("help text missing %q", name)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	st := Status{Mode: logic.ModeLearning, Progress: 2}
	got := FormatStatus(st)
	if !strings.Contains(got, "mode=LEARNING progress=2/3") || !strings.Contains(got, "learned=none") {
		t.Errorf("unexpected: %q", got)
	}

	st = Status{
		Mode:        logic.ModeSending,
		Learned:     logic.LearnedSignal{Protocol: logic.ProtocolNEC, Value: 0x11A807F, Bits: 32, Committed: true},
		LastOutcome: logic.OutcomeSendFailed,
		LastReason:  ReasonUnsupported,
	}
	got = FormatStatus(st)
	if strings.Contains(got, "progress") {
		t.Errorf("progress shown while sending: %q", got)
	}
	if !strings.Contains(got, "learned=NEC 0x11A807F/32") {
		t.Errorf("missing learned signal: %q", got)
	}
	if !strings.Contains(got, "last=SEND_FAILED (unsupported protocol)") {
		t.Errorf("missing last outcome: %q", got)
	}
}

func TestFormatSignalPanasonic(t *testing.T) {
	s := logic.LearnedSignal{Protocol: logic.ProtocolPanasonic, Value: 0x555AF148688B, Bits: 48, Committed: true}
	want := "PANASONIC 0x555AF148688B/48 (address=0x555A data=0xF148688B)"
	if got := FormatSignal(s); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
