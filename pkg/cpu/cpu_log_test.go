package cpu

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestUnknownOpcodeIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	c := New(Config{Log: logger})
	mustExec(t, c, 0x0123)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry for the unknown opcode")
	}
	if entry.Level != logrus.DebugLevel {
		t.Errorf("level: expected debug, got %s", entry.Level)
	}
	if entry.Data["opcode"] != "0x0123" || entry.Data["pc"] != "0x200" {
		t.Errorf("fields: unexpected %v", entry.Data)
	}
}

func TestTraceLogsEveryInstruction(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	c := New(Config{Log: logger, Trace: true})
	loadProgram(c, 0x6A15, 0xA300)
	if err := c.Run(2); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(entries))
	}
	if entries[0].Data["asm"] != "LD VA, 0x15" {
		t.Errorf("first entry asm: got %v", entries[0].Data["asm"])
	}
	if entries[1].Data["pc"] != "0x202" || entries[1].Data["asm"] != "LD I, 0x300" {
		t.Errorf("second entry: unexpected %v", entries[1].Data)
	}
}

func TestNoTraceWithoutFlag(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	c := New(Config{Log: logger})
	mustExec(t, c, 0x6A15)
	if len(hook.AllEntries()) != 0 {
		t.Errorf("expected no log entries, got %d", len(hook.AllEntries()))
	}
}
