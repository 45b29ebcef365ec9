package main

import (
	"bytes"
	stderrors "errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tturner/udpreplay/internal/capture/fixtures"
	replayerrors "github.com/tturner/udpreplay/internal/errors"
)

func TestRequiredFlagsErrors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     func() *cobra.Command
		args    []string
		wantErr string
	}{
		{
			name:    "replay missing pcap",
			cmd:     newReplayCmd,
			args:    nil,
			wantErr: "required flag --pcap not set",
		},
		{
			name:    "replay missing old-dest",
			cmd:     newReplayCmd,
			args:    []string{"--pcap", "a.pcap"},
			wantErr: "required flag --old-dest not set",
		},
		{
			name:    "replay missing new-src",
			cmd:     newReplayCmd,
			args:    []string{"--pcap", "a.pcap", "--old-dest", "10.0.0.1:5000"},
			wantErr: "required flag --new-src not set",
		},
		{
			name:    "inspect missing pcap",
			cmd:     newInspectCmd,
			args:    nil,
			wantErr: "required flag --pcap not set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
			if replayerrors.ExitCode(err) != replayerrors.ExitConfig {
				t.Errorf("exit code = %d, want %d", replayerrors.ExitCode(err), replayerrors.ExitConfig)
			}
		})
	}
}

func TestReplayMalformedEndpoint(t *testing.T) {
	cmd := newReplayCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"--pcap", filepath.Join(t.TempDir(), "missing.pcap"),
		"--old-dest", "not-an-ip:abc",
		"--new-src", "127.0.0.1:0",
	})
	err := cmd.Execute()
	if !stderrors.Is(err, replayerrors.ErrConfig) {
		t.Fatalf("expected config error before any I/O, got %v", err)
	}
}

func TestReplayNoMatchingPackets(t *testing.T) {
	data, err := fixtures.UDPFrame("10.0.0.9", "10.0.0.2", 40000, 5000, []byte("unrelated"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "other.pcap")
	if err := fixtures.WritePCAP(path, []fixtures.Frame{{Timestamp: fixtures.At(0), Data: data}}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newReplayCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--pcap", path, "--old-dest", "10.0.0.1:5000", "--new-src", "192.0.2.1:1", "--no-progress"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(out.String(), "No packets to send") {
		t.Errorf("output = %q", out.String())
	}
}

func TestInspectCommand(t *testing.T) {
	data, err := fixtures.UDPFrame("10.0.0.9", "10.0.0.1", 40000, 5000, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "one.pcapng")
	if err := fixtures.WritePCAPNG(path, []fixtures.Frame{{Timestamp: fixtures.At(0), Data: data}}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newInspectCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--pcap", path, "--old-dest", "10.0.0.1:5000"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for _, want := range []string{"1 (1 UDP, 0 other)", "10.0.0.1:5000", "1 packet(s), 8 byte(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestInspectMissingCapture(t *testing.T) {
	cmd := newInspectCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--pcap", filepath.Join(t.TempDir(), "nope.pcap")})
	err := cmd.Execute()
	if replayerrors.ExitCode(err) != replayerrors.ExitCaptureLoad {
		t.Fatalf("expected capture load error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "udpreplay version dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"replay", "inspect", "interfaces", "version"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help missing %q:\n%s", name, out.String())
		}
	}
}

func TestHandleHelpArg(t *testing.T) {
	var out bytes.Buffer
	cmd := newReplayCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(out.String(), "--old-dest") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestInterfacesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newInterfacesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--all"})
	if err := cmd.Execute(); err != nil {
		t.Skipf("cannot list interfaces: %v", err)
	}
	if !strings.Contains(out.String(), "Local Interfaces") {
		t.Errorf("output = %q", out.String())
	}
}
