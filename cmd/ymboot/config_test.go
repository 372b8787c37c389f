package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/moffa90/go-ymboot/bootloader"
)

type testFlags struct {
	port    string
	baud    int
	family  string
	timeout time.Duration
	echo    bool
}

func newTestFlagSet(f *testFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&f.port, "port", "", "")
	fs.IntVar(&f.baud, "baud", 115200, "")
	fs.StringVar(&f.family, "family", "nova", "")
	fs.DurationVar(&f.timeout, "entry-timeout", time.Minute, "")
	fs.BoolVar(&f.echo, "echo", false, "")
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		args    []string
		want    testFlags
		wantErr bool
	}{
		{
			name:   "file fills defaults",
			config: `{"port": "/dev/ttyUSB1", "baud": 57600, "entry_timeout": "90s", "echo": true}`,
			want:   testFlags{port: "/dev/ttyUSB1", baud: 57600, family: "nova", timeout: 90 * time.Second, echo: true},
		},
		{
			name:   "flags override file",
			config: `{"port": "/dev/ttyUSB1", "family": "vega"}`,
			args:   []string{"--port", "/dev/ttyACM0"},
			want:   testFlags{port: "/dev/ttyACM0", baud: 115200, family: "vega", timeout: time.Minute},
		},
		{
			name:   "unknown flags ignored",
			config: `{"parity": "even"}`,
			want:   testFlags{baud: 115200, family: "nova", timeout: time.Minute},
		},
		{
			name:    "bad duration",
			config:  `{"entry_timeout": "soon"}`,
			wantErr: true,
		},
		{
			name:    "bad json",
			config:  `{"port": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testFlags
			fs := newTestFlagSet(&got)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			err := applyConfigFile(fs, writeConfig(t, tt.config))
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyConfigFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(testFlags{})); diff != "" {
				t.Errorf("flags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	entry, err := newEntry("command", "REBOOT")
	if err != nil {
		t.Fatal(err)
	}
	if ce, ok := entry.(*bootloader.CommandEntry); !ok || ce.ResetCommand != "REBOOT" {
		t.Errorf("newEntry(command) = %#v", entry)
	}

	entry, err = newEntry("Manual", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entry.(*bootloader.ManualResetEntry); !ok {
		t.Errorf("newEntry(manual) = %#v", entry)
	}

	if _, err := newEntry("jtag", ""); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
