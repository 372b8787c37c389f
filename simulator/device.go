package simulator

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/transport"
	"github.com/moffa90/go-ymboot/transport/transporttest"
)

// EntryMode selects how the simulated device is brought into its bootloader.
type EntryMode int

const (
	// EntryCommand devices reboot on ResetCommand and enter the bootloader
	// through the 'm' / "ts" handshake.
	EntryCommand EntryMode = iota

	// EntryManual devices ignore the host until PowerOn is called.
	EntryManual
)

// DefaultResetCommand is the application command that reboots the device.
const DefaultResetCommand = "AT+RESET"

// Banner is printed when a manually reset device powers on.
const Banner = "YMBOOT v2.1"

// State is where the simulated device currently is.
type State int

const (
	StateApplication State = iota
	StateHandshake
	StateBootloader
	StateReceiving
)

func (s State) String() string {
	switch s {
	case StateApplication:
		return "application"
	case StateHandshake:
		return "handshake"
	case StateBootloader:
		return "bootloader"
	case StateReceiving:
		return "receiving"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config describes the simulated device and the faults it injects.
type Config struct {
	// Commands accepted at the prompt; nil means protocol.AllCommands
	Commands []string

	// SimpleTransfer devices require the "ymodem" argument on receive
	// commands, other devices reject it
	SimpleTransfer bool

	Entry EntryMode

	// ResetCommand reboots a command-entry device; empty means
	// DefaultResetCommand
	ResetCommand string

	// HandshakeDelay is how many 'm' probes are ignored after a reset
	HandshakeDelay int

	// Files preloaded in device storage
	Files map[string][]byte

	// RejectSetups makes the receiver NAK this many setup frames
	RejectSetups int

	// Silent makes the receiver never request a transfer
	Silent bool

	// CancelBlock makes the receiver answer CAN to this data block (1-based)
	CancelBlock int

	// FailApply makes applying an upgrade report failure
	FailApply bool

	// ErrorAfterTransfer makes recv and transfer report ERROR once the
	// file has been received
	ErrorAfterTransfer bool

	// ListError makes list report ERROR
	ListError bool

	// Trace receives a line per device event (optional)
	Trace func(format string, args ...interface{})
}

// Device is a simulated bootloader attached to a transporttest.Channel.
// It reacts to host writes synchronously and is not safe for concurrent use.
type Device struct {
	ch  *transporttest.Channel
	cfg Config

	state    State
	line     []byte
	probes   int
	files    map[string][]byte
	stageBuf []byte
	applied  []byte
	commands []string
	rx       *receiver
}

// New attaches a simulated device to ch, replacing its OnWrite and OnIdle
// hooks. The device starts running its application.
//
// Example:
//
//	ch := transporttest.New()
//	dev := simulator.New(ch, simulator.Config{})
//	session, err := bootloader.Open(ch, &bootloader.CommandEntry{}, bootloader.FamilyNova)
func New(ch *transporttest.Channel, cfg Config) *Device {
	if cfg.Commands == nil {
		cfg.Commands = protocol.AllCommands
	}
	if cfg.ResetCommand == "" {
		cfg.ResetCommand = DefaultResetCommand
	}

	d := &Device{
		ch:    ch,
		cfg:   cfg,
		state: StateApplication,
		files: make(map[string][]byte),
	}
	for name, data := range cfg.Files {
		d.files[name] = append([]byte(nil), data...)
	}

	ch.OnWrite = d.handleWrite
	ch.OnIdle = d.handleIdle
	return d
}

// PowerOn simulates the user resetting a manual-entry device: it boots into
// the bootloader and prints its banner and prompt.
func (d *Device) PowerOn() {
	d.trace("powered on")
	d.enterBootloader()
	d.ch.FeedString(Banner + transport.LineTerminator + protocol.Prompt)
}

// State returns the current device state.
func (d *Device) State() State {
	return d.state
}

// Commands returns every command line received at the prompt.
func (d *Device) Commands() []string {
	return d.commands
}

// Files returns the stored files sorted by name.
func (d *Device) Files() []protocol.FileEntry {
	entries := make([]protocol.FileEntry, 0, len(d.files))
	for name, data := range d.files {
		entries = append(entries, protocol.FileEntry{Name: name, Size: int64(len(data))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// File returns the content of a stored file.
func (d *Device) File(name string) ([]byte, bool) {
	data, ok := d.files[name]
	return data, ok
}

// Staged returns the image received by transfer and not yet flashed.
func (d *Device) Staged() []byte {
	return d.stageBuf
}

// Applied returns the last image applied by upgrade or flash.
func (d *Device) Applied() []byte {
	return d.applied
}

func (d *Device) handleWrite(p []byte) {
	switch d.state {
	case StateApplication:
		d.handleApplication(p)
	case StateHandshake:
		d.handleHandshake(p)
	case StateBootloader:
		d.handleConsole(p)
	case StateReceiving:
		if d.rx.handle(p) {
			return
		}
		// anything that is not a frame is console input
		d.abort()
		d.handleConsole(p)
	}
}

func (d *Device) handleIdle() {
	if d.state == StateReceiving {
		d.rx.idle()
	}
}

func (d *Device) handleApplication(p []byte) {
	if d.cfg.Entry != EntryCommand {
		return
	}
	for _, line := range d.readLines(p) {
		if line == d.cfg.ResetCommand {
			d.trace("rebooting")
			d.state = StateHandshake
			d.probes = 0
		}
	}
}

func (d *Device) handleHandshake(p []byte) {
	switch string(p) {
	case "m":
		d.probes++
		if d.probes <= d.cfg.HandshakeDelay {
			return
		}
		d.ch.FeedString("m")
	case "ts" + transport.LineTerminator:
		d.trace("entered bootloader")
		d.enterBootloader()
		d.ch.FeedString("ts" + transport.LineTerminator + transport.LineTerminator + protocol.Prompt)
	}
}

// abort drops an unfinished transfer and returns to the prompt.
func (d *Device) abort() {
	d.trace("transfer aborted")
	d.rx = nil
	d.enterBootloader()
}

func (d *Device) enterBootloader() {
	d.state = StateBootloader
	d.line = nil
}

func (d *Device) handleConsole(p []byte) {
	for _, line := range d.readLines(p) {
		if d.state != StateBootloader {
			return
		}
		d.execute(line)
	}
}

// readLines accumulates input and returns the completed lines.
func (d *Device) readLines(p []byte) []string {
	d.line = append(d.line, p...)
	var lines []string
	for {
		i := bytes.Index(d.line, []byte(transport.LineTerminator))
		if i < 0 {
			return lines
		}
		lines = append(lines, string(d.line[:i]))
		d.line = d.line[i+len(transport.LineTerminator):]
	}
}

func (d *Device) supports(name string) bool {
	for _, c := range d.cfg.Commands {
		if c == name {
			return true
		}
	}
	return false
}

func (d *Device) execute(line string) {
	name, args := protocol.SplitCommand(line)
	if name == "" {
		d.prompt("")
		return
	}

	d.commands = append(d.commands, line)
	d.trace("command %q", line)

	if !d.supports(name) {
		d.prompt("ERROR: unknown command " + name)
		return
	}

	switch name {
	case protocol.CmdBoot, protocol.CmdReset:
		d.state = StateApplication
		d.line = nil
	case protocol.CmdList:
		d.list()
	case protocol.CmdDelete:
		d.delete(args)
	case protocol.CmdErase:
		d.files = make(map[string][]byte)
		d.prompt("Erasing storage... done")
	case protocol.CmdFlash:
		d.flash()
	case protocol.CmdHelp:
		d.prompt("Commands: " + strings.Join(d.cfg.Commands, ", "))
	case protocol.CmdRecv, protocol.CmdUpgrade, protocol.CmdTransfer:
		d.receive(name, args)
	default:
		d.prompt("ERROR: " + name + " not available")
	}
}

func (d *Device) list() {
	if d.cfg.ListError {
		d.prompt("ERROR: storage not mounted")
		return
	}
	d.ch.FeedString(transport.LineTerminator + protocol.FormatListResponse(d.Files()) + protocol.Prompt)
}

func (d *Device) delete(args []string) {
	if len(args) != 1 {
		d.prompt("ERROR: usage: delete <name>")
		return
	}
	if _, ok := d.files[args[0]]; !ok {
		d.prompt("ERROR: file not found")
		return
	}
	delete(d.files, args[0])
	d.prompt("")
}

func (d *Device) flash() {
	if d.stageBuf == nil || d.cfg.FailApply {
		d.ch.FeedString(transport.LineTerminator + "Update Failed" + transport.LineTerminator + protocol.Prompt)
		return
	}
	d.apply(d.stageBuf)
	d.stageBuf = nil
	d.ch.FeedString(transport.LineTerminator + "Update successful" + transport.LineTerminator)
}

func (d *Device) receive(name string, args []string) {
	ymodem, rest := protocol.HasYmodemArg(args)
	if ymodem != d.cfg.SimpleTransfer {
		d.prompt("ERROR: unsupported transfer protocol")
		return
	}

	dst := ""
	if name == protocol.CmdRecv && len(rest) > 0 {
		dst = rest[0]
	}

	d.state = StateReceiving
	d.rx = newReceiver(d, name, dst)
	d.rx.idle()
}

// received is called by the receiver once a file has been transferred.
func (d *Device) received(command, dst string, info protocol.SetupInfo, data []byte) {
	d.rx = nil
	d.state = StateBootloader
	d.trace("received %s (%d bytes)", info.Name, len(data))

	switch command {
	case protocol.CmdRecv:
		if d.cfg.ErrorAfterTransfer {
			d.prompt("ERROR: write failed")
			return
		}
		name := info.Name
		if dst != "" {
			name = dst
		}
		d.files[name] = data
		d.prompt("OK")
	case protocol.CmdTransfer:
		if d.cfg.ErrorAfterTransfer {
			d.prompt("ERROR: image rejected")
			return
		}
		d.stageBuf = data
		d.prompt("OK")
	case protocol.CmdUpgrade:
		if d.cfg.FailApply {
			d.ch.FeedString(transport.LineTerminator + "Upgrade Failed" + transport.LineTerminator + protocol.Prompt)
			return
		}
		d.apply(data)
		d.ch.FeedString(transport.LineTerminator + "Upgrade successful" + transport.LineTerminator)
	}
}

func (d *Device) apply(image []byte) {
	d.applied = image
	d.state = StateApplication
	d.line = nil
	d.trace("applied %d bytes", len(image))
}

// prompt prints msg on its own line followed by the prompt.
func (d *Device) prompt(msg string) {
	out := transport.LineTerminator
	if msg != "" {
		out += msg + transport.LineTerminator
	}
	d.ch.FeedString(out + protocol.Prompt)
}

func (d *Device) trace(format string, args ...interface{}) {
	if d.cfg.Trace != nil {
		d.cfg.Trace(format, args...)
	}
}
