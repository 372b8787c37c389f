package protocol

import "strings"

// Bootloader command names, in the order the bootloader firmware defines them.
const (
	CmdBoot     = "boot"
	CmdUpgrade  = "upgrade"
	CmdSend     = "send"
	CmdReset    = "reset"
	CmdDelete   = "delete"
	CmdList     = "list"
	CmdErase    = "erase"
	CmdRecv     = "recv"
	CmdFlash    = "flash"
	CmdTransfer = "transfer"
	CmdHelp     = "help"
)

// ymodemArg selects YMODEM framing on bootloaders using simple transfer.
const ymodemArg = "ymodem"

// AllCommands is the full command set, in firmware order.
var AllCommands = []string{
	CmdBoot, CmdUpgrade, CmdSend, CmdReset, CmdDelete, CmdList,
	CmdErase, CmdRecv, CmdFlash, CmdTransfer, CmdHelp,
}

// BuildCommand joins a command and its non-empty arguments into a line.
// The line terminator is added by the channel.
func BuildCommand(name string, args ...string) string {
	parts := make([]string, 0, 1+len(args))
	parts = append(parts, name)
	for _, a := range args {
		if a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}

// BuildUpgradeCmd returns "upgrade" or "upgrade ymodem".
func BuildUpgradeCmd(simpleTransfer bool) string {
	return BuildCommand(CmdUpgrade, transferArg(simpleTransfer))
}

// BuildTransferCmd returns "transfer" or "transfer ymodem".
func BuildTransferCmd(simpleTransfer bool) string {
	return BuildCommand(CmdTransfer, transferArg(simpleTransfer))
}

// BuildRecvCmd returns "recv [ymodem] [dst]".
func BuildRecvCmd(simpleTransfer bool, dst string) string {
	return BuildCommand(CmdRecv, transferArg(simpleTransfer), dst)
}

// BuildDeleteCmd returns "delete <name>".
func BuildDeleteCmd(name string) string {
	return BuildCommand(CmdDelete, name)
}

func transferArg(simpleTransfer bool) string {
	if simpleTransfer {
		return ymodemArg
	}
	return ""
}

// SplitCommand splits a received command line into name and arguments.
func SplitCommand(line string) (name string, args []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// HasYmodemArg reports whether args select YMODEM framing and returns the
// remaining arguments.
func HasYmodemArg(args []string) (bool, []string) {
	if len(args) > 0 && args[0] == ymodemArg {
		return true, args[1:]
	}
	return false, args
}
