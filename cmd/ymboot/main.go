package main

import (
	"flag"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/moffa90/go-ymboot/bootloader"
)

var rootCmd = &cobra.Command{
	Use:   "ymboot",
	Short: "ymboot updates devices with a YMODEM serial bootloader",
	Long: `Enters the bootloader of a device over a serial port, sends files and
firmware updates to it with YMODEM, and manages the files it stores.

Defaults for the global flags can be set in $XDG_CONFIG_HOME/ymboot/config.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd.Flags())
	},
}

var (
	flagPort         string
	flagBaud         int
	flagParity       string
	flagFamily       string
	flagEntry        string
	flagResetCommand string
	flagEntryTimeout time.Duration
	flagEcho         bool
	flagVerbose      bool
)

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "Serial port the device is attached to")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", 115200, "Serial baud rate")
	rootCmd.PersistentFlags().StringVar(&flagParity, "parity", "none", "Serial parity (none, even, odd)")
	rootCmd.PersistentFlags().StringVarP(&flagFamily, "family", "f", string(bootloader.FamilyNova), "Device family (see 'ymboot families')")
	rootCmd.PersistentFlags().StringVarP(&flagEntry, "entry", "e", entryCommand, "Bootloader entry strategy (command, manual)")
	rootCmd.PersistentFlags().StringVar(&flagResetCommand, "reset-command", bootloader.DefaultResetCommand, "Application command that reboots the device, for command entry")
	rootCmd.PersistentFlags().DurationVar(&flagEntryTimeout, "entry-timeout", bootloader.DefaultEntryTimeout, "How long to wait for the bootloader prompt")
	rootCmd.PersistentFlags().BoolVar(&flagEcho, "echo", false, "The device echoes every command line back")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose debug logging")

	upgradeCmd.Flags().BoolVarP(&upgradeNoApply, "no-apply", "n", false, "Stage the update without applying it (apply later with 'flash')")
	sendCmd.Flags().StringVarP(&sendDest, "dest", "d", "", "Name to store the file under (default: the file's own name)")

	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(helpDeviceCmd)
	rootCmd.AddCommand(familiesCmd)
	rootCmd.AddCommand(portsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}
