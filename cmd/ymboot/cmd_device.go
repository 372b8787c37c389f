package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moffa90/go-ymboot/bootloader"
	"github.com/moffa90/go-ymboot/transport"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Enter the bootloader and reset the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			if err := s.Reset(); err != nil {
				return err
			}
			log.Infow("Device reset")
			return nil
		})
	},
}

var helpDeviceCmd = &cobra.Command{
	Use:   "device-help",
	Short: "Print the bootloader's own command summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			help, err := s.Help()
			if err != nil {
				return err
			}
			fmt.Println(help)
			return nil
		})
	},
}

var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "List supported device families",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "FAMILY\tNAME\tTARGET\tOFFSET\tAPPLY\tCOMMANDS")
		for _, family := range bootloader.Families() {
			p, err := bootloader.LookupProfile(family)
			if err != nil {
				return err
			}
			apply := "on request"
			if p.AlwaysApply {
				apply = "always"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t0x%08x\t%s\t%s\n",
				p.Family, p.Name, p.Target, p.FlashOffset, apply, strings.Join(p.Commands, ","))
		}
		return w.Flush()
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and whether they can be opened",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListSerialPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			return fmt.Errorf("no serial ports found")
		}

		var errs error
		available := 0
		for _, name := range ports {
			port, err := transport.OpenSerial(transport.SerialConfig{Port: name, BaudRate: flagBaud})
			if err != nil {
				errs = multierror.Append(errs, err)
				fmt.Printf("%s\tbusy\n", name)
				continue
			}
			port.Close()
			available++
			fmt.Printf("%s\tavailable\n", name)
		}
		if available == 0 {
			return errs
		}
		return nil
	},
}
