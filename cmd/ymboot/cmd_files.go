package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moffa90/go-ymboot/bootloader"
	"github.com/moffa90/go-ymboot/firmware"
)

var sendDest string

var sendCmd = &cobra.Command{
	Use:   "send [file]",
	Short: "Store a file on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := firmware.Load(args[0])
		if err != nil {
			return err
		}

		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			progress, done := newProgress("Sending")
			ok, err := s.SendFile(img, sendDest, progress)
			done()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("transfer of %s failed", img.Name)
			}
			log.Infow("File stored", "file", img.Name, "dest", sendDest, "size", img.Size())
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files stored on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			files, err := s.ListFiles()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				log.Infow("No files stored")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%d\n", f.Name, f.Size)
			}
			return w.Flush()
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a file stored on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			ok, err := s.DeleteFile(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("device refused to delete %s", args[0])
			}
			log.Infow("File deleted", "file", args[0])
			return nil
		})
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase all files stored on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			if err := s.Erase(); err != nil {
				return err
			}
			log.Infow("Storage erased")
			return nil
		})
	},
}
