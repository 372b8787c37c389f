package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moffa90/go-ymboot/bootloader"
	"github.com/moffa90/go-ymboot/firmware"
)

var upgradeNoApply bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [firmware]",
	Short: "Send a firmware update and apply it",
	Long: `Sends a firmware image (optionally .xz compressed) to the bootloader and
installs it. With --no-apply the image is only staged; run 'ymboot flash' to
install it later. Families that always apply ignore --no-apply.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := firmware.Load(args[0])
		if err != nil {
			return err
		}

		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			apply := !upgradeNoApply
			if !apply && s.Profile().AlwaysApply {
				log.Warnw("Family always applies updates, ignoring --no-apply", "family", s.Profile().Family)
			}

			log.Infow("Sending update", "file", img.Name, "size", img.Size(), "target", s.Profile().Target)
			progress, done := newProgress("Upgrading")
			ok, err := s.SendUpgrade(img, apply, progress)
			done()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("update of %s failed", img.Name)
			}

			if s.State() == bootloader.StateBootloader {
				log.Infow("Update staged, run 'ymboot flash' to apply it", "file", img.Name)
			} else {
				log.Infow("Update applied", "file", img.Name)
			}
			return nil
		})
	},
}

var flashCmd = &cobra.Command{
	Use:   "flash",
	Short: "Apply a previously staged update",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *bootloader.Session, log *zap.SugaredLogger) error {
			ok, err := s.Flash()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("device could not apply the staged update")
			}
			log.Infow("Update applied")
			return nil
		})
	},
}
