package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update forgeloop to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking for updates...")

		result, err := updater.CheckForUpdate()
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}

		if !result.Available {
			fmt.Printf("Already up to date (v%s).\n", result.CurrentVersion)
			return nil
		}

		fmt.Printf("Update available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
		fmt.Printf("Release: %s\n", result.ReleaseURL)

		asset := updater.FindAsset(result.Release, updater.BinaryAssetName())
		if asset == nil {
			return fmt.Errorf("binary not found in release (expected %s)", updater.BinaryAssetName())
		}

		fmt.Printf("Downloading %s...\n", asset.Name)
		tmpPath, err := updater.DownloadAsset(asset)
		if err != nil {
			return fmt.Errorf("failed to download update: %w", err)
		}
		defer os.Remove(tmpPath)

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate current binary: %w", err)
		}
		execPath, err = filepath.Abs(execPath)
		if err != nil {
			return err
		}

		if err := updater.ReplaceBinary(execPath, tmpPath); err != nil {
			return fmt.Errorf("failed to install update: %w", err)
		}

		fmt.Println(styleSuccess.Render(fmt.Sprintf("Updated to v%s.", result.LatestVersion)))
		return nil
	},
}
