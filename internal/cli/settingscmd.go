package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage global settings",
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default settings",
	Long:  `Write a default settings file if none exists yet.`,
	RunE:  runSettingsInit,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runSettingsShow,
}

func init() {
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

func runSettingsInit(cmd *cobra.Command, args []string) error {
	path, err := config.GlobalSettingsFile()
	if err != nil {
		return err
	}
	if config.FileExists(path) {
		fmt.Printf("Settings already exist at %s.\n", path)
		return nil
	}

	if err := config.SaveSettings(models.NewSettings()); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render(fmt.Sprintf("Default settings written to %s", path)))
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	agentBin := settings.Agent.Bin
	if agentBin == "" {
		agentBin = "claude (from PATH)"
	}

	fmt.Println(styleBrand.Render("Settings"))
	fmt.Printf("  %s %s\n", styleLabel.Render("Agent binary:"), agentBin)
	fmt.Printf("  %s %s\n", styleLabel.Render("Agent timeout:"), time.Duration(settings.Agent.TimeoutSecs)*time.Second)
	fmt.Printf("  %s %d\n", styleLabel.Render("Max build attempts:"), settings.MaxBuildAttempts)
	fmt.Printf("  %s $%.2f\n", styleLabel.Render("Daily cap:"), settings.DailyCapUSD)
	fmt.Printf("  %s %d bytes\n", styleLabel.Render("Fix digest limit:"), settings.DigestMaxBytes)

	fmt.Println(styleLabel.Render("  Builders:"))
	for platform, b := range settings.Builders {
		fmt.Printf("    %s %s (timeout %s)\n",
			styleValue.Render(platform+":"),
			strings.Join(b.Command, " "),
			time.Duration(b.TimeoutSecs)*time.Second)
	}

	telemetry := "disabled"
	if settings.Telemetry.Enabled {
		telemetry = "enabled"
	}
	fmt.Printf("  %s %s\n", styleLabel.Render("Telemetry:"), telemetry)
	return nil
}
