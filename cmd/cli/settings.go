package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ssupscaler/internal/config"
	"ssupscaler/internal/ui"
)

func (application *Application) newSettingsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "settings",
		Short: "Show, edit or reset the saved settings",
	}
	command.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(command *cobra.Command, arguments []string) error {
				path, err := application.settingsPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(command.OutOrStdout(), ui.RenderSettings(application.configuration.Settings))
				fmt.Fprintln(command.OutOrStdout(), "Settings file: "+path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit the settings interactively",
			Args:  cobra.NoArgs,
			RunE: func(command *cobra.Command, arguments []string) error {
				edited, err := ui.EditSettings(application.prompter, application.configuration.Settings)
				if err != nil {
					return err
				}
				path, err := application.saveSettings(edited)
				if err != nil {
					return err
				}
				fmt.Fprintln(command.OutOrStdout(), ui.RenderSettings(edited))
				fmt.Fprintln(command.OutOrStdout(), ui.SuccessStyle.Render("✅ Settings saved to "+path))
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default settings",
			Args:  cobra.NoArgs,
			RunE: func(command *cobra.Command, arguments []string) error {
				path, err := application.saveSettings(config.Defaults())
				if err != nil {
					return err
				}
				fmt.Fprintln(command.OutOrStdout(), ui.SuccessStyle.Render("✅ Settings reset to defaults in "+path))
				return nil
			},
		},
	)
	return command
}

func (application *Application) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			fmt.Fprintf(command.OutOrStdout(), "%s version: %s\n", applicationNameConstant, Version)
			return nil
		},
	}
}
