package main

import (
	"fmt"

	"github.com/Veraticus/spice-capture/internal/cli"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/tui"
	"github.com/Veraticus/spice-capture/internal/tui/themes"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func dialogCmd() *cobra.Command {
	var (
		mode      string
		themeName string
		recordDir string
	)
	cmd := &cobra.Command{
		Use:   "dialog",
		Short: "Open the interactive capture dialog",
		Long: `Open a full-screen dialog with text, audio and photo tabs. The analysis
is shown as a card; when it fails, a manual form takes its place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var initial model.InputMode
			if mode != "" {
				m, err := model.ParseInputMode(mode)
				if err != nil {
					return err
				}
				initial = m
			}
			theme, ok := themes.ByName(themeName)
			if !ok {
				return fmt.Errorf("unknown theme %q", themeName)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{classify: true})
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			mic := media.NewCommandMicrophone(a.cfg.Capture.RecorderCommand, a.cfg.Capture.RecorderMIMEType)
			result, err := tui.Run(ctx, tui.Config{
				Session:       a.newSession(mic),
				Fs:            afero.NewOsFs(),
				Theme:         theme,
				InitialMode:   initial,
				RecordDir:     recordDir,
				MaxImageBytes: a.cfg.Capture.MaxImageBytes,
			})
			if err != nil {
				return err
			}

			if result.Saved {
				tx := result.Transaction
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %s · %s · %s",
					model.FormatSignedAmount(tx.Type, tx.Amount, ""), tx.Category, tx.Date())))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "start in this mode (text, audio, photo)")
	cmd.Flags().StringVar(&themeName, "theme", "default", "color theme (default, mocha)")
	cmd.Flags().StringVar(&recordDir, "record-frames", "", "write every rendered frame to this directory for debugging")
	return cmd
}
