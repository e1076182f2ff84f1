package main

import (
	"context"
	"errors"
	"strings"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/cli"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/config"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func captureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a transaction from text, audio or a photo",
		Long: `Capture a transaction and review what the classifier proposed before saving it.

When the classifier cannot help, you are asked for the type, amount and
category by hand instead.`,
	}

	cmd.AddCommand(captureTextCmd())
	cmd.AddCommand(captureAudioCmd())
	cmd.AddCommand(capturePhotoCmd())
	cmd.AddCommand(captureBatchCmd())
	return cmd
}

func captureTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text [description...]",
		Short: "Describe a transaction in words",
		Example: `  spice capture text "paid 45.50 for lunch"
  spice capture text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return runCapture(cmd, model.ModeText, nil, func(ctx context.Context, s *capture.Session, p *cli.Prompter) error {
				if strings.TrimSpace(text) == "" {
					line, err := p.ReadLine(ctx, "Describe the transaction")
					if err != nil {
						return err
					}
					text = line
				}
				return s.SubmitText(ctx, text)
			})
		},
	}
}

func captureAudioCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Say what you spent or earned",
		Long: `Record from the microphone until you press Enter, or classify an existing
recording with --file. Recording runs capture.recorder_command (sox by default).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapture(cmd, model.ModeAudio, func(a *app) media.Microphone {
				if file != "" {
					return media.NewReaderMicrophone(afero.NewOsFs(), file, media.AudioMIMEType(file))
				}
				return media.NewCommandMicrophone(a.cfg.Capture.RecorderCommand, a.cfg.Capture.RecorderMIMEType)
			}, func(ctx context.Context, s *capture.Session, p *cli.Prompter) error {
				return recordAudio(ctx, s, p, file == "")
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "classify an existing recording instead of using the microphone")
	return cmd
}

func capturePhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "photo <image>",
		Short:   "Read a receipt or invoice image",
		Example: `  spice capture photo ~/receipts/lunch.jpg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var maxBytes int64
			return runCapture(cmd, model.ModePhoto, func(a *app) media.Microphone {
				maxBytes = a.cfg.Capture.MaxImageBytes
				return nil
			}, func(ctx context.Context, s *capture.Session, _ *cli.Prompter) error {
				return s.SelectImage(ctx, media.PathPicker{Path: config.ExpandPath(args[0]), MaxBytes: maxBytes})
			})
		},
	}
}

// captureFunc feeds one capture into a session that already has its mode.
type captureFunc func(ctx context.Context, s *capture.Session, p *cli.Prompter) error

func runCapture(cmd *cobra.Command, mode model.InputMode, mic func(*app) media.Microphone, fn captureFunc) error {
	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context())
	defer interrupts.Stop()

	a, err := newApp(ctx, appOptions{classify: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			common.LogError(err, "failed to close", common.Fields{"mode": mode})
		}
	}()

	var device media.Microphone
	if mic != nil {
		device = mic(a)
	}
	session := a.newSession(device)
	defer func() {
		_ = session.Close()
	}()

	prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if _, err := captureOnce(ctx, session, prompter, mode, fn); err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		if errors.Is(err, cli.ErrDiscarded) {
			prompter.Println(cli.FormatInfo("Discarded."))
			return nil
		}
		return err
	}
	interrupts.RecordSaved()
	return nil
}

// captureOnce runs a single capture, then the review. Capture failures the
// session absorbed into its manual fallback are not returned.
func captureOnce(ctx context.Context, s *capture.Session, p *cli.Prompter, mode model.InputMode, fn captureFunc) (model.StoredTransaction, error) {
	if err := s.SelectMode(mode); err != nil {
		return model.StoredTransaction{}, err
	}

	if err := fn(ctx, s, p); err != nil && !absorbed(err) {
		return model.StoredTransaction{}, err
	}
	return p.Review(ctx, s)
}

// absorbed reports whether err already turned into the session's manual
// fallback rather than aborting the capture.
func absorbed(err error) bool {
	if errors.Is(err, common.ErrNoFileChosen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, cli.ErrInputClosed) ||
		errors.Is(err, cli.ErrInputCancelled) {
		return false
	}
	switch common.Layer(err) {
	case common.LayerCapture, common.LayerClassification, common.LayerValidation:
		return true
	}
	return false
}

func recordAudio(ctx context.Context, s *capture.Session, p *cli.Prompter, live bool) error {
	if err := s.StartRecording(ctx); err != nil {
		return err
	}
	if live {
		p.Println(cli.FormatInfo("🎤 Recording... press Enter to stop."))
		if _, err := p.ReadLine(ctx, ""); err != nil && !errors.Is(err, cli.ErrInputClosed) {
			return err
		}
	}
	p.Println(cli.FormatInfo("Analyzing..."))
	return s.StopRecording(ctx)
}
