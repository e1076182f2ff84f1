package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/cli"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func captureBatchCmd() *cobra.Command {
	var review bool
	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Capture many receipts, recordings or notes at once",
		Long: `Classify every file and save each confident analysis without asking.

Images are read as photos, recordings (.wav, .ogg, .mp3, ...) as audio and
.txt files as text. Files the classifier could not handle are listed at the
end; pass --review to fill them in by hand right away.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context())
			defer interrupts.Stop()

			a, err := newApp(ctx, appOptions{classify: true})
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			runner := batchRunner{
				fs:            afero.NewOsFs(),
				newSession:    a.newSession,
				maxImageBytes: a.cfg.Capture.MaxImageBytes,
				onSaved:       interrupts.RecordSaved,
			}
			var prompter *cli.Prompter
			if review {
				prompter = cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			_, err = runner.Run(ctx, cmd.OutOrStdout(), args, prompter)
			if interrupts.WasInterrupted() {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&review, "review", false, "review files that need manual entry after the batch")
	return cmd
}

// batchRunner captures one file per session.
type batchRunner struct {
	fs            afero.Fs
	newSession    func(media.Microphone) *capture.Session
	onSaved       func()
	maxImageBytes int64
}

// Run captures every file. Analyzed items are saved directly; fallbacks are
// reviewed with p when it is not nil and closed otherwise.
func (b batchRunner) Run(ctx context.Context, out io.Writer, files []string, p *cli.Prompter) (*cli.BatchProgress, error) {
	progress := cli.NewBatchProgress(out, len(files))

	type pending struct {
		session *capture.Session
		file    string
	}
	var needsReview []pending

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		session, outcome := b.captureFile(ctx, file)
		progress.Record(file, outcome)

		if outcome == cli.BatchNeedsReview && p != nil {
			needsReview = append(needsReview, pending{session: session, file: file})
			continue
		}
		_ = session.Close()
	}
	progress.Finish()

	for _, item := range needsReview {
		if ctx.Err() != nil {
			_ = item.session.Close()
			continue
		}
		p.Println(cli.FormatTitle("Review " + filepath.Base(item.file)))
		_, err := p.Review(ctx, item.session)
		_ = item.session.Close()
		switch {
		case err == nil:
			b.saved()
		case errors.Is(err, cli.ErrDiscarded):
			p.Println(cli.FormatInfo("Discarded."))
		default:
			return progress, err
		}
	}
	return progress, ctx.Err()
}

func (b batchRunner) captureFile(ctx context.Context, file string) (*capture.Session, cli.BatchOutcome) {
	mode := batchMode(file)

	var mic media.Microphone
	if mode == model.ModeAudio {
		mic = media.NewReaderMicrophone(b.fs, file, media.AudioMIMEType(file))
	}
	session := b.newSession(mic)
	logger := common.LoggerFrom(ctx).With("file", file, "mode", mode)

	if err := session.SelectMode(mode); err != nil {
		logger.Error("batch item failed", "error", err)
		return session, cli.BatchFailed
	}

	var err error
	switch mode {
	case model.ModeText:
		var data []byte
		data, err = afero.ReadFile(b.fs, file)
		if err == nil {
			err = session.SubmitText(ctx, string(data))
		}
	case model.ModeAudio:
		if err = session.StartRecording(ctx); err == nil {
			err = session.StopRecording(ctx)
		}
	case model.ModePhoto:
		err = session.SelectImage(ctx, media.PathPicker{Fs: b.fs, Path: file, MaxBytes: b.maxImageBytes})
	}

	snap := session.Snapshot()
	switch {
	case snap.Analysis != nil:
	case err != nil && !absorbed(err):
		logger.Warn("batch item failed", "error", err)
		return session, cli.BatchFailed
	case common.Layer(snap.LastError) == common.LayerCapture:
		logger.Warn("batch item could not be read", "error", snap.LastError)
		return session, cli.BatchFailed
	default:
		logger.Info("batch item needs manual entry", "error", snap.LastError)
		return session, cli.BatchNeedsReview
	}

	if _, err := session.Confirm(ctx); err != nil {
		logger.Error("batch item not saved", "error", err)
		return session, cli.BatchFailed
	}
	b.saved()
	return session, cli.BatchSaved
}

func (b batchRunner) saved() {
	if b.onSaved != nil {
		b.onSaved()
	}
}

func batchMode(file string) model.InputMode {
	switch {
	case media.IsAudioFile(file):
		return model.ModeAudio
	case strings.EqualFold(filepath.Ext(file), ".txt"):
		return model.ModeText
	default:
		return model.ModePhoto
	}
}
