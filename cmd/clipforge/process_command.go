package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
	"clipforge/internal/progress"
	"clipforge/internal/settings"
	"clipforge/internal/tier"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		tierFlag    string
		logoPath    string
		logoPos     string
		logoSize    float64
		ctaPath     string
		ctaPos      string
		ctaSize     float64
		ctaStart    float64
		ctaEnd      float64
		ctaChroma   string
		translate    bool
		sourceLang   string
		targetLang   string
		voice        string
		replaceAudio bool
		saveAudio    bool
		keepAudio    bool
		saveTransc  bool
		saveTransl  bool
		saveSubs    bool
		smartName   bool
		noWait      bool
		pollSeconds int
	)

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Submit a video for processing and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			req := pipeline.Request{
				InputPath:    args[0],
				OriginalName: filepath.Base(args[0]),
				Tier:         tier.Name(tierFlag),
				Settings: settings.Processing{
					Audio: settings.AudioSettings{
						TranslateEnabled: translate,
						SourceLanguage:   sourceLang,
						TargetLanguage:   targetLang,
						Voice:            voice,
						ReplaceAudio:     replaceAudio,
						KeepOriginal:     keepAudio,
					},
					Output: settings.OutputSettings{
						SaveTranscript:  saveTransc,
						SaveTranslation: saveTransl,
						SaveAudio:       saveAudio,
						SaveSubtitles:   saveSubs,
						SmartFilename:   smartName,
					},
				},
			}
			if logoPath != "" {
				req.Settings.Logo = &settings.LogoSettings{
					Path:        logoPath,
					Position:    settings.Anchor(logoPos),
					SizePercent: logoSize,
				}
			}
			if ctaPath != "" {
				req.Settings.CTA = &settings.CTASettings{
					Path:        ctaPath,
					Position:    settings.Anchor(ctaPos),
					SizePercent: ctaSize,
					StartTime:   ctaStart,
					EndTime:     ctaEnd,
					ChromaColor: ctaChroma,
				}
			}

			orch, err := pipeline.New(pipeline.Options{
				Config: cfg,
				Store:  store,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			taskID, err := orch.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s submitted\n", taskID)

			if noWait {
				return nil
			}
			return followTask(cmd.Context(), cmd, store, taskID, time.Duration(pollSeconds)*time.Second)
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", string(tier.Free), "Subscription tier (free, pro)")
	cmd.Flags().StringVar(&logoPath, "logo", "", "Logo image to overlay")
	cmd.Flags().StringVar(&logoPos, "logo-position", string(settings.DefaultLogoPosition), "Logo anchor position")
	cmd.Flags().Float64Var(&logoSize, "logo-size", settings.DefaultLogoSizePercent, "Logo height as percent of video height")
	cmd.Flags().StringVar(&ctaPath, "cta", "", "Call-to-action image or video to overlay")
	cmd.Flags().StringVar(&ctaPos, "cta-position", string(settings.DefaultCTAPosition), "CTA anchor position")
	cmd.Flags().Float64Var(&ctaSize, "cta-size", settings.DefaultCTASizePercent, "CTA height as percent of video height")
	cmd.Flags().Float64Var(&ctaStart, "cta-start", 0, "CTA start time in seconds")
	cmd.Flags().Float64Var(&ctaEnd, "cta-end", 0, "CTA end time in seconds (0 runs to the asset's end)")
	cmd.Flags().StringVar(&ctaChroma, "cta-chroma", "", "Chroma key color, e.g. #00FF00")
	cmd.Flags().BoolVar(&translate, "translate", false, "Transcribe, translate, and dub the audio")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "auto", "Source language code")
	cmd.Flags().StringVar(&targetLang, "target-lang", "", "Target language code")
	cmd.Flags().StringVar(&voice, "voice", "", "Synthesis voice (paid provider only)")
	cmd.Flags().BoolVar(&replaceAudio, "replace-audio", true, "Replace the soundtrack with synthesized speech (disable for subtitle-only translation)")
	cmd.Flags().BoolVar(&saveAudio, "save-audio", false, "Save the synthesized speech as a separate file")
	cmd.Flags().BoolVar(&keepAudio, "keep-original-audio", false, "Save the original audio track as MP3")
	cmd.Flags().BoolVar(&saveTransc, "save-transcript", false, "Save the transcript text")
	cmd.Flags().BoolVar(&saveTransl, "save-translation", false, "Save the translated text")
	cmd.Flags().BoolVar(&saveSubs, "save-subtitles", false, "Save translated subtitles as SRT")
	cmd.Flags().BoolVar(&smartName, "smart-name", true, "Derive a descriptive output filename")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return immediately after submission")
	cmd.Flags().IntVar(&pollSeconds, "poll-interval", 2, "Progress poll interval in seconds")

	return cmd
}

// followTask polls the store until the task reaches a terminal state,
// printing each progress change.
func followTask(ctx context.Context, cmd *cobra.Command, store progress.Store, taskID string, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	out := cmd.OutOrStdout()
	lastPercent := -1

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		record, err := store.Get(ctx, taskID)
		if err != nil {
			return err
		}
		if record != nil {
			if record.Percent != lastPercent {
				fmt.Fprintf(out, "%3d%% %s\n", record.Percent, record.Message)
				lastPercent = record.Percent
			}
			if record.Status.Terminal() {
				if record.Status == progress.StatusFailed {
					return fmt.Errorf("task failed: %s", record.Message)
				}
				fmt.Fprintf(out, "output: %s\n", record.OutputPath)
				for _, file := range record.TranscriptFiles {
					fmt.Fprintf(out, "artifact: %s\n", file)
				}
				if record.Degraded {
					fmt.Fprintln(out, "note: some text could not be translated and was kept in the original language")
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
