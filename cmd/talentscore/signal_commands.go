package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/talentscore/internal/adapters/media"
	"github.com/okian/talentscore/internal/domain/signal"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audio <file>",
		Short: "Analyze the audio track of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}
			cfg := ctx.cfg
			dec := media.NewFFmpegDecoder(cfg.FFmpegBinary, cfg.AudioWindowSeconds)
			w, err := dec.Decode(cmd.Context(), args[0], cfg.AudioSampleRate)
			if err != nil {
				return err
			}
			report := svc.AnalyzeAudio(cmd.Context(), w)
			if ctx.jsonOut {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScores("Audio", audioRows(report), shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
}

func newMovementCommand(ctx *commandContext) *cobra.Command {
	var capFrames int
	cmd := &cobra.Command{
		Use:   "movement <frames.json>",
		Short: "Analyze pose landmark frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}
			frames, err := readFrames(args[0], capFrames)
			if err != nil {
				return err
			}
			report := svc.AnalyzeMovement(cmd.Context(), frames, capFrames)
			if ctx.jsonOut {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScores("Movement", movementRows(report), shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().IntVar(&capFrames, "cap", 0, "Maximum frames to analyse (0 uses the configured cap)")
	return cmd
}

func newExpressionCommand(ctx *commandContext) *cobra.Command {
	var capFrames int
	cmd := &cobra.Command{
		Use:   "expression <frames.json>",
		Short: "Analyze face landmark frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}
			frames, err := readFrames(args[0], capFrames)
			if err != nil {
				return err
			}
			report := svc.AnalyzeExpression(cmd.Context(), frames, capFrames)
			if ctx.jsonOut {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScores("Expression", expressionRows(report), shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().IntVar(&capFrames, "cap", 0, "Maximum frames to analyse (0 uses the configured cap)")
	return cmd
}

func readFrames(path string, capFrames int) ([]signal.LandmarkFrame, error) {
	if capFrames < 0 {
		return nil, errors.New("--cap must not be negative")
	}
	return media.ReadLandmarksFile(path)
}

func audioRows(r signal.AudioReport) []scoreRow {
	return []scoreRow{
		labeled("Pitch accuracy", number(r.PitchAccuracy)),
		labeled("Rhythm", number(r.RhythmScore)),
		labeled("Clarity", number(r.Clarity)),
		labeled("Dynamics", number(r.Dynamics)),
		labeled("Expression", number(r.Expression)),
		labeled("Detected", detected(r.Detected)),
	}
}

func movementRows(r signal.MovementReport) []scoreRow {
	return []scoreRow{
		labeled("Fluidity", number(r.Fluidity)),
		labeled("Precision", number(r.Precision)),
		labeled("Rhythm sync", number(r.RhythmSync)),
		labeled("Creativity", number(r.Creativity)),
		labeled("Detected", detected(r.Detected)),
	}
}

func expressionRows(r signal.ExpressionReport) []scoreRow {
	return []scoreRow{
		labeled("Emotion range", number(r.EmotionRange)),
		labeled("Authenticity", number(r.Authenticity)),
		labeled("Camera presence", number(r.CameraPresence)),
		labeled("Detected", detected(r.Detected)),
	}
}
