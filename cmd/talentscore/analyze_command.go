package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/talentscore/internal/adapters/media"
	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/orchestrator"
)

type analyzeOptions struct {
	videoID   string
	video     string
	duration  float64
	category  string
	thumbnail string
	audio     string
	pose      string
	face      string
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score one video",
		Long: "Score one video from its thumbnail (vision model) or metadata (heuristic).\n" +
			"Optional audio and landmark files are analysed and fused into the result.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}
			res, err := svc.AnalyzeVideo(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOut {
				return writeJSON(cmd, struct {
					assessment.Assessment
					Strategy assessment.Strategy   `json:"strategy"`
					Signals  *orchestrator.Signals `json:"signals,omitempty"`
				}{res.Assessment, res.Assessment.Strategy, signalsOrNil(res.Signals)})
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), renderScores("Video "+req.VideoID, assessmentRows(res.Assessment), colorize))
			for _, block := range signalTables(res.Signals, colorize) {
				fmt.Fprintln(cmd.OutOrStdout(), block)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.videoID, "id", "", "Video identifier (random when empty)")
	cmd.Flags().StringVar(&opts.video, "video", "", "Video locator (required)")
	cmd.Flags().Float64Var(&opts.duration, "duration", 0, "Duration in seconds")
	cmd.Flags().StringVar(&opts.category, "category", "", "Category hint, comma separated")
	cmd.Flags().StringVar(&opts.thumbnail, "thumbnail", "", "Thumbnail URL for the vision model")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "Media file or URL to decode for audio analysis")
	cmd.Flags().StringVar(&opts.pose, "pose", "", "Pose landmark JSON file")
	cmd.Flags().StringVar(&opts.face, "face", "", "Face landmark JSON file")
	_ = cmd.MarkFlagRequired("video")

	return cmd
}

func (o analyzeOptions) request(cmd *cobra.Command) (service.VideoRequest, error) {
	id := strings.TrimSpace(o.videoID)
	if id == "" {
		id = uuid.NewString()
	}
	req := service.VideoRequest{
		Request: assessment.Request{
			VideoID:          id,
			VideoLocator:     o.video,
			CategoryHint:     o.category,
			ThumbnailLocator: o.thumbnail,
		},
		AudioLocator: o.audio,
	}
	if cmd.Flags().Changed("duration") {
		req.Duration = assessment.Some(o.duration)
	}
	if o.pose != "" {
		frames, err := media.ReadLandmarksFile(o.pose)
		if err != nil {
			return req, fmt.Errorf("pose: %w", err)
		}
		req.Bundle.Pose = frames
	}
	if o.face != "" {
		frames, err := media.ReadLandmarksFile(o.face)
		if err != nil {
			return req, fmt.Errorf("face: %w", err)
		}
		req.Bundle.Face = frames
	}
	return req, nil
}

func assessmentRows(a assessment.Assessment) []scoreRow {
	rows := []scoreRow{
		labeled("Performance", number(a.PerformanceScore)),
		labeled("Vocal", optionalNumber(a.VocalScore)),
		labeled("Expression", number(a.ExpressionScore)),
		labeled("Movement", optionalNumber(a.MovementScore)),
		labeled("Timing", number(a.TimingScore)),
		labeled("Quality", number(a.QualityScore)),
		labeled("Categories", plain(strings.Join(a.CategoryTags, ", "))),
		labeled("Strategy", plain(string(a.Strategy))),
	}
	if a.Feedback != "" {
		rows = append(rows, labeled("Feedback", plain(a.Feedback)))
	}
	return rows
}

func signalsOrNil(s orchestrator.Signals) *orchestrator.Signals {
	if s == (orchestrator.Signals{}) {
		return nil
	}
	return &s
}

func signalTables(s orchestrator.Signals, colorize bool) []string {
	var out []string
	if s.Audio != nil {
		out = append(out, renderScores("Audio", audioRows(*s.Audio), colorize))
	}
	if s.Movement != nil {
		out = append(out, renderScores("Movement", movementRows(*s.Movement), colorize))
	}
	if s.Expression != nil {
		out = append(out, renderScores("Expression", expressionRows(*s.Expression), colorize))
	}
	return out
}
