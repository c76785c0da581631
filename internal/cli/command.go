// Package cli implements the voiceover command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maauso/voiceover-api/internal/bootstrap"
	"github.com/maauso/voiceover-api/internal/config"
	"github.com/maauso/voiceover-api/internal/session"
	"github.com/maauso/voiceover-api/internal/translate"
)

// RunFlags holds the flags of the run command.
type RunFlags struct {
	Video     string
	Language  string
	Resize    bool
	Height    int
	OutputDir string
	Publish   bool
	Keep      bool
}

// CreateRootCommand creates the root cobra command with all subcommands.
func CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voiceover",
		Short: "Voice-over a video in another language",
		Long: `voiceover extracts the text of a video, translates it and speaks the
translation with a text-to-speech provider.

Configuration comes from the same environment variables (and .env file)
as the HTTP server.

Examples:
  voiceover languages
  voiceover run --video talk.mp4 --language Spanish
  voiceover run --video talk.mp4 --language hi --resize --height 480 --out ./out`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newLanguagesCommand(), newRunCommand())
	return rootCmd
}

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printLanguages(cmd.OutOrStdout())
		},
	}
}

func printLanguages(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCODE")
	for _, l := range translate.Languages() {
		fmt.Fprintf(tw, "%s\t%s\n", l.Name, l.Code)
	}
	return tw.Flush()
}

func newRunCommand() *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline on a local video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := cfg.NewLogger()
			slog.SetDefault(logger)

			deps, err := bootstrap.NewDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Close() }()

			return Run(cmd.Context(), deps.Service, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&flags.Video, "video", "v", "", "MP4 video to voice over (required)")
	cmd.Flags().StringVarP(&flags.Language, "language", "l", "", "Target language name or code (required)")
	cmd.Flags().BoolVar(&flags.Resize, "resize", false, "Resize the video before extraction")
	cmd.Flags().IntVar(&flags.Height, "height", 0, "Resize height (default from RESIZE_HEIGHT)")
	cmd.Flags().StringVarP(&flags.OutputDir, "out", "o", ".", "Directory for output_video.mp4 and output_audio.mp3")
	cmd.Flags().BoolVar(&flags.Publish, "publish", false, "Also publish the outputs to object storage")
	cmd.Flags().BoolVar(&flags.Keep, "keep", false, "Keep the session and its working files")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

// Run uploads flags.Video into a new session, runs every step and copies
// the downloads into flags.OutputDir.
func Run(ctx context.Context, svc *session.Service, flags *RunFlags, out io.Writer) error {
	if _, err := translate.Lookup(flags.Language); err != nil {
		return err
	}

	f, err := os.Open(flags.Video)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	sess, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	if !flags.Keep {
		defer func() { _ = svc.DeleteSession(context.WithoutCancel(ctx), sess.ID) }()
	}

	if _, err := svc.UploadVideo(ctx, sess.ID, filepath.Base(flags.Video), f); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	sess, err = svc.RunPipeline(ctx, sess.ID, session.PipelineInput{
		Language: flags.Language,
		Resize:   flags.Resize,
		Height:   flags.Height,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	fmt.Fprintf(out, "Extracted: %s\n", sess.ExtractedText)
	fmt.Fprintf(out, "Translated (%s): %s\n", sess.LanguageName, sess.TranslatedText)

	if err := os.MkdirAll(flags.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, kind := range []session.Artifact{session.ArtifactVideo, session.ArtifactAudio} {
		path, err := saveArtifact(ctx, svc, sess.ID, kind, flags.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	if flags.Publish {
		published, err := svc.Publish(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(out, "Video URL: %s\nAudio URL: %s\n", published.VideoURL, published.AudioURL)
	}
	return nil
}

func saveArtifact(ctx context.Context, svc *session.Service, id string, kind session.Artifact, dir string) (string, error) {
	d, err := svc.OpenArtifact(ctx, id, kind)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", kind, err)
	}
	defer func() { _ = d.Body.Close() }()

	path := filepath.Join(dir, d.Name)
	dst, err := os.Create(path) // #nosec G304 - name is fixed by the session package
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, d.Body); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
