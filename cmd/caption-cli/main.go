package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/caption-studio/internal/awsboot"
	"github.com/fpang/caption-studio/internal/caption"
	"github.com/fpang/caption-studio/internal/chat"
	"github.com/fpang/caption-studio/internal/config"
	"github.com/fpang/caption-studio/internal/imageinfo"
	"github.com/fpang/caption-studio/internal/logging"
)

// CLI flags
var (
	lengthFlag   string
	moodFlag     string
	extraFlag    string
	hashtagsFlag bool
	modelFlag    string
	ssmParamFlag string
	timeoutFlag  time.Duration
	envFile      string
)

var rootCmd = &cobra.Command{
	Use:   "caption-cli",
	Short: "Generate first-person social media captions from the terminal",
	Long: `Caption CLI builds the same Gemini prompt the caption server uses.

Examples:
  caption-cli prompt --length short --mood playful
  caption-cli caption ./beach.jpg --length lengthy --extra "mention the sunset"
  caption-cli caption ./me.heic --hashtags=false --model gemini-2.5-pro`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		logging.Init()
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the system instruction for the given options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := caption.Normalize(rawFromFlags())
		fmt.Fprintln(cmd.OutOrStdout(), caption.BuildSystemInstruction(opts))
		return nil
	},
}

var captionCmd = &cobra.Command{
	Use:   "caption <image>",
	Short: "Caption a local image (nothing is uploaded to S3 or saved)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaption,
}

func init() {
	for _, c := range []*cobra.Command{promptCmd, captionCmd} {
		c.Flags().StringVarP(&lengthFlag, "length", "l", string(caption.DefaultLength), "Caption length: short, one-liner, medium, lengthy")
		c.Flags().StringVar(&moodFlag, "mood", "", "Tone of the caption (e.g. playful, nostalgic)")
		c.Flags().StringVarP(&extraFlag, "extra", "e", "", "Extra instructions for the caption")
		c.Flags().BoolVar(&hashtagsFlag, "hashtags", true, "Include hashtags")
	}
	captionCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides GEMINI_MODEL)")
	captionCmd.Flags().StringVar(&ssmParamFlag, "ssm-param", "", "Read the API key from this SSM parameter when GEMINI_API_KEY is unset")
	captionCmd.Flags().DurationVar(&timeoutFlag, "timeout", 60*time.Second, "Request timeout")

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file (ignored when missing)")
	rootCmd.AddCommand(promptCmd, captionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func rawFromFlags() caption.RawOptions {
	return caption.RawOptions{
		Length:            lengthFlag,
		Mood:              moodFlag,
		ExtraInstructions: extraFlag,
		IncludeHashtags:   hashtagsFlag,
	}
}

// readImage loads and inspects an image from disk. The extension stands in
// for the Content-Type an upload would carry, so HEIC files are accepted.
func readImage(path string) ([]byte, imageinfo.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imageinfo.Info{}, fmt.Errorf("read image: %w", err)
	}
	info, err := imageinfo.Inspect(data, imageinfo.TypeForPath(path))
	if err != nil {
		return nil, imageinfo.Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, info, nil
}

func runCaption(cmd *cobra.Command, args []string) error {
	path := filepath.Clean(args[0])
	data, info, err := readImage(path)
	if err != nil {
		return err
	}
	log.Debug().
		Str("path", path).
		Str("mime_type", info.MIMEType).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("camera", info.CameraModel).
		Msg("Image inspected")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	apiKey, err := resolveKey(ctx)
	if err != nil {
		return err
	}
	model := modelFlag
	if model == "" {
		model = chat.GetModelName()
	}
	captioner := awsboot.InitCaptioner(ctx, apiKey, model, false)

	opts := caption.Normalize(rawFromFlags())
	res, err := captioner.Caption(ctx, chat.CaptionRequest{
		ImageBase64:       base64.StdEncoding.EncodeToString(data),
		MIMEType:          info.MIMEType,
		SystemInstruction: caption.BuildSystemInstruction(opts),
		UserPrompt:        caption.UserPrompt,
	})
	if err != nil {
		if kind, ok := chat.KindOf(err); ok {
			return fmt.Errorf("caption failed (%s): %w", kind, err)
		}
		return fmt.Errorf("caption failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}

func resolveKey(ctx context.Context) (string, error) {
	key, err := config.ResolveGeminiKey(ctx, nil, "")
	if err == nil {
		return key, nil
	}
	if ssmParamFlag == "" {
		return "", fmt.Errorf("%w: set GEMINI_API_KEY or pass --ssm-param", err)
	}
	clients := awsboot.InitAWS(ctx)
	return config.ResolveGeminiKey(ctx, clients.SSM, ssmParamFlag)
}
