package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/platform"
)

var (
	rootCmd = &cobra.Command{
		Use:   "dealer-poster",
		Short: "Branded vehicle posters and reels for dealer listings",
		Long: `dealer-poster renders branded listing media for used-car dealers.
It turns vehicle photos into 1080x1350 posters and a walkaround clip into a
1080x1920 reel of at most 30 seconds, with the dealer logo and the vehicle
details drawn on top.

Examples:
  # Posters from three photos
  dealer-poster poster -i front.jpg -i side.jpg -i rear.jpg --logo logo.png -o ./out --brand Honda --model City --price 500000

  # A reel with audio, capped at ten seconds
  dealer-poster reel -i walkaround.mp4 --logo logo.png -o ./out --trim 10s --audio --save`,
	}

	posterCmd = &cobra.Command{
		Use:   "poster",
		Short: "Render a poster for each input photo",
		Long: fmt.Sprintf(`Render one branded poster per input photo.

Supported platforms:
%s
Example:
  dealer-poster poster -i front.jpg --logo logo.png -o ./out --branding branding.yaml`,
			formatSupportedPlatforms()),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &config.PosterOptions{}

			inputs, _ := cmd.Flags().GetStringArray("input")
			opts.InputPaths = append(inputs, args...)
			opts.LogoPath, _ = cmd.Flags().GetString("logo")
			opts.OutputDir, _ = cmd.Flags().GetString("output")
			opts.BrandingPath, _ = cmd.Flags().GetString("branding")
			opts.Save, _ = cmd.Flags().GetBool("save")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			if len(opts.InputPaths) == 0 {
				return fmt.Errorf("at least one input photo is required")
			}
			if opts.OutputDir == "" && !opts.Save {
				return fmt.Errorf("output directory or --save is required")
			}

			return runPoster(cmd.Context(), opts, vehicleFlags(cmd))
		},
	}

	reelCmd = &cobra.Command{
		Use:   "reel",
		Short: "Record a branded reel from a video clip",
		Long: `Record a 1080x1920 reel from a video clip. The reel runs from the start of
the clip for --trim (when set), for at most 30 seconds, and never past the
end of the clip. Press Ctrl-C to cancel; a cancelled recording produces no
file.

Example:
  dealer-poster reel -i walkaround.mp4 --logo logo.png -o ./out --fps 30 --audio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := reelOptions(cmd)
			if opts.OutputDir == "" && !opts.Save {
				return fmt.Errorf("output directory or --save is required")
			}

			return runReel(cmd.Context(), opts, vehicleFlags(cmd))
		},
	}

	previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Write the live preview and batch thumbnails",
		Long: `Write the scaled live preview for the selected photo (or for a video's
preview frame when --video is given) together with the batch thumbnails.

Example:
  dealer-poster preview -i front.jpg -i side.jpg --select 1 --logo logo.png -o ./preview`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &previewOptions{}

			inputs, _ := cmd.Flags().GetStringArray("input")
			opts.InputPaths = append(inputs, args...)
			opts.VideoPath, _ = cmd.Flags().GetString("video")
			opts.LogoPath, _ = cmd.Flags().GetString("logo")
			opts.OutputDir, _ = cmd.Flags().GetString("output")
			opts.BrandingPath, _ = cmd.Flags().GetString("branding")
			opts.Selected, _ = cmd.Flags().GetInt("select")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			if len(opts.InputPaths) == 0 && opts.VideoPath == "" {
				return fmt.Errorf("input photos or --video is required")
			}

			return runPreview(cmd.Context(), opts, vehicleFlags(cmd))
		},
	}

	libraryCmd = &cobra.Command{
		Use:   "library",
		Short: "List the signed-in dealer's saved media",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runLibrary(cmd.Context(), verbose)
		},
	}
)

func reelOptions(cmd *cobra.Command) *config.ReelOptions {
	opts := &config.ReelOptions{}

	opts.InputPath, _ = cmd.Flags().GetString("input")
	opts.LogoPath, _ = cmd.Flags().GetString("logo")
	opts.OutputDir, _ = cmd.Flags().GetString("output")
	opts.BrandingPath, _ = cmd.Flags().GetString("branding")
	opts.TrimEnd, _ = cmd.Flags().GetDuration("trim")
	opts.FrameRate, _ = cmd.Flags().GetInt("fps")
	opts.IncludeAudio, _ = cmd.Flags().GetBool("audio")
	opts.Save, _ = cmd.Flags().GetBool("save")
	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	return opts
}

func formatSupportedPlatforms() string {
	var sb strings.Builder
	for _, name := range platform.GetSupportedPlatforms() {
		p := platform.MustGet(name)
		w, h := p.GetDimensions()
		sb.WriteString(fmt.Sprintf("- %s (%dx%d)\n", name, w, h))
	}
	return sb.String()
}

func addBrandingFlags(cmd *cobra.Command) {
	cmd.Flags().String("logo", "", "Dealer logo image")
	cmd.Flags().String("branding", "", "YAML file with branding and vehicle sections")
	cmd.Flags().String("brand", "", "Vehicle brand")
	cmd.Flags().String("model", "", "Vehicle model")
	cmd.Flags().String("color", "", "Vehicle color")
	cmd.Flags().String("fuel", "", "Fuel type")
	cmd.Flags().String("transmission", "", "Transmission")
	cmd.Flags().String("place", "", "Location")
	cmd.Flags().String("year", "", "Model year")
	cmd.Flags().String("mileage", "", "Mileage in km")
	cmd.Flags().String("price", "", "Price")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
}

// vehicleFlags returns the attributes given on the command line. Empty
// fields fall back to the branding file.
func vehicleFlags(cmd *cobra.Command) config.VehicleAttributes {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return config.VehicleAttributes{
		Brand:        get("brand"),
		Model:        get("model"),
		Color:        get("color"),
		FuelType:     get("fuel"),
		Transmission: get("transmission"),
		Place:        get("place"),
		Year:         get("year"),
		Mileage:      get("mileage"),
		Price:        get("price"),
	}
}

func init() {
	// Poster command flags
	posterCmd.Flags().StringArrayP("input", "i", nil, "Input photo (repeatable)")
	posterCmd.Flags().StringP("output", "o", "", "Output directory")
	posterCmd.Flags().Bool("save", false, "Upload the posters to the dealer library")
	addBrandingFlags(posterCmd)

	// Reel command flags
	reelCmd.Flags().StringP("input", "i", "", "Input video file")
	reelCmd.Flags().StringP("output", "o", "", "Output directory")
	reelCmd.Flags().Duration("trim", 0, "Cap the reel at this length (e.g. '10s'); 0 keeps up to 30s")
	reelCmd.Flags().Int("fps", config.DefaultFrameRate,
		fmt.Sprintf("Frame rate (%s)", joinInts(config.SupportedFrameRates)))
	reelCmd.Flags().Bool("audio", false, "Include the clip's audio track")
	reelCmd.Flags().Bool("save", false, "Upload the reel to the dealer library")
	addBrandingFlags(reelCmd)

	reelCmd.MarkFlagRequired("input")

	// Preview command flags
	previewCmd.Flags().StringArrayP("input", "i", nil, "Input photo (repeatable)")
	previewCmd.Flags().String("video", "", "Preview a video's frame instead of photos")
	previewCmd.Flags().StringP("output", "o", ".", "Output directory")
	previewCmd.Flags().Int("select", 0, "Index of the photo shown in the preview")
	addBrandingFlags(previewCmd)

	libraryCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(posterCmd)
	rootCmd.AddCommand(reelCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(libraryCmd)
}

func joinInts(vs []int) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = fmt.Sprint(v)
	}
	return strings.Join(out, ", ")
}

func formatDuration(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
