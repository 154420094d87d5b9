package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ZacxDev/dealer-poster/internal/config"
	"github.com/ZacxDev/dealer-poster/internal/domain"
	"github.com/ZacxDev/dealer-poster/internal/ffmpeg"
	"github.com/ZacxDev/dealer-poster/internal/imageio"
	"github.com/ZacxDev/dealer-poster/internal/layout"
	"github.com/ZacxDev/dealer-poster/internal/logging"
	"github.com/ZacxDev/dealer-poster/internal/poster"
	"github.com/ZacxDev/dealer-poster/internal/preview"
	"github.com/ZacxDev/dealer-poster/internal/reel"
	"github.com/ZacxDev/dealer-poster/internal/session"
	"github.com/ZacxDev/dealer-poster/internal/storage"
	"github.com/ZacxDev/dealer-poster/internal/studio"
)

type previewOptions struct {
	InputPaths   []string
	VideoPath    string
	LogoPath     string
	OutputDir    string
	BrandingPath string
	Selected     int
	Verbose      bool
}

// workspace is the state every command starts from.
type workspace struct {
	log   zerolog.Logger
	rc    *layout.RenderContext
	state *preview.State
}

func newWorkspace(verbose bool, brandingPath, logoPath string, flags config.VehicleAttributes) (*workspace, error) {
	log := logging.New(verbose, true)

	rc, err := layout.NewRenderContext()
	if err != nil {
		return nil, errors.Wrap(err, "init renderer")
	}

	file, err := config.LoadBranding(brandingPath)
	if err != nil {
		return nil, err
	}

	state := preview.New(rc, log)
	if err := state.SetConfig(file.Branding); err != nil {
		return nil, err
	}
	if err := state.SetAttributes(mergeVehicle(file.Vehicle, flags)); err != nil {
		return nil, err
	}
	if logoPath != "" {
		logo, err := loadImage(logoPath)
		if err != nil {
			return nil, errors.Wrap(err, "load logo")
		}
		if err := state.SetLogo(logo); err != nil {
			return nil, err
		}
	}
	return &workspace{log: log, rc: rc, state: state}, nil
}

// mergeVehicle overlays the non-empty command line fields on the file's.
func mergeVehicle(file, flags config.VehicleAttributes) config.VehicleAttributes {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return config.VehicleAttributes{
		Brand:        pick(file.Brand, flags.Brand),
		Model:        pick(file.Model, flags.Model),
		Color:        pick(file.Color, flags.Color),
		FuelType:     pick(file.FuelType, flags.FuelType),
		Transmission: pick(file.Transmission, flags.Transmission),
		Place:        pick(file.Place, flags.Place),
		Year:         pick(file.Year, flags.Year),
		Mileage:      pick(file.Mileage, flags.Mileage),
		Price:        pick(file.Price, flags.Price),
	}
}

func loadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return imageio.Decode(data)
}

func readSources(paths []string) ([]poster.Source, error) {
	sources := make([]poster.Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", p)
		}
		sources = append(sources, poster.Source{Name: filepath.Base(p), Data: data})
	}
	return sources, nil
}

// openLibrary connects the storage backend and dealer session from the
// environment.
func openLibrary(ctx context.Context, log zerolog.Logger) (storage.Store, session.Session, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewFromEnv(ctx, env)
	if err != nil {
		return nil, nil, err
	}
	sess := session.FromEnv(env)
	if tok, ok := sess.(*session.Token); ok && tok.Err() != nil {
		log.Warn().Err(tok.Err()).Msg("session token rejected")
	}
	log.Debug().Str("backend", env.StorageBackend).Msg("library opened")
	return store, sess, nil
}

func writeAsset(dir string, a domain.GeneratedAsset) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create output directory")
	}
	out := filepath.Join(dir, a.Filename())
	if err := os.WriteFile(out, a.Data, 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", out)
	}
	if len(a.Thumbnail) > 0 {
		thumb := filepath.Join(dir, a.ID+"_thumb.jpg")
		if err := os.WriteFile(thumb, a.Thumbnail, 0644); err != nil {
			return "", errors.Wrapf(err, "write %s", thumb)
		}
	}
	return out, nil
}

func runPoster(ctx context.Context, opts *config.PosterOptions, flags config.VehicleAttributes) error {
	ws, err := newWorkspace(opts.Verbose, opts.BrandingPath, opts.LogoPath, flags)
	if err != nil {
		return err
	}

	sources, err := readSources(opts.InputPaths)
	if err != nil {
		return err
	}
	if err := ws.state.SetSources(sources); err != nil {
		return err
	}

	var store storage.Store
	var sess session.Session = session.Static("")
	if opts.Save {
		if store, sess, err = openLibrary(ctx, ws.log); err != nil {
			return err
		}
	}

	st := studio.New(ws.rc, ws.state, nil, store, sess, ws.log)
	assets, err := st.GenerateStills(ctx)
	if err != nil {
		return err
	}

	for _, a := range assets {
		if opts.OutputDir != "" {
			out, err := writeAsset(opts.OutputDir, a)
			if err != nil {
				return err
			}
			ws.log.Info().Str("file", out).Int("bytes", len(a.Data)).Msg("poster written")
		}
	}
	if len(assets) > 0 {
		fmt.Println(assets[0].Caption)
	}

	if opts.Save {
		saved, err := st.SaveAll(ctx)
		for _, s := range saved {
			fmt.Println(s.URL)
		}
		if err != nil {
			return errors.Wrapf(err, "saved %d of %d posters", len(saved), len(assets))
		}
	}
	return nil
}

func runReel(ctx context.Context, opts *config.ReelOptions, flags config.VehicleAttributes) error {
	ws, err := newWorkspace(opts.Verbose, opts.BrandingPath, opts.LogoPath, flags)
	if err != nil {
		return err
	}

	var store storage.Store
	var sess session.Session = session.Static("")
	if opts.Save {
		if store, sess, err = openLibrary(ctx, ws.log); err != nil {
			return err
		}
	}

	proc := ffmpeg.NewProcessor(ws.log)
	st := studio.New(ws.rc, ws.state, reel.FromProcessor(proc), store, sess, ws.log)
	if err := st.LoadVideo(ctx, reel.FromClip(proc.Open(opts.InputPath))); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCtx.Done():
			ws.log.Warn().Msg("interrupt received, cancelling reel")
			st.CancelReel()
		case <-done:
		}
	}()

	lastStep := -1
	asset, err := st.GenerateReel(ctx, studio.ReelOptions{
		TrimEnd:      opts.TrimEnd,
		FrameRate:    opts.FrameRate,
		IncludeAudio: opts.IncludeAudio,
		OnProgress: func(p float64) {
			if step := int(p * 10); step != lastStep {
				lastStep = step
				ws.log.Info().Msgf("recording %3.0f%%", p*100)
			}
		},
	})
	if err != nil {
		return err
	}
	ws.log.Info().
		Str("codec", asset.Codec).
		Int("frames", st.Recorder().Frames()).
		Msg("reel recorded")

	if opts.OutputDir != "" {
		out, err := writeAsset(opts.OutputDir, *asset)
		if err != nil {
			return err
		}
		ws.log.Info().Str("file", out).Int("bytes", len(asset.Data)).Msg("reel written")
	}
	fmt.Println(asset.Caption)

	if opts.Save {
		saved, err := st.Save(ctx, asset.ID)
		if err != nil {
			return err
		}
		fmt.Println(saved.URL)
	}
	return nil
}

func runPreview(ctx context.Context, opts *previewOptions, flags config.VehicleAttributes) error {
	ws, err := newWorkspace(opts.Verbose, opts.BrandingPath, opts.LogoPath, flags)
	if err != nil {
		return err
	}

	if opts.VideoPath != "" {
		proc := ffmpeg.NewProcessor(ws.log)
		clip := proc.Open(opts.VideoPath)
		st := studio.New(ws.rc, ws.state, reel.FromProcessor(proc), nil, session.Static(""), ws.log)
		if err := st.LoadVideo(ctx, reel.FromClip(clip)); err != nil {
			return err
		}
		if meta, err := clip.Info(ctx); err == nil {
			ws.log.Info().
				Str("duration", formatDuration(meta.Duration)).
				Str("reel", formatDuration(reel.TargetDuration(0, meta.Duration))).
				Msg("video loaded")
		}
	} else {
		sources, err := readSources(opts.InputPaths)
		if err != nil {
			return err
		}
		if err := ws.state.SetSources(sources); err != nil {
			return err
		}
		if err := ws.state.Select(opts.Selected); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	if err := writeJPEG(filepath.Join(opts.OutputDir, "preview.jpg"), ws.state.Preview()); err != nil {
		return err
	}
	for i, th := range ws.state.Thumbnails() {
		if err := writeJPEG(filepath.Join(opts.OutputDir, fmt.Sprintf("thumb_%d.jpg", i)), th); err != nil {
			return err
		}
	}
	ws.log.Info().
		Str("mode", string(ws.state.Mode())).
		Int("selected", ws.state.Selected()).
		Int("thumbnails", len(ws.state.Thumbnails())).
		Msg("preview written")
	return nil
}

func writeJPEG(path string, img image.Image) error {
	data, err := imageio.EncodeJPEG(img, config.ExportQuality)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write %s", path)
}

func runLibrary(ctx context.Context, verbose bool) error {
	log := logging.New(verbose, true)
	store, sess, err := openLibrary(ctx, log)
	if err != nil {
		return err
	}
	rc, err := layout.NewRenderContext()
	if err != nil {
		return errors.Wrap(err, "init renderer")
	}

	st := studio.New(rc, preview.New(rc, log), nil, store, sess, log)
	files, err := st.Library(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
	for _, f := range files {
		created := "-"
		if !f.CreatedAt.IsZero() {
			created = f.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, created)
	}
	return w.Flush()
}
