package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nitevj/nitemix/internal/beatsync"
	"github.com/nitevj/nitemix/internal/blend"
	"github.com/nitevj/nitemix/internal/config"
	"github.com/nitevj/nitemix/internal/mixer"
	"github.com/nitevj/nitemix/internal/observe"
	"github.com/nitevj/nitemix/pkg/audio"
	"github.com/nitevj/nitemix/pkg/audio/feature"
	"github.com/nitevj/nitemix/pkg/video"
)

// runSession assembles the full pipeline from a validated config and runs it
// to completion. Context cancellation (Ctrl+C) ends a stream session cleanly.
func runSession(ctx context.Context, cfg *config.Config) error {
	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Info("nitemix starting",
		"mode", mode(cfg),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.FPS,
		"operation", cfg.BlendOperation,
	)

	var (
		metrics    *observe.Metrics
		metricsSrv *http.Server
	)
	if cfg.MetricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return fmt.Errorf("init metrics provider: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("metrics shutdown error", "err", err)
			}
		}()
		metrics = observe.DefaultMetrics()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	audioSrc, err := openAudio(cfg, metrics)
	if err != nil {
		return err
	}

	signals, err := beatsync.New(audioSrc, feature.NewChromaExtractor(), beatsync.Config{
		FPS:          cfg.FPS,
		BPMFrequency: cfg.BPMFrequency,
		BeatsPerBar:  cfg.BeatsPerBar,
		MinPitch:     cfg.MinPitch,
		MaxPitch:     cfg.MaxPitch,
		Metrics:      metrics,
	})
	if err != nil {
		audioSrc.Close()
		return err
	}

	frames, err := openVideos(cfg)
	if err != nil {
		audioSrc.Close()
		return err
	}

	sink, err := video.OpenFileSink(cfg.Output, cfg.FFmpegPath, frames.Size(), cfg.FPS)
	if err != nil {
		frames.Close()
		audioSrc.Close()
		return err
	}

	engine, err := blend.New(cfg.BlendOperation, cfg.BlendFalloff)
	if err != nil {
		sink.Close()
		frames.Close()
		audioSrc.Close()
		return err
	}

	pipeline := mixer.New(frames, signals, engine, sink, metrics, audioSrc)

	g, gctx := errgroup.WithContext(ctx)
	if metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			if metricsSrv != nil {
				sctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				metricsSrv.Shutdown(sctx)
			}
		}()
		return pipeline.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted, output flushed")
			return nil
		}
		return err
	}
	slog.Info("done", "output", cfg.Output)
	return nil
}

func mode(cfg *config.Config) string {
	if cfg.Stream {
		return "stream"
	}
	return "song"
}

// openAudio builds the configured audio source: a decoded song file or a
// live ffmpeg capture.
func openAudio(cfg *config.Config, metrics *observe.Metrics) (audio.Source, error) {
	if !cfg.Stream {
		return audio.OpenFile(cfg.SongPath)
	}
	capture := &audio.FFmpegCapture{Device: cfg.AudioDevice, Path: cfg.FFmpegPath}
	var opts []audio.LiveOption
	if cfg.PlaybackTime > 0 {
		opts = append(opts, audio.WithPlaybackLimit(cfg.PlaybackTime))
	}
	if metrics != nil {
		opts = append(opts, audio.WithQueueObserver(func(delta int64) {
			metrics.AddQueueDepth(context.Background(), delta)
		}))
	}
	return audio.OpenLive(capture, opts...)
}

// openVideos opens the three input videos scaled to the output geometry and
// zips them into one triple source.
func openVideos(cfg *config.Config) (*video.TripleSource, error) {
	fileCfg := video.FileSourceConfig{
		FFmpeg: cfg.FFmpegPath,
		Target: video.Size{Width: cfg.Width, Height: cfg.Height},
		FPS:    cfg.FPS,
	}
	open := func(path string) (video.Source, error) {
		return video.OpenFileSource(path, fileCfg)
	}

	var sources [3]video.Source
	for i, path := range []string{cfg.Video1, cfg.Video2, cfg.Alpha} {
		src, err := open(path)
		if err != nil {
			for _, s := range sources[:i] {
				s.Close()
			}
			return nil, err
		}
		sources[i] = src
	}

	policy := video.HoldLastFrame
	var reopeners []video.Reopener
	if cfg.Loop {
		policy = video.Loop
		for _, path := range []string{cfg.Video1, cfg.Video2, cfg.Alpha} {
			p := path
			reopeners = append(reopeners, func() (video.Source, error) { return open(p) })
		}
	}

	triple, err := video.NewTripleSource(sources[0], sources[1], sources[2], policy, reopeners...)
	if err != nil {
		for _, s := range sources {
			s.Close()
		}
		return nil, err
	}
	return triple, nil
}
