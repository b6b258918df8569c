// Command sequencerd runs the ceremony sequencer: it serves the lobby and
// contribution API over HTTP and persists the transcript batch to disk.
// Participant identities are taken from a request header and assumed to be
// verified upstream (identity providers are fronted elsewhere).
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zkceremony/sequencer"
	"github.com/zkceremony/sequencer/ceremony/bls12381"
	"github.com/zkceremony/sequencer/lobby"
	"github.com/zkceremony/sequencer/storage"
)

func main() {
	var (
		addr              = flag.String("listen", "127.0.0.1:3000", "API listen address")
		transcriptFile    = flag.String("transcript-file", "./transcript.json", "durable transcript location")
		workFile          = flag.String("transcript-work-file", "./transcript.json.next", "temporary transcript location for atomic writes")
		sizesFlag         = flag.String("ceremony-sizes", sequencer.DefaultSizes, "shard sizes, G1,G2[:G1,G2]*")
		multiContribution = flag.Bool("multi-contribution", false, "allow multiple contributions per identity")
		lobbyTimeout      = flag.Duration("lobby-timeout", 30*time.Second, "idle session eviction timeout")
		sweepInterval     = flag.Duration("lobby-sweep-interval", 5*time.Second, "eviction sweep interval")
		maxLobbySize      = flag.Int("max-lobby-size", 1000, "maximum sessions across all shards")
		requeueOnFailure  = flag.Bool("requeue-on-failure", false, "return failed sessions to the queue instead of evicting")
		maxBodyBytes      = flag.Int64("max-body-bytes", 10<<20, "maximum accepted contribution payload size")
	)
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	sizes, err := sequencer.ParseSizes(*sizesFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ceremony sizes")
	}

	store := &storage.FileStore{Path: *transcriptFile, WorkPath: *workFile}
	lb := lobby.New(len(sizes), lobby.Options{
		Timeout:          *lobbyTimeout,
		SweepInterval:    *sweepInterval,
		MaxSize:          *maxLobbySize,
		RequeueOnFailure: *requeueOnFailure,
	}, clock.New())

	seq, err := sequencer.New(bls12381.Engine{}, store, lb, sequencer.Options{
		Sizes:             sizes,
		MultiContribution: *multiContribution,
		VerifySignature:   bls12381.VerifySignature,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("starting sequencer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    *addr,
		Handler: newAPI(seq, *maxBodyBytes, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := lb.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info().Str("addr", *addr).Msg("sequencer listening")
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("sequencer stopped")
	}
}
