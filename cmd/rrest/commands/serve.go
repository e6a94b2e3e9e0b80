package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/erraggy/rrest/config"
	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/loader"
	"github.com/erraggy/rrest/muxprovider"
)

// ServeOptions configures HandleServe.
type ServeOptions struct {
	Sources []string
	Addr    string
	EnvFile string
	CORS    bool
}

// HandleServe serves every route of the documents with the Echo handler
// until ctx is done. It is a mock server: requests are validated for real
// and answered with their own typed values.
func HandleServe(ctx context.Context, opts ServeOptions) error {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return err
	}
	logger := NewLogger(cfg.LogLevel)

	docs, err := loader.New().LoadAll(ctx, opts.Sources)
	if err != nil {
		return err
	}

	var providerOpts []muxprovider.Option
	if opts.CORS {
		providerOpts = append(providerOpts, muxprovider.WithCORS("*", "", "Content-Type, Accept, Authorization"))
	}
	provider := muxprovider.New(mux.NewRouter(), providerOpts...)

	d, err := dispatch.New(append(cfg.Options(logger), dispatch.WithProvider(provider))...)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		for _, spec := range doc.Routes() {
			if _, err := d.Register(spec, Echo); err != nil {
				return err
			}
		}
	}

	return listen(ctx, logger, opts.Addr, provider)
}

func listen(ctx context.Context, logger zerolog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
