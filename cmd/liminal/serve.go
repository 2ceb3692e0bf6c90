package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/expansion"
	"github.com/liminalbooks/liminal/internal/logging"
	"github.com/liminalbooks/liminal/internal/web"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local book reader and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			var exp web.Expander
			client, err := a.llmClient(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("language model unavailable, serving read-only")
			} else {
				exp = expansion.NewExpander(a.projects, client, a.cfg.LLM.Temperature, logging.Component("expansion"))
			}

			server, err := web.NewServer(a.projects, exp, a.cfg.DataDir, logging.Component("web"))
			if err != nil {
				return err
			}

			addr := fmt.Sprintf("127.0.0.1:%d", port)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				_ = httpServer.Close()
			}()

			log.Info().Msgf("serving on http://%s", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}
