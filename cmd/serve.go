package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/dispatch"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Exposes the assistant over HTTP: POST /prompt runs a prompt against a shared server session, /contacts reads the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// One shared session: the API mirrors the interactive CLI, and
		// Session is not safe for concurrent prompts.
		var sessMu sync.Mutex
		sess := dispatch.NewSession()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/prompt", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Prompt string `json:"prompt"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Prompt == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
				return
			}

			sessMu.Lock()
			resp := env.dispatcher.Process(req.Context(), sess, body.Prompt)
			sessMu.Unlock()

			writeJSON(w, http.StatusOK, map[string]any{
				"text":        resp.Text,
				"contacts":    resp.Contacts,
				"companies":   resp.Companies,
				"failures":    resp.Failures,
				"new_records": resp.NewRecords,
			})
		})

		r.Post("/contacts", func(w http.ResponseWriter, req *http.Request) {
			var contacts []model.ContactRecord
			if err := json.NewDecoder(req.Body).Decode(&contacts); err != nil || len(contacts) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a non-empty contact array is required"})
				return
			}
			inserted, err := env.store.SaveContacts(req.Context(), contacts)
			if err != nil {
				zap.L().Error("save contacts failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save contacts failed"})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int{"inserted": inserted})
		})

		r.Get("/contacts", func(w http.ResponseWriter, req *http.Request) {
			contacts, err := env.store.ListContacts(req.Context())
			if err != nil {
				zap.L().Error("list contacts failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list contacts failed"})
				return
			}
			writeJSON(w, http.StatusOK, contacts)
		})

		r.Delete("/contacts/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			err := env.store.DeleteContact(req.Context(), id)
			switch {
			case eris.Is(err, store.ErrNotFound):
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
			case err != nil:
				zap.L().Error("delete contact failed", zap.String("id", id), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
