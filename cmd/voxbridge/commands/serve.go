package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/voxbridge/voxbridge/pkg/callrecord"
	clipkg "github.com/voxbridge/voxbridge/pkg/cli"
	"github.com/voxbridge/voxbridge/pkg/elevenlabs"
	"github.com/voxbridge/voxbridge/pkg/openairt"
	"github.com/voxbridge/voxbridge/pkg/relay"
	"github.com/voxbridge/voxbridge/pkg/twilio"
	"github.com/voxbridge/voxbridge/pkg/twilio/stream"
)

var (
	serveListen     string
	servePublicHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telephony relay server",
	Long: `Run the relay server.

The server exposes three endpoints:
  POST /call     call webhook; returns TwiML opening a media stream
  GET  /media    media stream WebSocket; one relayed call per connection
  GET  /healthz  liveness probe

Twilio must be able to reach the public host over HTTPS/WSS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		srv, err := newServer(ctx)
		if err != nil {
			return err
		}
		return srv.run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "bind address (overrides context)")
	serveCmd.Flags().StringVar(&servePublicHost, "public-host", "", "externally reachable hostname (overrides context)")
}

// server holds the relay server's wiring for one serve invocation.
type server struct {
	ctx        *clipkg.Context
	listen     string
	publicHost string
	upgrader   websocket.Upgrader
	records    *callrecord.Store
	logger     *slog.Logger
	styles     clipkg.Styles
}

func newServer(ctx *clipkg.Context) (*server, error) {
	if ctx.OpenAI == nil || ctx.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("context is missing OpenAI credentials")
	}

	listen := serveListen
	publicHost := servePublicHost
	if ctx.Server != nil {
		if listen == "" {
			listen = ctx.Server.Listen
		}
		if publicHost == "" {
			publicHost = ctx.Server.PublicHost
		}
	}
	if listen == "" {
		listen = ":8080"
	}
	if publicHost == "" {
		return nil, fmt.Errorf("public host is required; set --public-host or the context's server.public_host")
	}

	srv := &server{
		ctx:        ctx,
		listen:     listen,
		publicHost: publicHost,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 20 * time.Second,
			// Twilio does not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: slog.Default(),
		styles: clipkg.NewStyles(clipkg.DefaultTheme),
	}

	if ctx.Relay != nil && ctx.Relay.RecordDir != "" {
		records, err := callrecord.Open(callrecord.Options{Dir: ctx.Relay.RecordDir})
		if err != nil {
			return nil, err
		}
		srv.records = records
	}
	return srv, nil
}

func (s *server) run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /call", s.handleCallWebhook)
	mux.HandleFunc("GET /media", s.handleMedia)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpSrv := &http.Server{
		Addr:              s.listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Println(s.styles.Banner("voxbridge", "telephony relay"))
	fmt.Println(s.styles.KV("listen", s.listen))
	fmt.Println(s.styles.KV("public host", s.publicHost))
	fmt.Println(s.styles.KV("backend", s.backend()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	if s.records != nil {
		s.records.Close()
	}
	return err
}

func (s *server) backend() string {
	if s.ctx.Relay != nil && s.ctx.Relay.Backend != "" {
		return s.ctx.Relay.Backend
	}
	return "openai"
}

// handleCallWebhook answers Twilio's call webhook with TwiML pointing the
// call's media stream at this server.
func (s *server) handleCallWebhook(w http.ResponseWriter, r *http.Request) {
	twiml, err := twilio.ConnectStream("wss://"+s.publicHost+"/media", nil)
	if err != nil {
		s.logger.Error("rendering twiml failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, twiml)
}

// handleMedia upgrades the media stream WebSocket and relays the call.
func (s *server) handleMedia(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn := stream.NewConn(ws)

	uplink, err := s.dialUplink(r.Context())
	if err != nil {
		s.logger.Error("connecting AI uplink failed",
			"error", &relay.SessionInitError{Backend: s.backend(), Err: err})
		conn.Close()
		return
	}
	if err := uplink.Start(r.Context()); err != nil {
		s.logger.Error("configuring AI uplink failed",
			"error", &relay.SessionInitError{Backend: s.backend(), Err: err})
		uplink.Close()
		conn.Close()
		return
	}

	cfg := relay.Config{Logger: s.logger}
	if rs := s.ctx.Relay; rs != nil {
		cfg.Greeting = rs.Greeting
		cfg.LocalVAD = rs.LocalVAD
		cfg.VADThreshold = rs.VADThreshold
	}
	if s.records != nil {
		cfg.Recorder = s.records
		cfg.OnCallStart = func(streamSID, callSID string) {
			err := s.records.BeginCall(&callrecord.CallMeta{
				StreamSID: streamSID,
				CallSID:   callSID,
				Backend:   s.backend(),
				StartedAt: time.Now(),
			})
			if err != nil {
				s.logger.Error("recording call start failed", "error", err)
			}
		}
	}

	rel := relay.New(conn, uplink, cfg)
	if err := rel.Run(context.Background()); err != nil {
		s.logger.Error("relay ended with error", "error", err)
	}
	if s.records != nil {
		if sid := rel.Session().StreamSID(); sid != "" {
			if err := s.records.EndCall(sid, time.Now()); err != nil {
				s.logger.Error("recording call end failed", "error", err)
			}
		}
	}
}

// dialUplink connects the configured AI backend.
func (s *server) dialUplink(ctx context.Context) (relay.Uplink, error) {
	client := openairt.NewClient(s.ctx.OpenAI.APIKey)
	var connectCfg *openairt.ConnectConfig
	if s.ctx.OpenAI.Model != "" {
		connectCfg = &openairt.ConnectConfig{Model: s.ctx.OpenAI.Model}
	}
	session, err := client.Connect(ctx, connectCfg)
	if err != nil {
		return nil, err
	}

	instructions := ""
	if s.ctx.Relay != nil {
		instructions = s.ctx.Relay.Instructions
	}

	switch s.backend() {
	case "openai":
		return relay.NewOpenAIUplink(session, relay.OpenAIUplinkConfig{
			Instructions:    instructions,
			Voice:           s.ctx.OpenAI.Voice,
			TranscribeInput: s.records != nil,
			Logger:          s.logger,
		}), nil

	case "elevenlabs":
		if s.ctx.ElevenLabs == nil || s.ctx.ElevenLabs.APIKey == "" {
			session.Close()
			return nil, fmt.Errorf("context is missing ElevenLabs credentials for the elevenlabs backend")
		}
		tts := elevenlabs.NewClient(s.ctx.ElevenLabs.APIKey)
		return relay.NewTTSUplink(session, tts, relay.TTSUplinkConfig{
			Instructions: instructions,
			VoiceID:      s.ctx.ElevenLabs.VoiceID,
			Logger:       s.logger,
		}), nil

	default:
		session.Close()
		return nil, fmt.Errorf("unknown relay backend %q", s.backend())
	}
}
