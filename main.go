package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"livepaint/config"
	"livepaint/crypto"
	"livepaint/host"
	"livepaint/logger"
	"livepaint/migrations"
	"livepaint/oracle"
	"livepaint/storage"
	"livepaint/transport"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// hostIdentity is the participant identity the session host joins rooms as.
const hostIdentity = "host"

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	// Browsers always send Origin. Admin tooling and headless agents don't.
	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	if len(allowedOrigins) == 0 {
		return r
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func hostOptions(cfg config.Config) host.Options {
	opts := host.DefaultOptions()
	opts.ParticipantLimit = cfg.ParticipantLimit
	opts.GuessCacheSize = cfg.GuessCacheSize
	opts.JudgeInterval = cfg.JudgeInterval
	opts.KickGrace = cfg.KickGrace
	opts.KickNotifyTimeout = cfg.KickNotifyTimeout
	opts.RPCTimeout = cfg.RPCTimeout
	return opts
}

// runHost returns the agent runner that hosts a game in every opened room
// until the room closes.
func runHost(admin func() host.RoomAdmin, ai *oracle.OpenAI, opts host.Options) transport.AgentRunner {
	return func(ctx context.Context, agent *transport.Agent) {
		h, err := host.New(agent, admin(), ai, ai, opts)
		if err != nil {
			log.Error().Err(err).Str("room", agent.Name()).Msg("cannot create session host")
			return
		}
		defer h.Close()

		if err := h.Connect(ctx); err != nil {
			log.Error().Err(err).Str("room", agent.Name()).Msg("session host failed to connect")
			return
		}
		<-ctx.Done()
	}
}

func newSecretHasher() *crypto.Argon2idHasher {
	return crypto.NewArgon2idHasher(3, 1024*64, 32, 16, 1)
}

// hashAdminSecret produces the ADMIN_SECRET_HASH value for secret.
func hashAdminSecret(hasher *crypto.Argon2idHasher, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty admin secret")
	}
	return hasher.Hash(secret)
}

func main() {
	hashSecret := flag.String("hash-secret", "", "print the ADMIN_SECRET_HASH for this secret and exit")
	flag.Parse()
	if *hashSecret != "" {
		hash, err := hashAdminSecret(newSecretHasher(), *hashSecret)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Dependencies
	var store transport.MetadataStore
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		pgRepo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to postgres")
		}
		defer pgRepo.Close()
		store = pgRepo
	} else {
		log.Warn().Msg("POSTGRES_URL not set, room metadata is kept in memory")
		store = storage.NewMemoryRepo()
	}

	if cfg.AdminSecretHash == "" {
		log.Warn().Msg("ADMIN_SECRET_HASH not set, admin routes reject every call (generate one with -hash-secret)")
	}
	adminAuthorizer := crypto.NewAdminAuthorizer(newSecretHasher(), cfg.AdminSecretHash)
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, cfg.TokenTTL)

	if cfg.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, every guess will fail")
	}
	ai := oracle.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)

	// The host needs the room service and the service needs the hub. Runners
	// only start on the first join, long after both exist.
	var roomService *transport.RoomService
	hub := transport.NewHub(store, hostIdentity, runHost(
		func() host.RoomAdmin { return roomService },
		ai,
		hostOptions(cfg),
	))
	roomService = transport.NewRoomService(hub, store)

	r := CreateServer(cfg.AllowedOrigins)
	transport.NewHandler(tokenManager, adminAuthorizer, hub, roomService).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, closing rooms before shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("rooms did not close in time")
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("shutting down now")
}
