package main

import (
	"log"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"sky-trace/internal/config"
	"sky-trace/internal/modules/dialogue"
	"sky-trace/internal/modules/optimizer"
	"sky-trace/internal/session"
	"sky-trace/pkg/attest"
	"sky-trace/pkg/llm"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	chatTimeout := time.Duration(cfg.ChatTimeoutSeconds) * time.Second

	// The chat transport is chosen once here; call sites never branch on it.
	var chat llm.Client
	switch cfg.AIMode {
	case config.AIModeProxy:
		chat = llm.NewProxyClient(cfg.ChatProxyURL, chatTimeout)
	default:
		chat = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, chatTimeout)
	}

	store := session.NewStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute)

	dialogueSvc := dialogue.NewService(store, chat, cfg.ExtractionFailurePolicy)
	attestSvc := attest.NewService(cfg.VerifyURL, 30*time.Second)
	optimizerSvc := optimizer.NewService(
		store,
		cfg.OptimizerURL,
		time.Duration(cfg.OptimizeTimeoutSeconds)*time.Second,
		attestSvc,
	)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "SkyTrace API"})
	})

	api := e.Group("/api")
	sessions := api.Group("/sessions/:sessionId", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))

	dialogue.NewHandler(dialogueSvc, []byte(cfg.JWTSecret)).RegisterRoutes(api, sessions)
	optimizer.NewHandler(optimizerSvc).RegisterRoutes(api, sessions)

	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
