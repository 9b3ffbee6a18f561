package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/api"
	"clubledger-backend-go/internal/config"
	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/middleware"
)

func newLogger(format string) (*zap.Logger, error) {
	if strings.ToLower(format) == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	// --- 1. Load .env outside release mode ---
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := newLogger(os.Getenv("LOG_FORMAT"))
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 3. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.",
		zap.String("storeDriver", appConfig.StoreDriver),
		zap.String("gameTimezone", appConfig.GameLocation.String()))

	// --- 4. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirebase(initCtx, appConfig, zapLogger); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 5. Document store ---
	var store db.Store
	switch appConfig.StoreDriver {
	case config.StoreDriverMemory:
		zapLogger.Warn("Using in-memory document store; data is lost on exit.")
		store = db.NewMemoryStore()
	default:
		store = db.NewFirestoreStore(db.GetFirestoreClient())
	}

	// --- 6. Identity provider ---
	toolkit, err := identity.NewToolkitService(initCtx, appConfig.FirebaseWebAPIKey)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Identity Toolkit client", zap.Error(err))
	}
	provider := identity.NewFirebaseProvider(firebaseAuthClient, toolkit, appConfig.FederatedRequestURI)

	// --- 7. Repositories and services ---
	userRepo := db.NewUserRepository(store)
	gameRepo := db.NewGameRepository(store)

	registry := core.NewMembershipRegistry(provider, userRepo, zapLogger)
	ledger := core.NewEventLedger(gameRepo, registry, appConfig.GameLocation, zapLogger)
	sessions := core.NewSessionManager(store, registry, ledger, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	api.SetupRoutes(router, appConfig, zapLogger, provider, registry, ledger, sessions)

	// --- 9. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Live feeds only end once their sessions close.
	httpServer.RegisterOnShutdown(sessions.CloseAll)

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 10. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}
	sessions.CloseAll()
	if err := store.Close(); err != nil {
		zapLogger.Warn("Error closing document store", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}
