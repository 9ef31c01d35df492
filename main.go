package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passagens/internal/booking"
	"passagens/internal/cache"
	intconfig "passagens/internal/config"
	"passagens/internal/db"
	router "passagens/internal/http"
	"passagens/internal/http/handlers"
	"passagens/internal/integrations/drive"
	"passagens/internal/integrations/mailer"
	"passagens/internal/integrations/mercadopago"
	"passagens/internal/integrations/reservation"
	"passagens/internal/repositories"
	"passagens/internal/services"
	"passagens/internal/utils"
)

func main() {
	env := intconfig.LoadEnv()
	utils.SetupLogger(env.LogLevel, env.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sqlDB := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		log.Fatalf("Falha ao preparar schema: %v", err)
	}

	rdb, err := intconfig.NewRedisClient(ctx, env)
	if err != nil {
		log.Fatalf("Falha ao conectar ao Redis: %v", err)
	}
	defer rdb.Close()

	reservations := reservation.New(env.ReservationBaseURL, env.ReservationToken)
	localities, err := reservation.LoadLocalities(ctx, env.LocalitiesFile, reservations)
	if err != nil {
		log.Fatalf("Falha ao carregar localidades: %v", err)
	}
	directory := booking.NewDirectory(localities)

	bookingRepo := repositories.BookingRepository{DB: sqlDB}
	paymentRepo := repositories.PaymentRepository{DB: sqlDB}

	bookingSvc := services.BookingService{Bookings: bookingRepo}
	sessions := services.SessionService{
		Sessions:  cache.NewSessionStore(rdb, env.SessionTTL),
		Locks:     cache.NewLockStore(rdb),
		Directory: directory,
		TripCache: cache.NewTripCache(rdb, env.TripCacheTTL),
		Bookings:  bookingSvc,
	}
	if reservations.Enabled() {
		sessions.Trips = reservations
	} else {
		log.Println("warning: RESERVATION_BASE_URL não configurado, consultas de viagens indisponíveis")
	}

	auth := services.AuthService{
		OTPs:      cache.NewOTPStore(rdb),
		Mailer:    mailer.New(env.SMTPHost, env.SMTPPort, env.SMTPUser, env.SMTPPass, env.MailFrom),
		JWTSecret: []byte(env.JWTSecret),
		CodeTTL:   env.OTPTTL,
		TokenTTL:  env.JWTTTL,
		DevMode:   env.SMTPHost == "",
	}

	payments := services.PaymentService{
		Bookings: bookingRepo,
		Payments: paymentRepo,
		Gateway:  mercadopago.New(env.MercadoPagoBaseURL, env.MercadoPagoToken),
	}

	docs := services.DocsService{Bookings: bookingRepo}
	storage := services.StorageService{Docs: docs}
	if env.DriveCredentialsFile != "" {
		uploader, err := drive.NewFromCredentialsFile(ctx, env.DriveCredentialsFile, env.DriveFolderID)
		if err != nil {
			log.Fatalf("Falha ao configurar Google Drive: %v", err)
		}
		storage.Uploader = uploader
	}

	reconciler, err := services.NewReconciler(env.ReconcileSchedule, payments)
	if err != nil {
		log.Fatalf("Agenda de conciliação inválida: %v", err)
	}
	reconciler.Start()

	r := router.NewRouter(router.RouterDeps{
		Env:       env,
		Directory: directory,
		Sessions:  sessions,
		Bookings:  bookingSvc,
		Auth:      auth,
		Payments:  payments,
		Docs:      docs,
		Storage:   storage,
		Responses: cache.NewResponseCache(rdb),
	})
	handlers.SetRouter(r)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Servidor rodando em http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Falha ao iniciar servidor: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Encerrando servidor...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Falha no shutdown do servidor: %v", err)
	}
	reconciler.Stop(shutdownCtx)

	log.Println("Servidor encerrado com segurança.")
}
