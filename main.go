package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/api"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/api/middleware"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/pricing"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/realtime"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/remote"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/service"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Đăng nhập vào remote service
	creds := remote.NewCredentials()
	client := remote.NewHTTPClient(cfg.APIBaseURL, cfg.RemoteTimeout, creds)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), cfg.RemoteTimeout)
	if err := client.Login(loginCtx, cfg.RemoteUsername, cfg.RemotePassword); err != nil {
		log.Fatalf("Không thể đăng nhập vào remote service: %v", err)
	}
	cancelLogin()

	// 3. Khởi tạo các thành phần lõi (không dùng singleton, truyền tường minh)
	sessionStore := store.NewSessionStore()
	calculator := pricing.NewCalculator(cfg.Tariffs, cfg.TimeBlockHours)

	parkingService, err := service.NewParkingService(sessionStore, client, cfg)
	if err != nil {
		log.Fatalf("Không thể khởi tạo parking service: %v", err)
	}

	// 4. Tải dữ liệu lần đầu
	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.RemoteTimeout)
	if err := parkingService.RefreshAll(initCtx); err != nil {
		log.Printf("Cảnh báo: Không tải được dữ liệu lần đầu: %v", err)
	}
	cancelInit()

	// 5. Chạy kênh realtime
	var wg sync.WaitGroup
	syncCtx, cancelSync := context.WithCancel(context.Background())

	realtimeClient := realtime.NewClient(cfg, creds, sessionStore)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := realtimeClient.Run(syncCtx); err != nil {
			log.Printf("Kênh realtime đã dừng hẳn: %v", err)
		}
	}()

	// 6. Chạy job full refresh định kỳ
	wg.Add(1)
	go func() {
		defer wg.Done()
		parkingService.RunRefreshLoop(syncCtx, cfg.RefreshInterval)
	}()

	// 7. Setup HTTP Router
	authMiddleware := middleware.NewAuthMiddleware(cfg.ConsoleAPIKey)
	router := api.SetupRouter(parkingService, sessionStore, realtimeClient, calculator, authMiddleware)

	// 8. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Console API đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt console...")

	cancelSync()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	log.Println("Đang chờ kênh realtime và refresh job dừng (tối đa 5 giây)...")
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		log.Println("Các background job đã dừng hoàn toàn.")
	case <-time.After(5 * time.Second):
		log.Println("Background job không dừng trong thời gian chờ.")
	}

	log.Println("Console đã tắt.")
}
