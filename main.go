package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"MinimartApp/app/config"
	"MinimartApp/app/database"
	"MinimartApp/app/services"
	"MinimartApp/app/websocket"
)

// App bundles every service the application exposes.
type App struct {
	Products   *services.ProductService
	Categories *services.CategoryService
	Stock      *services.StockService
	Orders     *services.OrderService
	Sales      *services.SalesService
	Imports    *services.ImportService
	Backups    *services.BackupService
	Settings   *services.SettingsService
	Reports    *services.ReportsService
	Dashboard  *services.DashboardService
	Sync       *services.SyncService
}

func main() {
	// .env is optional, environment wins over config.json either way
	_ = godotenv.Load()

	log := config.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	store, err := database.OpenLocalStore(cfg.Local.Path)
	if err != nil {
		log.WithError(err).Fatal("could not open local store")
	}
	defer store.Close()

	state := store.LoadState()

	ledger, err := database.ConnectPostgres(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("could not configure remote ledger connection")
	}

	monitor := services.NewConnectivityMonitor()
	gateway := services.NewSyncGateway(ledger, store, monitor)
	base := services.NewBaseService(state, store, gateway)

	stockSvc := services.NewStockService(base)
	salesSvc := services.NewSalesService(base)
	app := &App{
		Products:   services.NewProductService(base),
		Categories: services.NewCategoryService(base),
		Stock:      stockSvc,
		Orders:     services.NewOrderService(base),
		Sales:      salesSvc,
		Imports:    services.NewImportService(base),
		Backups:    services.NewBackupService(base),
		Settings:   services.NewSettingsService(base),
		Reports:    services.NewReportsService(base, stockSvc, salesSvc),
		Dashboard:  services.NewDashboardService(base),
		Sync:       services.NewSyncService(base),
	}

	base.RegisterRefreshHook(func(collection string) {
		summary := app.Dashboard.Summary()
		log.WithFields(map[string]interface{}{
			"collection":     collection,
			"products":       summary.TotalProducts,
			"low_stock":      len(summary.LowStockProducts),
			"pending_orders": summary.PendingOrders,
		}).Debug("dashboard refreshed")
	})

	worker := services.NewSyncWorker(app.Sync, ledger, monitor,
		time.Duration(cfg.Sync.IntervalSeconds)*time.Second)
	worker.Start()
	defer worker.Stop()

	feed := services.NewChangeFeedService(base)
	listener := websocket.NewListener(cfg.Feed.URL, feed)
	listener.Start()
	defer listener.Stop()

	log.Info("minimart sync engine running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}
