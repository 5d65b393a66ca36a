package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/costing"
	"github.com/meridian-erp/meridian-erp/internal/disbursement"
	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/invoicing"
	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/projects"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/users"
	"github.com/meridian-erp/meridian-erp/internal/workflow"
)

// poStatusAdapter exposes purchase order status lookups to the modules that
// verify linkage without importing the whole procurement surface.
type poStatusAdapter struct {
	service *procurement.Service
}

func (a poStatusAdapter) PurchaseOrderStatus(ctx context.Context, id int64) (docstate.Status, error) {
	po, _, err := a.service.GetPurchaseOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return po.Status, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	router := buildRouter(cfg, logger, pool, redisClient)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildRouter(cfg *app.Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client) http.Handler {
	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)

	workflowRepo := workflow.NewRepository(pool)
	workflowService := workflow.NewService(workflowRepo, auditLogger)
	workflowHandler := workflow.NewHandler(logger, workflowService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, workflowService, approvalRecorder, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	orders := poStatusAdapter{service: procurementService}

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(invoicingRepo, orders, approvalRecorder, auditLogger, invoicing.Config{
		RequireReceivingReport: cfg.MatchRequireGRN,
	})
	invoicingHandler := invoicing.NewHandler(logger, invoicingService)

	disbursementRepo := disbursement.NewRepository(pool)
	disbursementService := disbursement.NewService(disbursementRepo, orders, approvalRecorder, auditLogger)
	disbursementHandler := disbursement.NewHandler(logger, disbursementService)

	costingRepo := costing.NewRepository(pool)
	costingService := costing.NewService(costingRepo, redisClient)
	costingHandler := costing.NewHandler(logger, costingService)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo, auditLogger)
	projectsHandler := projects.NewHandler(logger, projectsService)

	masterDataRepo := masterdata.NewRepository(pool)
	masterDataService := masterdata.NewService(masterDataRepo, auditLogger)
	masterDataHandler := masterdata.NewHandler(logger, masterDataService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService)

	return app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Pool:   pool,

		WorkflowHandler:     workflowHandler,
		ProcurementHandler:  procurementHandler,
		InvoicingHandler:    invoicingHandler,
		DisbursementHandler: disbursementHandler,
		CostingHandler:      costingHandler,
		ProjectsHandler:     projectsHandler,
		MasterDataHandler:   masterDataHandler,
		UsersHandler:        usersHandler,
	})
}
