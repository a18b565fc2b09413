package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/nightspite/sol-pos/docs"
	v1 "github.com/nightspite/sol-pos/internal/api/handler/v1"
	"github.com/nightspite/sol-pos/internal/api/middleware"
	"github.com/nightspite/sol-pos/internal/config"
	"github.com/nightspite/sol-pos/internal/ledger"
	"github.com/nightspite/sol-pos/internal/metrics"
	"github.com/nightspite/sol-pos/internal/poller"
	"github.com/nightspite/sol-pos/internal/repository"
	"github.com/nightspite/sol-pos/internal/repository/dao"
	"github.com/nightspite/sol-pos/internal/service"
)

// Dependencies are the external handles built by the caller.
type Dependencies struct {
	DB        *gorm.DB
	Finder    ledger.Finder
	Validator ledger.Validator
	Events    service.EventPublisher
	Registry  *prometheus.Registry
}

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	deps    Dependencies
	metrics *metrics.Metrics
	watch   *v1.WatchHandler
}

func NewServer(conf *config.AppConfig, deps Dependencies) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
		deps:   deps,
	}
	if deps.Registry != nil {
		s.metrics = metrics.New(deps.Registry)
	}

	s.MountMiddlewares()

	handlers := s.initHandlers()
	s.watch = handlers.watch
	s.MountHandlers(handlers)

	return s
}

// Handler is the router wrapped in server-side tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router, "sol-pos")
}

// Shutdown ends the websocket watches, which http.Server.Shutdown does not
// track once their connections are hijacked.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.watch.Close(ctx)
}

type handlers struct {
	auth      *v1.AuthHandler
	terminals *v1.TerminalHandler
	orders    *v1.OrderHandler
	watch     *v1.WatchHandler
	admin     *v1.AdminHandler
}

func (s *Server) initHandlers() handlers {
	db := s.deps.DB

	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	orderRepo := repository.NewOrderRepository(dao.NewOrderDAO(db))
	storeRepo := repository.NewStoreRepository(dao.NewStoreDAO(db))

	uSvc := service.NewUserService(userRepo)
	authSvc := service.NewAuthService(userRepo)
	storeSvc := service.NewStoreService(storeRepo)
	cartSvc := service.NewCartService(orderRepo, storeRepo, s.metrics)
	paymentSvc := service.NewPaymentService(orderRepo, s.Config.Payment, s.metrics)
	verifier := service.NewVerifier(orderRepo, s.deps.Validator, s.Config.Payment, s.Config.Ledger.CallTimeout, s.deps.Events, s.metrics)
	watcher := poller.New(s.deps.Finder, orderRepo, verifier, s.Config.Poller.Interval, s.Config.Poller.CheckTimeout, s.metrics)

	return handlers{
		auth:      v1.NewAuthHandler(s.Config.API, authSvc),
		terminals: v1.NewTerminalHandler(storeSvc, cartSvc, uSvc),
		orders:    v1.NewOrderHandler(cartSvc, paymentSvc, verifier, uSvc, s.Config.Ledger.Cluster),
		watch:     v1.NewWatchHandler(cartSvc, watcher, uSvc, s.Config.API.AllowedCORSDomains),
		admin:     v1.NewAdminHandler(storeSvc, uSvc),
	}
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", h.auth.HandleSignup)
		auth.POST("/auth/login", h.auth.HandleLogin)
	}

	authenticated := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authenticated.GET("/terminals/:terminalID", h.terminals.HandleGetTerminal)
		authenticated.GET("/terminals/:terminalID/cart", h.terminals.HandleGetCart)

		authenticated.GET("/orders", h.orders.HandleListOrders)
		authenticated.GET("/orders/:orderID", h.orders.HandleGetOrder)
		authenticated.POST("/orders/:orderID/items", h.orders.HandleAddLine)
		authenticated.DELETE("/orders/:orderID/items/:productID", h.orders.HandleRemoveLine)
		authenticated.POST("/orders/:orderID/cancel", h.orders.HandleCancelOrder)
		authenticated.POST("/orders/:orderID/payment", h.orders.HandleCreatePayment)
		authenticated.GET("/orders/:orderID/qr", h.orders.HandleGetQR)
		authenticated.POST("/orders/:orderID/verify", h.orders.HandleVerify)
		authenticated.GET("/orders/:orderID/explorer", h.orders.HandleGetExplorer)
		authenticated.GET("/orders/:orderID/watch", h.watch.HandleWatch)

		authenticated.PUT("/admin/stores/:storeID/products/:productID/stock", h.admin.HandleSetStock)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	if s.deps.Registry != nil {
		s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{Registry: s.deps.Registry})))
	}

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "sol-pos API"
	docs.SwaggerInfo.Description = "Point of sale checkout settled with Solana Pay."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
