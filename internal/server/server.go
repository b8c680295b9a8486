package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/talentflow/internal/authorization"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/interview"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	"github.com/smallbiznis/talentflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/talentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/talentflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/talentflow/internal/observability/tracing"
	"github.com/smallbiznis/talentflow/internal/pass"
	passdomain "github.com/smallbiznis/talentflow/internal/pass/domain"
	"github.com/smallbiznis/talentflow/internal/pipeline"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	"github.com/smallbiznis/talentflow/internal/position"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/internal/providers"
	"github.com/smallbiznis/talentflow/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	identity.Module,
	events.Module,
	providers.Module,
	ratelimit.Module,
	position.Module,
	pipeline.Module,
	interview.Module,
	pass.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
	s.RegisterPublicRoutes()
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	verifier       *identity.Verifier
	authzSvc       authorization.Service
	positionSvc    positiondomain.Service
	pipelineSvc    pipelinedomain.Service
	interviewSvc   interviewdomain.Service
	passSvc        passdomain.Service
	bookingLimiter *ratelimit.BookingLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Verifier       *identity.Verifier
	AuthzSvc       authorization.Service
	PositionSvc    positiondomain.Service
	PipelineSvc    pipelinedomain.Service
	InterviewSvc   interviewdomain.Service
	PassSvc        passdomain.Service
	BookingLimiter *ratelimit.BookingLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		verifier:       p.Verifier,
		authzSvc:       p.AuthzSvc,
		positionSvc:    p.PositionSvc,
		pipelineSvc:    p.PipelineSvc,
		interviewSvc:   p.InterviewSvc,
		passSvc:        p.PassSvc,
		bookingLimiter: p.BookingLimiter,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Positions --------
	api.POST("/positions", s.authorize(authorization.ObjectPosition, authorization.ActionPositionCreate), s.CreatePosition)
	api.GET("/positions", s.authorize(authorization.ObjectPosition, authorization.ActionPositionView), s.ListPositions)
	api.GET("/positions/:id", s.authorize(authorization.ObjectPosition, authorization.ActionPositionView), s.GetPosition)
	api.POST("/positions/:id/candidates", s.authorize(authorization.ObjectCandidate, authorization.ActionCandidateApply), s.ApplyToPosition)
	api.GET("/positions/:id/candidates", s.authorize(authorization.ObjectCandidate, authorization.ActionCandidateView), s.ListPositionCandidates)

	// -------- Candidates --------
	api.GET("/candidates/:id", s.authorize(authorization.ObjectCandidate, authorization.ActionCandidateView), s.GetCandidate)
	api.POST("/candidates/:id/transition", s.authorize(authorization.ObjectCandidate, authorization.ActionCandidateTransition), s.TransitionCandidate)
	api.GET("/candidates/:id/activity", s.authorize(authorization.ObjectCandidate, authorization.ActionCandidateViewActivity), s.ListCandidateActivity)

	// -------- Interview setup --------
	setup := api.Group("/interview/setup")
	{
		setup.POST("", s.authorize(authorization.ObjectInterviewSetup, authorization.ActionSetupConfigure), s.ConfigureInterviewSetup)
		setup.PATCH("/:id", s.authorize(authorization.ObjectInterviewSetup, authorization.ActionSetupConfigure), s.UpdateInterviewSetup)
		setup.GET("/position/:positionId", s.authorize(authorization.ObjectInterviewSetup, authorization.ActionSetupView), s.GetInterviewSetupByPosition)
	}

	// -------- Interview slots --------
	slots := api.Group("/interview/slots")
	{
		slots.POST("/bulk", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotCreate), s.CreateInterviewSlots)
		slots.GET("", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotView), s.ListInterviewSlots)
		slots.POST("/book", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotBook), s.BookingRateLimit(), s.BookInterviewSlot)
		slots.POST("/confirm", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotConfirm), s.ConfirmInterviewSlot)
		slots.POST("/:id/cancel", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotCancel), s.CancelInterviewSlot)
		slots.POST("/:id/feedback", s.authorize(authorization.ObjectInterviewSlot, authorization.ActionSlotFeedback), s.SubmitInterviewFeedback)
	}

	// -------- Pass projections --------
	api.GET("/interview/pass/candidate/:id", s.authorize(authorization.ObjectPass, authorization.ActionPassViewCandidate), s.GetCandidatePassView)
	api.GET("/interview/pass/manager/:positionId", s.authorize(authorization.ObjectPass, authorization.ActionPassViewManager), s.GetManagerPassView)

	// -------- Pass records --------
	api.POST("/passes", s.authorize(authorization.ObjectPass, authorization.ActionPassIssue), s.IssuePass)
	api.GET("/passes", s.authorize(authorization.ObjectPass, authorization.ActionPassList), s.ListPasses)
	api.POST("/passes/:id/revoke", s.authorize(authorization.ObjectPass, authorization.ActionPassRevoke), s.RevokePass)
}

func (s *Server) RegisterPublicRoutes() {
	public := s.engine.Group("/public")
	public.GET("/passes/:token", s.ResolvePublicPass)
	public.GET("/passes/:token/pdf", s.DownloadPublicPassPDF)
}
