package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/selectors"
	"raffleworker/internal/storage"
	"raffleworker/internal/tracker"
	"raffleworker/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultReadTimeout     = 15 * time.Second
)

// Server exposes the aggregate builder and the selectors over HTTP. Every request runs a fresh build.
type Server struct {
	logger        *zap.Logger
	worker        *worker.Worker
	oracleAddress string
	exporter      storage.Storage
	gatherer      prometheus.Gatherer
	now           func() time.Time

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

// WithExporter writes every successful build to exporter.
func WithExporter(exporter storage.Storage) Option {
	return func(s *Server) {
		s.exporter = exporter
	}
}

// WithGatherer serves gatherer on /metrics instead of the default registry.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates the server. oracleAddress is used when a request does not name an oracle.
func NewServer(address string, logger *zap.Logger, w *worker.Worker, oracleAddress string, options ...Option) *Server {
	s := &Server{
		logger:        logger,
		worker:        w,
		oracleAddress: oracleAddress,
		gatherer:      prometheus.DefaultGatherer,
		now:           time.Now,
		router:        chi.NewRouter(),
	}

	for _, option := range options {
		option(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        address,
		Handler:     s.router,
		ReadTimeout: defaultReadTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/blockchain", s.handleBlockchainData)
		r.Get("/raffles/launched", s.handleLaunchedRaffles)
		r.Get("/raffles/completed", s.handleCompletedRaffles)
		r.Get("/raffles/registered", s.handleUserRaffles)
		r.Get("/raffles/{address}", s.handleRaffle)
		r.Get("/raffles/{address}/state", s.handleRaffleState)
	})
}

// Router returns the underlying chi router (for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped gracefully")
	return nil
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: s.now().Format(time.RFC3339),
	})
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// requestError carries the status a failed build maps to.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string {
	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

// build runs one aggregate build for the request's oracle and user.
func (s *Server) build(r *http.Request) (*blockchain.BlockchainData, error) {
	oracleAddress := r.URL.Query().Get("oracle")
	if oracleAddress == "" {
		oracleAddress = s.oracleAddress
	}
	if _, err := ton.ParseAccountID(oracleAddress); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, err: fmt.Errorf("invalid oracle address %q", oracleAddress)}
	}

	userAddress := r.URL.Query().Get("user")
	if _, err := ton.ParseAccountID(userAddress); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, err: fmt.Errorf("invalid user address %q", userAddress)}
	}

	task := s.worker.Submit(r.Context(), oracleAddress, userAddress)
	data, err := task.Wait(r.Context())
	if err != nil {
		return nil, s.buildError(err)
	}

	s.export(r.Context(), oracleAddress, userAddress, data)
	return data, nil
}

func (s *Server) buildError(err error) error {
	switch {
	case errors.Is(err, worker.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &requestError{status: http.StatusServiceUnavailable, err: err}
	case errors.Is(err, worker.ErrClosed):
		return &requestError{status: http.StatusServiceUnavailable, err: err}
	case errors.Is(err, tracker.ErrNotDeployed):
		return &requestError{status: http.StatusNotFound, err: err}
	default:
		return &requestError{status: http.StatusBadGateway, err: err}
	}
}

func (s *Server) export(ctx context.Context, oracleAddress string, userAddress string, data *blockchain.BlockchainData) {
	if s.exporter == nil {
		return
	}

	exportID, err := s.exporter.ExportBlockchainData(ctx, storage.Snapshot{
		OracleAddress: oracleAddress,
		UserAddress:   userAddress,
		Data:          data,
	})
	if err != nil {
		s.logger.Warn("export failed", zap.Error(err))
		return
	}

	s.logger.Debug("exported", zap.Int64("export id", exportID))
}

func (s *Server) handleBlockchainData(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleLaunchedRaffles(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, selectors.SelectLaunchedRafflesData(data))
}

func (s *Server) handleCompletedRaffles(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, selectors.SelectCompletedRafflesData(data))
}

func (s *Server) handleUserRaffles(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, selectors.SelectUserRaffles(data))
}

func (s *Server) handleRaffle(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	raffle, ok := selectors.SelectRaffle(data, chi.URLParam(r, "address"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "raffle not found"})
		return
	}

	writeJSON(w, http.StatusOK, raffle)
}

type RaffleStateResponse struct {
	Address          string                        `json:"address"`
	DisplayAddress   string                        `json:"displayAddress"`
	State            selectors.RaffleState         `json:"state"`
	Route            string                        `json:"route"`
	ProgressStep     *selectors.RaffleProgressStep `json:"progressStep,omitempty"`
	RemainingSeconds int64                         `json:"remainingSeconds"`
}

func (s *Server) handleRaffleState(w http.ResponseWriter, r *http.Request) {
	data, err := s.build(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	address := chi.URLParam(r, "address")
	raffle, ok := selectors.SelectRaffle(data, address)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "raffle not found"})
		return
	}

	now := s.now()
	state := selectors.RaffleStateOf(raffle, now)
	response := RaffleStateResponse{
		Address:          raffle.RaffleData.Address,
		DisplayAddress:   displayAddress(raffle.RaffleData.Address),
		State:            state,
		Route:            fmt.Sprintf("/raffles/%s/%s", address, state),
		RemainingSeconds: selectors.SelectRaffleRemainingSeconds(raffle, now),
	}
	if step, ok := selectors.SelectRaffleProgressStep(state); ok {
		response.ProgressStep = &step
	}

	writeJSON(w, http.StatusOK, response)
}

// displayAddress shortens the user-friendly form of address. Unparsable addresses are returned as is.
func displayAddress(address string) string {
	accountID, err := ton.ParseAccountID(address)
	if err != nil {
		return address
	}

	return selectors.TruncateAddress(accountID.ToHuman(true, false))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		status = reqErr.status
	}

	s.logger.Warn("request failed",
		zap.String("request id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(startedAt)),
				zap.String("request id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
