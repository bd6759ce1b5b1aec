package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ImpVol/internal/domain/models"
	domrepo "ImpVol/internal/domain/repository"
	domsvc "ImpVol/internal/domain/service"
	svcmetrics "ImpVol/internal/service/metrics"
	"ImpVol/internal/services/ivsolver"
	"ImpVol/internal/usecase"
	xhttp "ImpVol/pkg/http"
	xlogger "ImpVol/pkg/logger"
	"ImpVol/pkg/util"
)

const historyLookback = 24 * time.Hour

// IVHandler serves pricing and implied volatility over HTTP.
type IVHandler struct {
	logger *xlogger.Logger
	calc   domsvc.Calculator
	chain  domsvc.ChainSolver
	store  domrepo.IVStorage // nil when no ClickHouse backend is configured
	cfg    models.SolverConfig
	now    func() time.Time
}

func NewIVHandler(logger *xlogger.Logger, calc domsvc.Calculator, chain domsvc.ChainSolver, store domrepo.IVStorage, cfg models.SolverConfig) *IVHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &IVHandler{logger: logger, calc: calc, chain: chain, store: store, cfg: cfg, now: time.Now}
}

func (h *IVHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/price", h.Price)
	g.POST("/price", h.Price)
	g.POST("/iv", h.ImpliedVol)
	g.POST("/iv/chain", h.Chain)
	g.GET("/iv/history", h.History)
}

func observe(endpoint string, start time.Time) {
	svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *IVHandler) fail(c echo.Context, endpoint string, err error) error {
	svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
	appErr := xhttp.DomainErrorToApp(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *IVHandler) badRequest(c echo.Context, endpoint string, data interface{}) error {
	svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
	return xhttp.BadRequestResponse(c, data)
}

func (h *IVHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("store unavailable").WithError(err))
		}
		status["store"] = "ok"
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *IVHandler) Price(c echo.Context) error {
	const endpoint = "price"
	defer observe(endpoint, time.Now())

	req := &models.PriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	typ, err := models.ParseOptionType(req.Type)
	if err != nil {
		return h.fail(c, endpoint, xhttp.BadRequestError(err.Error()))
	}
	in := models.ContractInputs{
		Spot:          req.Spot,
		Strike:        req.Strike,
		TimeToExpiry:  req.TimeToExpiry,
		Rate:          req.Rate,
		DividendYield: req.DividendYield,
		Type:          typ,
	}.WithVolatility(req.Volatility)

	res, err := h.calc.Price(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

type ivResponse struct {
	models.IVResult
	TimeToExpiry float64 `json:"time_to_expiry"`
}

func (h *IVHandler) ImpliedVol(c echo.Context) error {
	const endpoint = "iv"
	defer observe(endpoint, time.Now())

	req := &models.IVRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	typ, err := models.ParseOptionType(req.Type)
	if err != nil {
		return h.fail(c, endpoint, xhttp.BadRequestError(err.Error()))
	}

	tte := req.TimeToExpiry
	switch {
	case tte > 0 && req.Expiry != "":
		return h.fail(c, endpoint, xhttp.BadRequestError("give either time_to_expiry or expiry, not both"))
	case req.Expiry != "":
		observed := util.ParseTimeDefault(req.AsOf, h.now())
		if tte, err = util.TimeToExpiry(req.Expiry, observed); err != nil {
			return h.fail(c, endpoint, xhttp.BadRequestError(err.Error()))
		}
	case tte == 0:
		return h.fail(c, endpoint, xhttp.BadRequestError("time_to_expiry or expiry is required"))
	}

	cfg := req.Solver.Apply(h.cfg)
	if err := ivsolver.ValidateConfig(cfg); err != nil {
		return h.fail(c, endpoint, xhttp.BadRequestError(err.Error()))
	}

	in := models.ContractInputs{
		Spot:          req.Spot,
		Strike:        req.Strike,
		TimeToExpiry:  tte,
		Rate:          req.Rate,
		DividendYield: req.DividendYield,
		Type:          typ,
	}
	res, err := h.calc.Solve(c.Request().Context(), req.MarketPrice, in, cfg)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, ivResponse{IVResult: res, TimeToExpiry: tte})
}

type chainResponse struct {
	Records []*models.IVRecord         `json:"records"`
	Summary map[models.SolveStatus]int `json:"summary"`
}

func (h *IVHandler) Chain(c echo.Context) error {
	const endpoint = "iv_chain"
	defer observe(endpoint, time.Now())

	req := &models.ChainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	cfg := req.Solver.Apply(h.cfg)
	if err := ivsolver.ValidateConfig(cfg); err != nil {
		return h.fail(c, endpoint, xhttp.BadRequestError(err.Error()))
	}
	observed := util.ParseTimeDefault(req.AsOf, h.now())

	recs, err := h.chain.SolveChain(c.Request().Context(), req.Quotes, observed, cfg)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	if !req.Greeks {
		for _, r := range recs {
			r.Greeks = nil
		}
	}
	return xhttp.SuccessResponse(c, chainResponse{Records: recs, Summary: usecase.Summarize(recs)})
}

func (h *IVHandler) History(c echo.Context) error {
	const endpoint = "iv_history"
	defer observe(endpoint, time.Now())

	if h.store == nil {
		return h.fail(c, endpoint, xhttp.ServiceUnavailableError("iv history requires the clickhouse backend"))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	var from, to time.Time
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return h.fail(c, endpoint, xhttp.BadRequestErrorf("from: cannot parse %q", req.From))
		}
		from = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return h.fail(c, endpoint, xhttp.BadRequestErrorf("to: cannot parse %q", req.To))
		}
		to = t
	}
	from, to = util.AlignFromTo(from, to, historyLookback)

	recs, err := h.store.History(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, recs, len(recs))
}

var _ xhttp.Handler = (*IVHandler)(nil)
