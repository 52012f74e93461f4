package server

import (
	"context"
	nethttp "net/http"
	"strconv"

	"RatePilot/internal/conf"
	"RatePilot/internal/server/middleware"
	"RatePilot/internal/service"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, pricing *service.PricingService, sync *service.SyncService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Auth(logger),
			middleware.Logging(logger),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, pricing, sync)

	return srv
}

// registerRoutes wires the console's HTTP API onto the server.
func registerRoutes(srv *http.Server, pricing *service.PricingService, sync *service.SyncService) {
	r := srv.Route("/v1")

	r.GET("/properties/{id}/calendar", getCalendar(pricing))
	r.GET("/properties/{id}/price", getPrice(pricing))
	r.GET("/properties/{id}/overrides", listOverrides(pricing))
	r.PUT("/properties/{id}/overrides", setOverride(pricing))
	r.DELETE("/properties/{id}/overrides/{date}", removeOverride(pricing))
	r.POST("/properties/{id}/sync", syncProperty(sync))
	r.GET("/properties/{id}/sync-history", listSyncHistory(sync))
	r.POST("/sync/batch", batchSync(sync))
	r.GET("/admin/breakers", listBreakers(sync))
	r.POST("/admin/breakers/{target}/reset", resetBreaker(sync))
}

// pathID parses the {id} path variable.
func pathID(ctx http.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Vars().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "invalid property id")
	}
	return id, nil
}

func getCalendar(svc *service.PricingService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		q := ctx.Query()
		req := &service.GetCalendarRequest{
			PropertyID: id,
			StartDate:  q.Get("start_date"),
			EndDate:    q.Get("end_date"),
		}
		if nights := q.Get("nights"); nights != "" {
			n, err := strconv.Atoi(nights)
			if err != nil || n < 1 {
				return kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "invalid nights")
			}
			req.Nights = n
		}
		if v := q.Get("include_seasonal_rates"); v != "" {
			b := v != "false"
			req.IncludeSeasonalRates = &b
		}
		if v := q.Get("include_discount_strategies"); v != "" {
			b := v != "false"
			req.IncludeDiscountStrategies = &b
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetCalendar(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func getPrice(svc *service.PricingService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		q := ctx.Query()
		req := &service.GetPriceRequest{
			PropertyID: id,
			Date:       q.Get("date"),
		}
		if nights := q.Get("nights"); nights != "" {
			n, err := strconv.Atoi(nights)
			if err != nil || n < 1 {
				return kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "invalid nights")
			}
			req.Nights = n
		}
		if v := q.Get("include_seasonal_rates"); v != "" {
			b := v != "false"
			req.IncludeSeasonalRates = &b
		}
		if v := q.Get("include_discount_strategies"); v != "" {
			b := v != "false"
			req.IncludeDiscountStrategies = &b
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetPrice(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func listOverrides(svc *service.PricingService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		q := ctx.Query()
		req := &service.ListOverridesRequest{
			PropertyID: id,
			StartDate:  q.Get("start_date"),
			EndDate:    q.Get("end_date"),
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListOverrides(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func setOverride(svc *service.PricingService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		req := &service.SetOverrideRequest{}
		if err := ctx.Bind(req); err != nil {
			return kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		req.PropertyID = id

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.SetOverride(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func removeOverride(svc *service.PricingService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		req := &service.RemoveOverrideRequest{
			PropertyID: id,
			Date:       ctx.Vars().Get("date"),
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.RemoveOverride(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func syncProperty(svc *service.SyncService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		req := &service.SyncPropertyRequest{}
		// Body is optional; an empty body syncs the default horizon.
		_ = ctx.Bind(req)
		req.PropertyID = id

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.SyncProperty(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func listSyncHistory(svc *service.SyncService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		req := &service.ListSyncHistoryRequest{PropertyID: id}
		if limit := ctx.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 1 {
				return kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "invalid limit")
			}
			req.Limit = n
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListSyncHistory(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func batchSync(svc *service.SyncService) http.HandlerFunc {
	return func(ctx http.Context) error {
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.BatchSync(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func listBreakers(svc *service.SyncService) http.HandlerFunc {
	return func(ctx http.Context) error {
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListBreakers(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func resetBreaker(svc *service.SyncService) http.HandlerFunc {
	return func(ctx http.Context) error {
		req := &service.ResetBreakerRequest{Target: ctx.Vars().Get("target")}
		if req.Target == "" {
			return kratoserrors.New(nethttp.StatusBadRequest, "VALIDATION", "target is required")
		}

		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ResetBreaker(ctx, req)
		})
		out, err := h(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}
