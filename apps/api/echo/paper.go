package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core/audit"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
)

type paperApi struct {
	svc        paper.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerPaperAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paperApi{
		svc:        deps.PaperSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	pg := g.Group("/papers", jwt)

	pg.POST("", api.create, staffMiddleware(user.RoleSetter))
	pg.GET("", api.query, staffMiddleware())

	// manual sweep triggers, ahead of the in-process workers' next tick
	pg.POST("/sweep-due", api.sweepDue, adminMiddleware())
	pg.POST("/sweep-expired", api.sweepExpired, adminMiddleware())

	// detail endpoints
	dg := pg.Group("/:id")
	dg.GET("", api.retrieve, staffMiddleware())
	dg.GET("/audit", api.auditTrail, staffMiddleware(user.RoleChiefExaminer))
	dg.POST("/transition", api.transition, staffMiddleware())
	// any authenticated holder of the credential may unlock
	dg.POST("/unlock", api.unlock)
	dg.POST("/relock", api.relock, staffMiddleware(user.RoleChiefExaminer))
}

// Handlers

func (api *paperApi) create(ctx echo.Context) error {
	var data paper.NewPaper
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaper")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating paper")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paperApi) query(ctx echo.Context) error {
	filter := new(paper.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []paper.Paper{})
	}

	papers, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying papers")
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return ctx.JSON(http.StatusOK, papers)
}

func (api *paperApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paperApi) auditTrail(ctx echo.Context) error {
	records, err := api.svc.AuditTrail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if records == nil {
		records = []audit.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *paperApi) transition(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.Transition(
		ctx.Request().Context(), ctx.Param("id"), claims.Roles, paper.Status(data.Target), data.PrintingDueAt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paperApi) unlock(ctx echo.Context) error {
	var data UnlockRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnlockRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	window := time.Duration(data.WindowMinutes) * time.Minute
	p, err := api.svc.ConsumeCredential(
		ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Credential, window)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paperApi) sweepDue(ctx echo.Context) error {
	issued, err := api.svc.SweepDueCredentials(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "sweeping due papers")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"issued": issued})
}

func (api *paperApi) sweepExpired(ctx echo.Context) error {
	relocked, err := api.svc.SweepExpiredUnlocks(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "sweeping expired unlocks")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"relocked": relocked})
}

func (api *paperApi) relock(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.ManualRelock(ctx.Request().Context(), ctx.Param("id"), claims.Subject, claims.Roles)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
