package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/payment"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *payment.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments", jwt)
	pg.GET("/balance/:studentId", api.balance)
	pg.GET("/records/:studentId", api.forStudent)
	pg.GET("", api.query, adminMiddleware())
	pg.POST("", api.create, adminMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, adminMiddleware())
}

func (api *paymentApi) balance(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	sum, err := api.svc.Balance(ctx.Request().Context(), actor, ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "computing balance")
	}
	return ctx.JSON(http.StatusOK, sum.View())
}

func (api *paymentApi) forStudent(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	records, err := api.svc.ForStudent(ctx.Request().Context(), actor, ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "querying student payments")
	}
	if records == nil {
		records = []payment.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	rec, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding payment record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *paymentApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	term, err := queryInt(ctx, "term")
	if err != nil {
		return err
	}
	filter := payment.QueryFilter{
		StudentID:    ctx.QueryParam("student_id"),
		Term:         term,
		AcademicYear: ctx.QueryParam("academic_year"),
		Status:       payment.Status(ctx.QueryParam("status")),
	}

	records, err := api.svc.Query(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if records == nil {
		records = []payment.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *paymentApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data payment.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}

	rec, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating payment record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *paymentApi) update(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data payment.Update
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Update")
	}

	rec, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating payment record")
	}
	return ctx.JSON(http.StatusOK, rec)
}
