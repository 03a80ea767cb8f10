package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/grade"
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grade.Service) {
	api := gradeApi{svc: svc}
	staff := roleMiddleware(account.RoleTeacher, account.RoleAdmin)

	gg := g.Group("/grades", jwt)
	gg.GET("/student/:id", api.forStudent)
	gg.GET("/course/:id", api.forCourse, staff)
	gg.POST("/encode", api.encode, staff)
}

func (api *gradeApi) forStudent(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	records, err := api.svc.ForStudent(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student grades")
	}
	if records == nil {
		records = []grade.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradeApi) forCourse(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	records, err := api.svc.ForCourse(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course grades")
	}
	if records == nil {
		records = []grade.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradeApi) encode(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data grade.Encode
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Encode")
	}

	rec, err := api.svc.Encode(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "encoding grade")
	}
	return ctx.JSON(http.StatusOK, rec)
}
