package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.POST("/assign-teacher", api.assignTeacher, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
}

func (api *courseApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	term, err := queryInt(ctx, "term")
	if err != nil {
		return err
	}
	filter := course.QueryFilter{
		Term:      term,
		TeacherID: ctx.QueryParam("teacher_id"),
		StudentID: ctx.QueryParam("student_id"),
	}

	courses, err := api.svc.Query(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	c, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	c, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) assignTeacher(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data course.AssignTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacher")
	}

	c, err := api.svc.AssignTeacher(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusOK, c)
}
