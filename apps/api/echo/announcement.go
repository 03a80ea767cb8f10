package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/announcement"
)

type announcementApi struct {
	svc *announcement.Service
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *announcement.Service) {
	api := announcementApi{svc: svc}

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.list)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *announcementApi) list(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	anns, err := api.svc.List(ctx.Request().Context(), actor, ctx.QueryParam("course_id"))
	if err != nil {
		return errors.Wrap(err, "listing announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	a, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data announcement.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}

	a, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) update(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data announcement.UpdateAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}

	a, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
