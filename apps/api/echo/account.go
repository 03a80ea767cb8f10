package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/course"
)

type authApi struct {
	conf     *core.Config
	svc      *account.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *account.Service, validate *validator.Validate) {
	api := authApi{conf: conf, svc: svc, validate: validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.POST("/change-password", api.changePassword, jwt)
	ag.GET("/me", api.me, jwt)
	ag.PUT("/profile", api.updateProfile, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := authenticate(ctx, api.svc, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Account: &acc})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *authApi) changePassword(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data account.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	acc, err := api.svc.ChangePassword(ctx.Request().Context(), actor, actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *authApi) updateProfile(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data account.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	acc, err := api.svc.UpdateProfile(ctx.Request().Context(), actor, actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, acc)
}

type adminApi struct {
	svc       *account.Service
	courseSvc *course.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *account.Service, courseSvc *course.Service) {
	api := adminApi{svc: svc, courseSvc: courseSvc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.POST("/create-student", api.createStudent)
	ag.POST("/create-teacher", api.createTeacher)
	ag.GET("/students", api.queryRole(account.RoleStudent))
	ag.GET("/teachers", api.queryRole(account.RoleTeacher))
	ag.PUT("/deactivate/:id", api.setActive(false))
	ag.PUT("/activate/:id", api.setActive(true))
	ag.POST("/reset-password/:id", api.resetPassword)
	ag.POST("/enroll-student", api.enrollStudent)
}

func (api *adminApi) createStudent(ctx echo.Context) error {
	return api.create(ctx, api.svc.CreateStudent)
}

func (api *adminApi) createTeacher(ctx echo.Context) error {
	return api.create(ctx, api.svc.CreateTeacher)
}

type provisionFunc func(ctx context.Context, actor account.Actor, na account.NewAccount) (account.Provisioned, error)

func (api *adminApi) create(ctx echo.Context, provision provisionFunc) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data account.NewAccount
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	prov, err := provision(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, prov)
}

func (api *adminApi) queryRole(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		isActive, err := queryBool(ctx, "is_active")
		if err != nil {
			return err
		}
		filter := account.QueryFilter{Role: role, Search: ctx.QueryParam("search"), IsActive: isActive}

		accounts, err := api.svc.Query(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying accounts")
		}
		if accounts == nil {
			accounts = []account.Account{}
		}
		return ctx.JSON(http.StatusOK, accounts)
	}
}

func (api *adminApi) setActive(active bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting actor")
		}

		acc, err := api.svc.SetActive(ctx.Request().Context(), actor, ctx.Param("id"), active)
		if err != nil {
			return errors.Wrap(err, "setting account status")
		}
		return ctx.JSON(http.StatusOK, acc)
	}
}

func (api *adminApi) resetPassword(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	prov, err := api.svc.ResetPassword(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, prov)
}

func (api *adminApi) enrollStudent(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting actor")
	}
	var data course.Enrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enrollment")
	}

	c, err := api.courseSvc.Enroll(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, c)
}
