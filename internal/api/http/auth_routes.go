package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/agro-insight/internal/auth"
)

const (
	localUser  = "user"
	localToken = "token"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func registerAuthRoutes(r fiber.Router, svc *auth.Service) {
	r.Get("/profiles", func(c *fiber.Ctx) error {
		return c.JSON(auth.Profiles())
	})

	r.Post("/register", func(c *fiber.Ctx) error {
		var reg auth.Registration
		if err := c.BodyParser(&reg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := svc.Register(reg)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "user registered",
			"session": sess,
		})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sess, err := svc.Login(req.Email, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "logged in",
			"session": sess,
		})
	})

	guard := requireAuth(svc)

	r.Get("/me", guard, func(c *fiber.Ctx) error {
		return c.JSON(currentUser(c))
	})

	r.Get("/dashboard-config", guard, func(c *fiber.Ctx) error {
		u := currentUser(c)
		return c.JSON(fiber.Map{
			"user":      u,
			"dashboard": auth.DashboardFor(u.Profile),
		})
	})

	r.Get("/validate-token", guard, func(c *fiber.Ctx) error {
		u := currentUser(c)
		return c.JSON(fiber.Map{
			"valid":            true,
			"user":             u,
			"dashboard_config": auth.DashboardFor(u.Profile),
		})
	})

	r.Post("/logout", guard, func(c *fiber.Ctx) error {
		if err := svc.Logout(c.Locals(localToken).(string)); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "logged out"})
	})
}

// requireAuth rejects requests without a valid bearer token and stores the caller in Locals.
func requireAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		token = strings.TrimSpace(token)

		user, _, err := svc.Authenticate(token)
		if err != nil {
			return err
		}
		c.Locals(localUser, user)
		c.Locals(localToken, token)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) auth.User {
	u, _ := c.Locals(localUser).(auth.User)
	return u
}
