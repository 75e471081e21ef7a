package delivery

import (
	"errors"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/gofiber/fiber/v2"

	"siapguru/config"
	"siapguru/domain"
	"siapguru/middleware"
)

type attendanceHandler struct {
	auc domain.AttendanceUseCase
}

type reportRequest struct {
	Date    string         `json:"date" valid:"required~Date is required"`
	ClassID string         `json:"class_id" valid:"required~Class ID is required"`
	Blocks  []domain.Block `json:"blocks"`
}

type commitRequest struct {
	Records []domain.AttendanceRecord `json:"records"`
}

func NewAttendanceDelivery(app *fiber.App, uc domain.AttendanceUseCase) {
	handler := &attendanceHandler{
		auc: uc,
	}

	anyRole := []fiber.Handler{middleware.AuthRequired(), middleware.RoleRequired(domain.RoleAdmin, domain.RoleReporter)}
	adminOnly := []fiber.Handler{middleware.AuthRequired(), middleware.RoleRequired(domain.RoleAdmin)}

	route := app.Group("/attendance")
	route.Get("/obligations", append(anyRole, handler.GetObligationsForClass)...)
	route.Get("/blocks", append(anyRole, handler.GetBlocksForClass)...)
	route.Get("/teachers/:id/obligations", append(adminOnly, handler.GetObligationsForTeacher)...)
	route.Get("/records", append(adminOnly, handler.GetRecords)...)
	route.Get("/status", append(anyRole, handler.GetStatus)...)
	route.Post("/reports", append(anyRole, handler.SubmitReport)...)
	route.Post("/permits", append(adminOnly, handler.ApplyPermit)...)
	route.Post("/commit", append(adminOnly, handler.Commit)...)
	route.Post("/pull", append(anyRole, handler.Pull)...)
	route.Put("/config/:kind", append(adminOnly, handler.UpdateConfig)...)
}

func (ah *attendanceHandler) GetObligationsForClass(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)
	classID := c.Query("class")
	if !canAccessClass(userToken, classID) {
		return ah.forbidden(c, userToken, "GetObligationsForClass")
	}

	data, err := ah.auc.GetObligationsForClass(c.Context(), c.Query("date"), classID)
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to resolve obligations", "GetObligationsForClass")
	}
	return ah.ok(c, userToken, data, "Obligations retrieved successfully", "GetObligationsForClass")
}

func (ah *attendanceHandler) GetObligationsForTeacher(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	data, err := ah.auc.GetObligationsForTeacher(c.Context(), c.Query("date"), c.Params("id"))
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to resolve obligations", "GetObligationsForTeacher")
	}
	return ah.ok(c, userToken, data, "Obligations retrieved successfully", "GetObligationsForTeacher")
}

func (ah *attendanceHandler) GetBlocksForClass(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)
	classID := c.Query("class")
	if !canAccessClass(userToken, classID) {
		return ah.forbidden(c, userToken, "GetBlocksForClass")
	}

	data, err := ah.auc.GetBlocksForClass(c.Context(), c.Query("date"), classID)
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to build attendance blocks", "GetBlocksForClass")
	}
	return ah.ok(c, userToken, data, "Blocks retrieved successfully", "GetBlocksForClass")
}

func (ah *attendanceHandler) GetRecords(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	data := ah.auc.Records(domain.RecordFilter{
		Date:      c.Query("date"),
		ClassID:   c.Query("class"),
		TeacherID: c.Query("teacher"),
	})
	return ah.ok(c, userToken, data, "Records retrieved successfully", "GetRecords")
}

func (ah *attendanceHandler) GetStatus(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)
	return ah.ok(c, userToken, ah.auc.Status(), "Status retrieved successfully", "GetStatus")
}

func (ah *attendanceHandler) SubmitReport(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	var req reportRequest
	if err := c.BodyParser(&req); err != nil {
		return ah.badRequest(c, userToken, err, "SubmitReport")
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		return ah.badRequest(c, userToken, err, "SubmitReport")
	}
	if !canAccessClass(userToken, req.ClassID) {
		return ah.forbidden(c, userToken, "SubmitReport")
	}

	data, err := ah.auc.SubmitBlocks(c.Context(), req.Date, req.ClassID, req.Blocks)
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to submit attendance", "SubmitReport")
	}
	return ah.ok(c, userToken, data, "Attendance submitted", "SubmitReport")
}

func (ah *attendanceHandler) ApplyPermit(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	var req domain.PermitRequest
	if err := c.BodyParser(&req); err != nil {
		return ah.badRequest(c, userToken, err, "ApplyPermit")
	}

	data, err := ah.auc.ApplyPermit(c.Context(), req)
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to apply permit", "ApplyPermit")
	}
	return ah.ok(c, userToken, data, "Permit applied", "ApplyPermit")
}

func (ah *attendanceHandler) Commit(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	var req commitRequest
	if err := c.BodyParser(&req); err != nil {
		return ah.badRequest(c, userToken, err, "Commit")
	}

	data, err := ah.auc.Commit(c.Context(), req.Records, domain.OriginAdmin)
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to save records", "Commit")
	}
	return ah.ok(c, userToken, data, "Records saved", "Commit")
}

func (ah *attendanceHandler) Pull(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)
	return ah.ok(c, userToken, ah.auc.Pull(c.Context()), "Pull finished", "Pull")
}

func (ah *attendanceHandler) UpdateConfig(c *fiber.Ctx) error {
	userToken, _ := c.Locals("user").(*domain.Claims)

	var (
		data *domain.Connectivity
		err  error
	)
	switch domain.ConfigKind(c.Params("kind")) {
	case domain.ConfigTeachers:
		var teachers []domain.Teacher
		if err := c.BodyParser(&teachers); err != nil {
			return ah.badRequest(c, userToken, err, "UpdateConfig")
		}
		data, err = ah.auc.UpdateTeachers(c.Context(), teachers)
	case domain.ConfigTimetable:
		var slots []domain.TimetableSlot
		if err := c.BodyParser(&slots); err != nil {
			return ah.badRequest(c, userToken, err, "UpdateConfig")
		}
		data, err = ah.auc.UpdateTimetable(c.Context(), slots)
	case domain.ConfigSettings:
		var settings domain.Settings
		if err := c.BodyParser(&settings); err != nil {
			return ah.badRequest(c, userToken, err, "UpdateConfig")
		}
		data, err = ah.auc.UpdateSettings(c.Context(), settings)
	default:
		err = domain.ErrUnknownConfigKind
	}
	if err != nil {
		return ah.fail(c, userToken, err, "Failed to update configuration", "UpdateConfig")
	}
	return ah.ok(c, userToken, data, "Configuration updated", "UpdateConfig")
}

// canAccessClass limits reporters bound to a class to that class.
func canAccessClass(claims *domain.Claims, classID string) bool {
	if claims == nil || claims.Role != domain.RoleReporter || claims.ClassID == "" {
		return true
	}
	return strings.EqualFold(claims.ClassID, classID)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidPermit),
		errors.Is(err, domain.ErrInvalidRecord),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrMissingScope):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownConfigKind):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrEmptyCascadeTarget):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func username(claims *domain.Claims) *string {
	if claims == nil {
		return nil
	}
	return &claims.Username
}

func (ah *attendanceHandler) ok(c *fiber.Ctx, claims *domain.Claims, data interface{}, message, fn string) error {
	config.PrintLogInfo(username(claims), fiber.StatusOK, fn)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (ah *attendanceHandler) fail(c *fiber.Ctx, claims *domain.Claims, err error, message, fn string) error {
	code := statusFor(err)
	config.PrintLogInfo(username(claims), code, fn)
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
		"error":   err.Error(),
		"data":    nil,
	})
}

func (ah *attendanceHandler) badRequest(c *fiber.Ctx, claims *domain.Claims, err error, fn string) error {
	config.PrintLogInfo(username(claims), fiber.StatusBadRequest, fn)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Invalid request body",
		"error":   err.Error(),
		"data":    nil,
	})
}

func (ah *attendanceHandler) forbidden(c *fiber.Ctx, claims *domain.Claims, fn string) error {
	config.PrintLogInfo(username(claims), fiber.StatusForbidden, fn)
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"success": false,
		"message": "You can only report for your own class",
		"data":    nil,
	})
}
