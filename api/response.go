package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskflow-api/domain"
)

// Response messages, part of the wire contract.
const (
	msgMissingFields    = "Missing required fields"
	msgInternalError    = "Internal Server Error"
	msgTaskNotFound     = "Task not found"
	msgTaskUpdated      = "Task updated successfully"
	msgTaskDeleted      = "Task deleted successfully"
	msgOrdersUpdated    = "Task orders updated successfully"
	msgUserRegistered   = "User registered successfully"
	msgUserAlreadyKnown = "User already exists"
)

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type tasksResponse struct {
	Success bool          `json:"success"`
	Tasks   []domain.Task `json:"tasks"`
}

type taskResponse struct {
	Success bool        `json:"success"`
	Task    domain.Task `json:"task"`
}

type bulkResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

func respondMessage(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResponse{Success: status < http.StatusBadRequest, Message: msg})
}

// respondStoreError maps an error from the store onto the response taxonomy:
// not-found markers become 404s, validation errors 400s, and everything else
// a 500 whose detail is logged but never sent to the client.
func respondStoreError(c echo.Context, err error) error {
	var nf NotFoundError
	if errors.As(err, &nf) {
		return respondMessage(c, http.StatusNotFound, msgTaskNotFound)
	}
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return respondMessage(c, http.StatusBadRequest, ve.Error())
	}
	c.Logger().Error(err)
	return respondMessage(c, http.StatusInternalServerError, msgInternalError)
}
