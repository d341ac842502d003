package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow-api/domain"
)

// requestBodyLimit bounds how much of a request body handlers will decode.
const requestBodyLimit = 1 << 20

const livenessMessage = "TaskFlow API is up and running"

// Register wires up all API routes on the provided Echo instance. A nil auth
// leaves the API open, matching the original deployment where the identity
// provider is enforced by the frontend only.
func Register(e *echo.Echo, store Storage, auth Authenticator, logger *log.Logger) {
	e.GET("/", liveness())

	g := e.Group("/api")
	if auth != nil {
		g.Use(RequireAuth(auth))
	}
	g.POST("/users", registerUser(store))
	g.GET("/tasks/:email", getTasks(store, logger))
	g.POST("/tasks", createTask(store))
	// Static segment registered ahead of the :id route; Echo would match it
	// first either way, the ordering documents the intent.
	g.PUT("/tasks/update-orders", updateOrders(store))
	g.PUT("/tasks/:id", updateTask(store))
	g.DELETE("/tasks/:id", deleteTask(store))
}

func liveness() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, livenessMessage)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyLimit)
	return sonic.ConfigStd.NewDecoder(lr).Decode(v)
}

func respondValidationError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrMissingFields) {
		return respondMessage(c, http.StatusBadRequest, msgMissingFields)
	}
	return respondMessage(c, http.StatusBadRequest, err.Error())
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskListMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		email := c.Param("email")

		fetchStart := time.Now()
		tasks, fetchErr := store.TasksByOwner(ctx, email)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondStoreError(c, fetchErr)
			return err
		}
		metrics.SetTasksReturned(len(tasks))
		if tasks == nil {
			tasks = []domain.Task{}
		}

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Success: true, Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	OwnerEmail  string `json:"userEmail"`
	OwnerName   string `json:"userName"`
	OwnerPhoto  string `json:"userPhoto"`
	Order       int    `json:"order"`
}

func createTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondMessage(c, http.StatusBadRequest, "Invalid request body")
		}

		task := domain.Task{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			OwnerEmail:  req.OwnerEmail,
			OwnerName:   req.OwnerName,
			OwnerPhoto:  req.OwnerPhoto,
			Order:       req.Order,
		}
		if err := task.Validate(); err != nil {
			return respondValidationError(c, err)
		}

		created, err := store.CreateTask(c.Request().Context(), task)
		if err != nil {
			return respondStoreError(c, err)
		}
		return c.JSON(http.StatusCreated, taskResponse{Success: true, Task: created})
	}
}

func updateTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return respondMessage(c, http.StatusBadRequest, "Invalid request body")
		}
		if err := patch.Validate(); err != nil {
			return respondValidationError(c, err)
		}

		if _, err := store.UpdateTask(c.Request().Context(), c.Param("id"), patch); err != nil {
			return respondStoreError(c, err)
		}
		return respondMessage(c, http.StatusOK, msgTaskUpdated)
	}
}

type updateOrdersRequest struct {
	Updates []domain.OrderUpdate `json:"updates"`
}

func updateOrders(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateOrdersRequest
		if err := decodeBody(c, &req); err != nil {
			return respondMessage(c, http.StatusBadRequest, "Invalid request body")
		}
		if len(req.Updates) == 0 {
			return respondMessage(c, http.StatusBadRequest, msgMissingFields)
		}
		for _, u := range req.Updates {
			if u.TaskID == "" || u.Order < 0 {
				return respondValidationError(c, domain.ValidationError{Field: "updates", Reason: "each entry needs a taskId and a non-negative order"})
			}
		}

		modified, _, err := store.UpdateOrders(c.Request().Context(), req.Updates)
		if err != nil {
			return respondStoreError(c, err)
		}
		return c.JSON(http.StatusOK, bulkResponse{Success: true, Message: msgOrdersUpdated, ModifiedCount: modified})
	}
}

func deleteTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return respondStoreError(c, err)
		}
		return respondMessage(c, http.StatusOK, msgTaskDeleted)
	}
}

func registerUser(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var user domain.User
		if err := decodeBody(c, &user); err != nil {
			return respondMessage(c, http.StatusBadRequest, "Invalid request body")
		}
		if err := user.Validate(); err != nil {
			return respondValidationError(c, err)
		}

		created, err := store.RegisterUser(c.Request().Context(), user)
		if err != nil {
			return respondStoreError(c, err)
		}
		if !created {
			return respondMessage(c, http.StatusOK, msgUserAlreadyKnown)
		}
		return respondMessage(c, http.StatusCreated, msgUserRegistered)
	}
}
