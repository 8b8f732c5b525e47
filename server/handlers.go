package main

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/service"
)

type handlers struct {
	svc *service.Service
}

type nameBody struct {
	Name string `json:"name"`
}

type taskBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type taskPatchBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// positionBody names the new neighbors of a node. Empty strings count as
// absent.
type positionBody struct {
	PreviousID *string `json:"previous_id"`
	NextID     *string `json:"next_id"`
}

func (b positionBody) ends() (prev, next *string) {
	if b.PreviousID != nil {
		prev = tracker.StringPtr(*b.PreviousID)
	}
	if b.NextID != nil {
		next = tracker.StringPtr(*b.NextID)
	}
	return prev, next
}

func (h *handlers) register(r fiber.Router) {
	// ── Boards ────────────────────────────────────────────────────────
	r.Get("/boards", h.listBoards)
	r.Post("/boards", h.createBoard)
	r.Patch("/boards/:id", h.renameBoard)
	r.Delete("/boards/:id", h.deleteBoard)

	// ── Task states ───────────────────────────────────────────────────
	r.Get("/boards/:id/task-states", h.listTaskStates)
	r.Post("/boards/:id/task-states", h.createTaskState)
	r.Patch("/task-states/:id", h.renameTaskState)
	r.Delete("/task-states/:id", h.deleteTaskState)
	r.Patch("/task-states/:id/position", h.moveTaskState)

	// ── Tasks ─────────────────────────────────────────────────────────
	r.Get("/task-states/:id/tasks", h.listTasks)
	r.Post("/task-states/:id/tasks", h.createTask)
	r.Patch("/tasks/:id", h.updateTask)
	r.Delete("/tasks/:id", h.deleteTask)
	r.Patch("/tasks/:id/position", h.moveTask)
}

func bind(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	return nil
}

// deleteAll is true only for an explicit delete_all=true.
func deleteAll(c fiber.Ctx) bool {
	return c.Query("delete_all") == "true"
}

func answer(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"answer": true})
}

func (h *handlers) listBoards(c fiber.Ctx) error {
	boards, err := h.svc.ListBoards(c.Context(), ownerOf(c), c.Query("prefix_name"))
	if err != nil {
		return err
	}
	return c.JSON(boards)
}

func (h *handlers) createBoard(c fiber.Ctx) error {
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	b, err := h.svc.CreateBoard(c.Context(), ownerOf(c), body.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *handlers) renameBoard(c fiber.Ctx) error {
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	b, err := h.svc.RenameBoard(c.Context(), ownerOf(c), c.Params("id"), body.Name)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *handlers) deleteBoard(c fiber.Ctx) error {
	if err := h.svc.DeleteBoard(c.Context(), ownerOf(c), c.Params("id")); err != nil {
		return err
	}
	return answer(c)
}

func (h *handlers) listTaskStates(c fiber.Ctx) error {
	states, err := h.svc.ListTaskStates(c.Context(), ownerOf(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(states)
}

func (h *handlers) createTaskState(c fiber.Ctx) error {
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	st, err := h.svc.CreateTaskState(c.Context(), ownerOf(c), c.Params("id"), body.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

func (h *handlers) renameTaskState(c fiber.Ctx) error {
	var body nameBody
	if err := bind(c, &body); err != nil {
		return err
	}
	st, err := h.svc.RenameTaskState(c.Context(), ownerOf(c), c.Params("id"), body.Name)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *handlers) deleteTaskState(c fiber.Ctx) error {
	if err := h.svc.DeleteTaskState(c.Context(), ownerOf(c), c.Params("id"), deleteAll(c)); err != nil {
		return err
	}
	return answer(c)
}

func (h *handlers) moveTaskState(c fiber.Ctx) error {
	var body positionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	prev, next := body.ends()
	st, err := h.svc.MoveTaskState(c.Context(), ownerOf(c), c.Params("id"), prev, next)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *handlers) listTasks(c fiber.Ctx) error {
	tasks, err := h.svc.ListTasks(c.Context(), ownerOf(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (h *handlers) createTask(c fiber.Ctx) error {
	var body taskBody
	if err := bind(c, &body); err != nil {
		return err
	}
	task, err := h.svc.CreateTask(c.Context(), ownerOf(c), c.Params("id"), body.Name, body.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *handlers) updateTask(c fiber.Ctx) error {
	var body taskPatchBody
	if err := bind(c, &body); err != nil {
		return err
	}
	task, err := h.svc.UpdateTask(c.Context(), ownerOf(c), c.Params("id"), service.TaskPatch{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *handlers) deleteTask(c fiber.Ctx) error {
	if err := h.svc.DeleteTask(c.Context(), ownerOf(c), c.Params("id"), deleteAll(c)); err != nil {
		return err
	}
	return answer(c)
}

func (h *handlers) moveTask(c fiber.Ctx) error {
	var body positionBody
	if err := bind(c, &body); err != nil {
		return err
	}
	prev, next := body.ends()
	task, err := h.svc.MoveTask(c.Context(), ownerOf(c), c.Params("id"), prev, next)
	if err != nil {
		return err
	}
	return c.JSON(task)
}
