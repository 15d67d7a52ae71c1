package main

import (
	"net/http"

	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/validation"
	"campus-maintenance-system/services/report-service/maintenance"
	"campus-maintenance-system/services/report-service/models"
)

func (a *api) createTask(w http.ResponseWriter, r *http.Request) {
	var input maintenance.CreateTaskInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	task, err := a.svc.Tasks.Create(r.Context(), principal(r), input)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Task created", task)
}

func (a *api) respondTasks(w http.ResponseWriter, tasks []models.AdminTask, err error) {
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Tasks fetched", tasks, len(tasks))
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.Tasks.List(r.Context())
	a.respondTasks(w, tasks, err)
}

func (a *api) overdueTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.Tasks.ListOverdue(r.Context())
	a.respondTasks(w, tasks, err)
}

func (a *api) tasksByStatus(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.Tasks.ListByStatus(r.Context(), r.PathValue("status"))
	a.respondTasks(w, tasks, err)
}

func (a *api) tasksByAssignee(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.Tasks.ListByAssignee(r.Context(), r.PathValue("userId"))
	a.respondTasks(w, tasks, err)
}

func (a *api) tasksByReport(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.Tasks.ListForReport(r.Context(), r.PathValue("reportId"))
	a.respondTasks(w, tasks, err)
}

func (a *api) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.svc.Tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Task fetched", task)
}

func (a *api) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status" validate:"required"`
	}
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	task, err := a.svc.Tasks.UpdateStatus(r.Context(), principal(r), r.PathValue("id"), input.Status)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Task status updated", task)
}

func (a *api) addTaskNote(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	task, err := a.svc.Tasks.AppendNote(r.Context(), principal(r), r.PathValue("id"), input.Text)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Note added", task)
}

func (a *api) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Tasks.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Task deleted", nil)
}
