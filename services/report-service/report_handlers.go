package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/storage"
	"campus-maintenance-system/pkg/validation"
	"campus-maintenance-system/services/report-service/maintenance"
)

// maxUploadBody leaves room for the form fields around a full-size photo.
const maxUploadBody = storage.MaxPhotoSize + 1<<20

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseUpload parses a multipart body and stores its optional "photo" part
// under prefix. It returns false once it has written an error response.
// The zero Stored means no photo was sent.
func (a *api) parseUpload(w http.ResponseWriter, r *http.Request, prefix string) (storage.Stored, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.UploadError(w, http.StatusBadRequest, "File too large (max 5MB)")
			return storage.Stored{}, false
		}
		response.UploadError(w, http.StatusBadRequest, "Invalid multipart form")
		return storage.Stored{}, false
	}

	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return storage.Stored{}, true
	}
	if err != nil {
		response.UploadError(w, http.StatusBadRequest, "Invalid photo upload")
		return storage.Stored{}, false
	}
	defer file.Close()

	if a.photos == nil {
		response.UploadError(w, http.StatusServiceUnavailable, "Photo uploads are disabled")
		return storage.Stored{}, false
	}
	stored, err := storage.Upload(r.Context(), a.photos, prefix, file)
	switch {
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrNotAnImage), errors.Is(err, storage.ErrEmptyUpload):
		response.UploadError(w, http.StatusBadRequest, err.Error())
		return storage.Stored{}, false
	case err != nil:
		middleware.LogErrorCtx(r.Context(), "Photo upload failed", err)
		response.UploadError(w, http.StatusInternalServerError, "Failed to upload photo")
		return storage.Stored{}, false
	}
	return stored, true
}

// discardUpload removes a photo whose report or comment was rejected.
func (a *api) discardUpload(ctx context.Context, up storage.Stored) {
	if up.Key == "" || a.photos == nil {
		return
	}
	if err := a.photos.Delete(ctx, up.Key); err != nil {
		middleware.LogWarnCtx(ctx, "Failed to remove rejected photo "+up.Key, err)
	}
}

func (a *api) createReport(w http.ResponseWriter, r *http.Request) {
	var input maintenance.CreateReportInput
	var upload storage.Stored
	if isMultipart(r) {
		var ok bool
		upload, ok = a.parseUpload(w, r, "reports")
		if !ok {
			return
		}
		input = maintenance.CreateReportInput{
			Category:    r.FormValue("category"),
			Description: r.FormValue("description"),
			Building:    r.FormValue("building"),
			Location:    r.FormValue("location"),
			Room:        r.FormValue("room"),
			Priority:    r.FormValue("priority"),
			Status:      r.FormValue("status"),
			PhotoURL:    upload.URL,
			PhotoKey:    upload.Key,
		}
	} else if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	report, err := a.svc.Reports.Create(r.Context(), principal(r), input)
	if err != nil {
		a.discardUpload(r.Context(), upload)
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Report created successfully", report)
}

func (a *api) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reports, err := a.svc.Reports.List(r.Context(), principal(r), maintenance.ListReportsInput{
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		TimeRange: q.Get("timeRange"),
	})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Reports fetched", reports, len(reports))
}

func (a *api) myReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.svc.Reports.ListMine(r.Context(), principal(r))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Reports fetched", reports, len(reports))
}

func (a *api) analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Reports.Analytics(r.Context(), principal(r), r.URL.Query().Get("timeRange"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Analytics fetched", stats)
}

func (a *api) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.svc.Reports.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Report fetched", report)
}

func (a *api) updateReportStatus(w http.ResponseWriter, r *http.Request) {
	var input maintenance.StatusUpdateInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	result, err := a.svc.Reports.UpdateStatus(r.Context(), principal(r), r.PathValue("id"), input)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Report status updated", result)
}

func (a *api) updateReportPriority(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Priority string `json:"priority" validate:"required"`
	}
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	report, err := a.svc.Reports.UpdatePriority(r.Context(), principal(r), r.PathValue("id"), input.Priority)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Report priority updated", report)
}

func (a *api) addComment(w http.ResponseWriter, r *http.Request) {
	var input maintenance.CommentInput
	var upload storage.Stored
	if isMultipart(r) {
		var ok bool
		upload, ok = a.parseUpload(w, r, "comments")
		if !ok {
			return
		}
		input = maintenance.CommentInput{Text: r.FormValue("commentText"), PhotoURL: upload.URL, PhotoKey: upload.Key}
	} else if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	report, err := a.svc.Reports.AddComment(r.Context(), principal(r), r.PathValue("id"), input)
	if err != nil {
		a.discardUpload(r.Context(), upload)
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Comment added", report)
}

func (a *api) deleteReport(w http.ResponseWriter, r *http.Request) {
	result, err := a.svc.Reports.Delete(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		if apperror.Is(err, apperror.KindInternal) {
			middleware.LogErrorCtx(r.Context(), "Cascade delete failed", err)
		}
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Report deleted", result)
}
