package rest

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"debtster-dashboard/internal/service"

	"github.com/go-chi/chi/v5"
)

const maxUploadMemory = 32 << 20

type uploadResultDTO struct {
	Uploaded []attachmentDTO            `json:"uploaded"`
	Failed   []service.AttachmentFailure `json:"failed"`
}

// uploadAttachments accepts multipart/form-data with one or more "files"
// parts and an optional "description" applied to all of them.
func (h *Handler) uploadAttachments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			ErrorBadRequest(w, "multipart/form-data is required")
			return
		}
		ErrorBadRequest(w, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var description *string
	if d := strings.TrimSpace(r.FormValue("description")); d != "" {
		description = &d
	}

	headers := r.MultipartForm.File["files"]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			ErrorBadRequest(w, "cannot read file "+fh.Filename)
			closeAll(files)
			return
		}
		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
			Description: description,
		})
	}
	defer closeAll(files)

	res, err := h.attachments.UploadAttachments(r.Context(), chi.URLParam(r, "id"), files)
	if err != nil {
		Fail(w, r, err, "case")
		return
	}

	out := uploadResultDTO{
		Uploaded: make([]attachmentDTO, 0, len(res.Uploaded)),
		Failed:   res.Failed,
	}
	if out.Failed == nil {
		out.Failed = []service.AttachmentFailure{}
	}
	for _, a := range res.Uploaded {
		out.Uploaded = append(out.Uploaded, toAttachmentDTO(a))
	}

	if len(out.Uploaded) == 0 {
		Response(w, "no files were uploaded", out, 422, "error", http.StatusUnprocessableEntity)
		return
	}
	SuccessCreated(w, "", out)
}

func closeAll(files []service.UploadFile) {
	for _, f := range files {
		if c, ok := f.Body.(multipart.File); ok {
			_ = c.Close()
		}
	}
}

func (h *Handler) attachmentURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.attachments.AttachmentURL(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		Fail(w, r, err, "attachment")
		return
	}
	Success(w, "", map[string]string{"url": url})
}
