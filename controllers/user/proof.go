package user

import (
	"io"

	"cashier/helpers"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) AttachProof(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return invalidSession(c)
	}
	id, ok := helpers.UintParam(c, "id")
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST_ID")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return helpers.JSONError(c, "FILE_REQUIRED")
	}
	if fh.Size > h.app.Proofs.MaxBytes() {
		return helpers.JSONError(c, "FILE_TOO_LARGE")
	}

	f, err := fh.Open()
	if err != nil {
		return helpers.JSONError(c, "FILE_UNREADABLE")
	}
	defer f.Close()

	// +1 so an oversize stream still fails FILE_TOO_LARGE in Attach
	data, err := io.ReadAll(io.LimitReader(f, h.app.Proofs.MaxBytes()+1))
	if err != nil {
		return helpers.JSONError(c, "FILE_UNREADABLE")
	}

	ref, err := h.app.Proofs.Attach(c.UserContext(), user, id, services.ProofFile{
		Filename: fh.Filename,
		Data:     data,
	})
	if err != nil {
		return helpers.JSONFail(c, err)
	}
	return helpers.JSONSuccess(c, "Proof uploaded", fiber.Map{
		"request_id": id,
		"proof_ref":  ref,
	})
}
