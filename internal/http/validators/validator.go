package validators

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "notegrid.app/notegrid/internal/errors"
	"notegrid.app/notegrid/internal/identity"
	model "notegrid.app/notegrid/pkg/models"
)

// RequestValidator is the echo.Validator for request bodies. Every failure
// is reported as ErrInvalidBody; field details are not exposed to clients.
type RequestValidator struct {
	validate *validator.Validate
}

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister(v, "identity", func(fl validator.FieldLevel) bool {
		return identity.Validate(fl.Field().String())
	})
	mustRegister(v, "quadrant", func(fl validator.FieldLevel) bool {
		return model.Quadrant(fl.Field().String()).Valid()
	})
	mustRegister(v, "kanban", func(fl validator.FieldLevel) bool {
		return model.KanbanStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "palette", func(fl validator.FieldLevel) bool {
		return model.ValidColor(fl.Field().String())
	})
	v.RegisterStructValidation(taskUpdateRules, model.TaskUpdate{})

	return &RequestValidator{validate: v}
}

func (r *RequestValidator) Validate(i interface{}) error {
	if err := r.validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidBody, err)
	}
	return nil
}

func taskUpdateRules(sl validator.StructLevel) {
	u, ok := sl.Current().Interface().(model.TaskUpdate)
	if !ok {
		return
	}
	if u.Quadrant.Set && !u.Quadrant.Value.Valid() {
		sl.ReportError(u.Quadrant.Value, "q", "Quadrant", "quadrant", "")
	}
	if u.Kanban.Set && !u.Kanban.Value.Valid() {
		sl.ReportError(u.Kanban.Value, "kanban", "Kanban", "kanban", "")
	}
	if u.Color.Present() && !model.ValidColor(u.Color.Value) {
		sl.ReportError(u.Color.Value, "color", "Color", "palette", "")
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}
