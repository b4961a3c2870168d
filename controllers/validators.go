package controllers

import (
	"fixit-be/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags. It is safe to call more
// than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("department", validDepartment); err != nil {
		return err
	}
	return v.RegisterValidation("role", validRole)
}

func validDepartment(fl validator.FieldLevel) bool {
	_, ok := models.ParseDepartment(fl.Field().String())
	return ok
}

func validRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}
