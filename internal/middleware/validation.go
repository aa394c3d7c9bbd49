package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-backoffice/internal/model"
	"github.com/jwalitptl/clinic-backoffice/internal/service/stage"
)

// RegisterValidators switches gin's binding to `validate` tags, reports
// fields by their json names and adds the `stage` tag backed by table.
func RegisterValidators(table *stage.Table) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	v.SetTagName("validate")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return table.Has(model.Stage(fl.Field().String()))
	})
}
