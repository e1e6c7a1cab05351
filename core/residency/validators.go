package residency

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/iannini25/auxiliosindico-web/core"
)

var (
	apartmentTag  = "apartment"
	apartmentText = ErrInvalidApartment.Error()
)

// InitValidators registers the validators of this package; core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(apartmentTag, apartmentValidation)
	core.RegisterCustomTranslation(validate, translator, apartmentTag, apartmentText)
}

// apartmentValidation accepts the numbers of existing apartments, see IsValidApartment.
func apartmentValidation(fl validator.FieldLevel) bool {
	_, ok := ParseApartment(fl.Field().String())
	return ok
}
