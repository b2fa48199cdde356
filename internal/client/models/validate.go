package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/go-playground/validator/v10"
)

var ErrIncorrectItem = fmt.Errorf("%w: item must be value or value=usage[,usage]", common.ErrValidation)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the user-editable fields of an Info record. Failures wrap
// common.ErrValidation and name the offending fields.
func (i Info) Validate() error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: passfile %d: %s", common.ErrValidation, i.ID, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", common.ErrValidation, err)
}
