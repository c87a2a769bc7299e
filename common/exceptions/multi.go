package exceptions

import (
	"strings"

	"github.com/sagernet/sing-rpc/common"
)

type multiError struct {
	errors []error
}

func (e *multiError) Error() string {
	return "multi error: (" + strings.Join(common.Map(e.errors, func(it error) string {
		return it.Error()
	}), " | ") + ")"
}

func (e *multiError) Unwrap() []error {
	return e.errors
}

// Errors collapses the non-nil errors into one value.
func Errors(errors ...error) error {
	errors = common.Filter(errors, func(it error) bool {
		return it != nil
	})
	switch len(errors) {
	case 0:
		return nil
	case 1:
		return errors[0]
	}
	return &multiError{errors}
}
