package admission

import (
	"errors"

	"github.com/hitoshi/admissions/internal/model"
)

// errorCode はerrがAPIErrorであればそのコードを返す。
func errorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
