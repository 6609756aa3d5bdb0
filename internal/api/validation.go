package api

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/width"

	"clubattend/pkg/types"
)

var registerOnce sync.Once

// registerValidators adds the clubcode and isodate binding tags to gin's validator
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("clubcode", func(fl validator.FieldLevel) bool {
			return types.IsValidClubCode(fl.Field().String())
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := types.ParseAttendanceDate(fl.Field().String())
			return err == nil
		})
	})
}

// normalizeCode folds full-width characters (as typed on CJK mobile
// keyboards) to ASCII and trims whitespace so "ＡＢＣ：７８９" compares equal
// to "ABC:789"
func normalizeCode(s string) string {
	return strings.TrimSpace(width.Narrow.String(s))
}
