// Package validation はリクエストの入力検証を提供する。
// go-playground/validator のタグで検証し、英語のメッセージに翻訳して返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hitoshi/admissions/internal/model"
)

// カスタム検証タグ
const (
	notBlankTag  = "notblank"
	statusTag    = "applicant_status"
	classYearTag = "class_year"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// statusList はエラーメッセージ用の "Applied, Waitlist, ..." 形式の一覧。
	statusList = joinStatuses(model.AllStatuses())
)

func joinStatuses(statuses []model.Status) string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

func init() {
	validate = validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	var found bool
	translator, found = uni.GetTranslator("en")
	if !found {
		panic("validation: en translator not found")
	}
	mustRegister("default translations", en_translations.RegisterDefaultTranslations(validate, translator))

	// エラーのフィールド名にはJSONタグ名を使う
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(notBlankTag, validate.RegisterValidation(notBlankTag, notBlank))
	mustRegister(statusTag, validate.RegisterValidation(statusTag, applicantStatus))
	mustRegister(classYearTag, validate.RegisterValidation(classYearTag, classYear))

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, statusTag, classYearTag} {
		mustRegister(tag+" translation", validate.RegisterTranslation(tag, translator, registerFn, translateCustom))
	}
}

// mustRegister は起動時の登録に失敗した場合にpanicする。
// 登録漏れのタグは検証されずに素通りするため、起動を止める。
func mustRegister(name string, err error) {
	if err != nil {
		panic(fmt.Sprintf("validation: failed to register %s: %v", name, err))
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case statusTag:
		return fe.Field() + " must be one of " + statusList
	case classYearTag:
		return fe.Field() + " must be one of " + strings.Join(model.ClassYears, ", ")
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func applicantStatus(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, ok = model.ParseStatus(s)
	return ok
}

func classYear(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, y := range model.ClassYears {
		if s == y {
			return true
		}
	}
	return false
}

// Struct はvを検証し、失敗した場合は *model.APIError (VALIDATION_ERROR) を返す。
// メッセージはフィールド名順に "; " で連結する。
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	sort.Strings(msgs)
	return model.NewValidationError(strings.Join(msgs, "; "))
}
