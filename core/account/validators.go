package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/classbook/core"
)

var (
	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"

	pwdUnchangedTag  = "pwdunchanged"
	pwdUnchangedText = "new password must be different from the current one"

	roleTag  = "role"
	roleText = "invalid role"
)

// InitValidators registers the account validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(changePasswordStructValidation, ChangePassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdUnchangedTag, pwdUnchangedText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}

func changePasswordStructValidation(sl validator.StructLevel) {
	cp, ok := sl.Current().Interface().(ChangePassword)
	if !ok || cp.NewPassword == "" {
		return
	}
	if cp.NewPassword == cp.CurrentPassword {
		sl.ReportError(cp.NewPassword, "new_password", "NewPassword", pwdUnchangedTag, "")
		return
	}
	if tag := checkPassword(cp.NewPassword, cp.email, cp.firstName, cp.lastName); tag != "" {
		sl.ReportError(cp.NewPassword, "new_password", "NewPassword", tag, "")
	}
}

// checkPassword applies the password policy and returns the failing tag, if any:
// - minLen: 6
// - no whitespace
// - not all numeric
// - no similarity with the owner's email or names
func checkPassword(pwd, email, firstName, lastName string) string {
	if len([]rune(pwd)) < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len([]rune(pwd)) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	getRatio := func(attr string) float64 {
		attr = strings.ToLower(attr)
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
	}
	localPart := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		localPart = email[:i]
	}
	if getRatio(localPart) >= pwdMaxSim ||
		getRatio(firstName+lastName) >= pwdMaxSim ||
		getRatio(lastName+firstName) >= pwdMaxSim {
		return pwdAttrSimTag
	}
	return ""
}
