// Package validation holds the form schemas checked before any remote call.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/go-playground/validator/v10"
)

// SummaryMessage is the top-level message of a failed form.
const SummaryMessage = "입력값을 확인해주세요."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// field.tag -> message
var messages = map[string]string{
	"name.min":          "이름은 최소 2자 이상이어야 합니다.",
	"name.max":          "이름은 100자를 초과할 수 없습니다.",
	"features.min":      "특징은 최소 3자 이상이어야 합니다.",
	"features.max":      "특징은 500자를 초과할 수 없습니다.",
	"bio.min":           "자기소개는 최소 10자 이상이어야 합니다.",
	"bio.max":           "자기소개는 500자를 초과할 수 없습니다.",
	"author.required":   "작성자 이름을 입력해주세요.",
	"author.max":        "작성자 이름은 50자를 초과할 수 없습니다.",
	"content.required":  "댓글 내용을 입력해주세요.",
	"content.max":       "댓글은 1000자를 초과할 수 없습니다.",
	"email.required":    "이메일을 입력해주세요.",
	"email.email":       "올바른 이메일 형식이 아닙니다.",
	"password.required": "비밀번호를 입력해주세요.",
}

// ProfileForm is the profile creation form.
type ProfileForm struct {
	Name     string `json:"name" form:"name" validate:"min=2,max=100"`
	Features string `json:"features" form:"features" validate:"min=3,max=500"`
	Bio      string `json:"bio" form:"bio" validate:"min=10,max=500"`
}

// Normalize trims surrounding whitespace from every field.
func (f *ProfileForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Features = strings.TrimSpace(f.Features)
	f.Bio = strings.TrimSpace(f.Bio)
}

// Validate normalizes f and checks it, returning a VALIDATION_ERROR with per-field messages.
func (f *ProfileForm) Validate() error {
	f.Normalize()
	return check(f)
}

// CommentForm is the comment and reply form.
type CommentForm struct {
	AuthorName string  `json:"author" form:"author" validate:"required,max=50"`
	Content    string  `json:"content" form:"content" validate:"required,max=1000"`
	ParentID   *string `json:"parent_id,omitempty" form:"parent_id"`
}

func (f *CommentForm) Validate() error {
	f.AuthorName = strings.TrimSpace(f.AuthorName)
	f.Content = strings.TrimSpace(f.Content)
	if f.ParentID != nil && strings.TrimSpace(*f.ParentID) == "" {
		f.ParentID = nil
	}
	return check(f)
}

// AdminLoginForm is the admin email/password sign-in form.
type AdminLoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (f *AdminLoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return models.NewFieldValidationError(SummaryMessage, fields)
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s 값이 올바르지 않습니다.", fe.Field())
}
