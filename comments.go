package quill

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type commentInput struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"required,email,max=100"`
	URL   string `validate:"omitempty,http_url,max=200"`
	Text  string `validate:"required,max=5000"`
}

var fieldKeys = map[string]string{
	"Name":  "name",
	"Email": "email",
	"URL":   "url",
	"Text":  "text",
}

// Normalize trims every field of the form.
func (f *CommentForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.URL = strings.TrimSpace(f.URL)
	f.Text = strings.TrimSpace(f.Text)
}

// Validate fills f.Errors keyed by form field name and reports whether the
// form is acceptable.
func (f *CommentForm) Validate() bool {
	f.Normalize()
	f.Errors = nil
	err := validate.Struct(commentInput{Name: f.Name, Email: f.Email, URL: f.URL, Text: f.Text})
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		f.Errors = map[string]string{"form": "Could not check the comment."}
		return false
	}
	f.Errors = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		f.Errors[fieldKeys[fe.Field()]] = fieldMessage(fe)
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required."
	case "email":
		return "Enter a valid email address."
	case "http_url":
		return "Enter a valid http or https URL."
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters."
	}
	return fe.Field() + " is invalid."
}

// Comment builds the Comment for postID from a validated form.
func (f CommentForm) Comment(postID int64) Comment {
	return Comment{PostID: postID, Name: f.Name, Email: f.Email, URL: f.URL, Text: f.Text}
}
