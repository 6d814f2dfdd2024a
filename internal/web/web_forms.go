package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	goerrors "github.com/goliatone/go-errors"

	"github.com/go-while/go-guildhub/internal/models"
)

// FormResult is the outcome of binding and validating an article form.
// Form always carries the submitted values so an invalid form can be shown again.
type FormResult struct {
	Form   models.ArticleForm
	Errors map[string]string // field name -> message
}

// Valid reports whether the form passed validation
func (r FormResult) Valid() bool {
	return len(r.Errors) == 0
}

func (s *WebServer) formLimits() models.FormLimits {
	return models.FormLimits{
		TitleMaxLength:  s.Config.Articles.TitleMaxLength,
		ContentMaxBytes: s.Config.Articles.ContentMaxBytes,
	}
}

// bindArticleForm binds the request body into an ArticleForm and validates it
func (s *WebServer) bindArticleForm(c *gin.Context) FormResult {
	var form models.ArticleForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		return FormResult{Form: form, Errors: map[string]string{"form": "could not read the submitted form"}}
	}
	form.Normalize()

	if err := form.Validate(s.formLimits()); err != nil {
		verr := goerrors.FromOzzoValidation(err, "article form is invalid")
		fieldErrors := verr.ValidationMap()
		if len(fieldErrors) == 0 {
			fieldErrors = map[string]string{"form": verr.Message}
		}
		return FormResult{Form: form, Errors: fieldErrors}
	}
	return FormResult{Form: form}
}

// overridableMethods are the methods a POST form may ask for
var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms reach PUT routes. A POST carrying a
// "_method" form field or an X-HTTP-Method-Override header is dispatched
// with that method instead. Routing happens before gin middleware runs,
// so this wraps the engine.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.Header.Get("X-HTTP-Method-Override")
			if method == "" && isFormContent(r) {
				method = r.PostFormValue("_method")
			}
			method = strings.ToUpper(strings.TrimSpace(method))
			if overridableMethods[method] {
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isFormContent(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
