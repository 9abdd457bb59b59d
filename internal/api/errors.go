package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"taskflow/internal/service"
)

var registerOnce sync.Once

// registerValidation makes binding errors report json field names and adds
// the hexcolor6 rule.
func registerValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		if err := v.RegisterValidation("hexcolor6", validateHexColor); err != nil {
			log.Printf("[warn] register hexcolor6 rule: %v", err)
		}
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validateHexColor(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != 7 || value[0] != '#' {
		return false
	}
	for _, r := range value[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// respondError writes err using the status code its kind maps to.
func respondError(c *gin.Context, err error) {
	var (
		bindErrs validator.ValidationErrors
		verr     *service.ValidationError
		cerr     *service.ConflictError
	)
	switch {
	case errors.As(err, &bindErrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The given data was invalid.", "errors": bindingFields(bindErrs)})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The given data was invalid.", "errors": verr.Fields})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{
			"message": fmt.Sprintf("The %s has already been taken.", cerr.Field),
			"errors":  map[string][]string{cerr.Field: {cerr.Message}},
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
	default:
		log.Printf("[warn] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// respondBindError handles a failed ShouldBind call. Rule violations map to
// 422, malformed payloads to 400.
func respondBindError(c *gin.Context, err error) {
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed request: " + err.Error()})
}

func bindingFields(errs validator.ValidationErrors) map[string][]string {
	fields := make(map[string][]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = append(fields[fe.Field()], ruleMessage(fe))
	}
	return fields
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("may not be greater than %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "hexcolor6":
		return "must be a hex color like #A1B2C3"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, service.ErrUnauthorized)
}
