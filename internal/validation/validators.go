package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/timeutil"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("hhmm", validateHHMM); err != nil {
		panic(fmt.Sprintf("failed to register hhmm validator: %v", err))
	}
	if err := Validate.RegisterValidation("plan_date", validatePlanDate); err != nil {
		panic(fmt.Sprintf("failed to register plan_date validator: %v", err))
	}
	if err := Validate.RegisterValidation("activity_source", validateActivitySource); err != nil {
		panic(fmt.Sprintf("failed to register activity_source validator: %v", err))
	}
}

// validateHHMM accepts H:MM or HH:MM wall-clock times. Empty values pass so
// optional fields can be combined with omitempty or required.
func validateHHMM(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := timeutil.Normalize(value)
	return err == nil
}

// validatePlanDate accepts real YYYY-MM-DD calendar dates
func validatePlanDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(models.PlanDateLayout, value)
	return err == nil
}

func validateActivitySource(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return ValidateActivitySource(value) == nil
}

// ValidateActivitySource validates an ActivitySource string value
func ValidateActivitySource(value string) error {
	switch models.ActivitySource(value) {
	case models.ActivitySourceUser, models.ActivitySourceAI:
		return nil
	default:
		return fmt.Errorf("invalid source: %s (must be 'user' or 'ai')", value)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// FieldErrors renders validator errors as "field: tag" pairs for API responses
func FieldErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
