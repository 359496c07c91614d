// Package validator provides struct validation utilities with custom
// validators for the asset and rule domains.
package validator

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/finding"
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("asset_type", validateAssetType)
	_ = v.RegisterValidation("criticity", validateCriticity)
	_ = v.RegisterValidation("severity", validateSeverity)
	_ = v.RegisterValidation("finding_status", validateFindingStatus)
	_ = v.RegisterValidation("rule_scope", validateRuleScope)
	_ = v.RegisterValidation("rule_target", validateRuleTarget)
	_ = v.RegisterValidation("rule_trigger", validateRuleTrigger)
	_ = v.RegisterValidation("rule_severity", validateRuleSeverity)

	return &Validator{validate: v}
}

// Validate validates a struct and returns structured errors.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if stderrors.As(err, &invalidErr) {
		return fmt.Errorf("invalid validation target: %w", err)
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "asset_type":
		return "must be a valid asset type"
	case "criticity":
		return "must be one of: low, medium, high"
	case "severity":
		return "must be one of: info, low, medium, high, critical"
	case "finding_status":
		return "must be one of: new, ack"
	case "rule_scope":
		return "must be one of: asset, finding, scan"
	case "rule_target":
		return "must be a valid notification target"
	case "rule_trigger":
		return "must be one of: ondemand, auto, periodic"
	case "rule_severity":
		return "must be one of: Low, Medium, High"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func validateAssetType(fl validator.FieldLevel) bool {
	return asset.Type(fl.Field().String()).IsValid()
}

func validateCriticity(fl validator.FieldLevel) bool {
	return asset.Criticity(fl.Field().String()).IsValid()
}

func validateSeverity(fl validator.FieldLevel) bool {
	return finding.Severity(fl.Field().String()).IsValid()
}

func validateFindingStatus(fl validator.FieldLevel) bool {
	return finding.Status(fl.Field().String()).IsValid()
}

func validateRuleScope(fl validator.FieldLevel) bool {
	return alertrule.Scope(fl.Field().String()).IsValid()
}

func validateRuleTarget(fl validator.FieldLevel) bool {
	return alertrule.Target(fl.Field().String()).IsValid()
}

func validateRuleTrigger(fl validator.FieldLevel) bool {
	return alertrule.Trigger(fl.Field().String()).IsValid()
}

func validateRuleSeverity(fl validator.FieldLevel) bool {
	return alertrule.Severity(fl.Field().String()).IsValid()
}
