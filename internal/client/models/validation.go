package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/trainctl/internal/common"
)

// MinPasswordLength is the shortest password the registration form accepts.
const MinPasswordLength = 8

// ValidationError reports a rejected input field before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return common.ErrorValidation
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

var passwordClasses = []*regexp.Regexp{
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`[0-9]`),
	regexp.MustCompile(`[^a-zA-Z0-9]`),
}

// ValidateRegistration applies the registration form rules.
func ValidateRegistration(email, password, confirm string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required")
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Minimum length is %d", MinPasswordLength))
	}
	for _, re := range passwordClasses {
		if !re.MatchString(password) {
			return invalid("password", "Password must contain lowercase, uppercase, number, and special character")
		}
	}
	if confirm == "" {
		return invalid("confirm_password", "Please confirm your password")
	}
	if confirm != password {
		return invalid("confirm_password", "Passwords do not match")
	}
	return nil
}

// ValidateLogin only checks that both fields are present.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required")
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

// TrainingForm is the raw user input for a training submission.
type TrainingForm struct {
	TargetColumn string
	C            string
	MaxIter      string
	// Extra holds additional "name=value" parameters.
	Extra []string
	// File holds parameters read from a YAML or JSON file. Extra and the
	// fields above take precedence over it.
	File map[string]any
}

// Parameters validates f and builds the request parameters:
//
//	{"target_column": "...", "model_params": {"C": 0.5, "max_iter": 200}, ...extra}
func (f TrainingForm) Parameters() (map[string]any, error) {
	target := strings.TrimSpace(f.TargetColumn)
	if target == "" {
		return nil, invalid("target_column", "Target column is required")
	}

	modelParams := map[string]any{}
	if mp, ok := f.File["model_params"].(map[string]any); ok {
		for k, v := range mp {
			modelParams[k] = v
		}
	}
	if s := strings.TrimSpace(f.C); s != "" {
		c, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid("model_params.C", "must be a number")
		}
		if c <= 0 {
			return nil, invalid("model_params.C", "must be positive")
		}
		modelParams["C"] = c
	}
	if s := strings.TrimSpace(f.MaxIter); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalid("model_params.max_iter", "must be an integer")
		}
		if n <= 0 {
			return nil, invalid("model_params.max_iter", "must be positive")
		}
		modelParams["max_iter"] = n
	}

	extra, err := ParamsFromStrings(f.Extra)
	if err != nil {
		return nil, err
	}
	params := make(map[string]any, len(f.File)+len(extra)+2)
	for k, v := range f.File {
		params[k] = v
	}
	for k, v := range extra {
		params[k] = v
	}
	params["target_column"] = target
	params["model_params"] = modelParams
	return params, nil
}

// ParamsFromStrings parses "name=value" lines. Numeric values become float64,
// "true"/"false" become bools, everything else stays a string.
func ParamsFromStrings(lines []string) (map[string]any, error) {
	out := make(map[string]any, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, invalid("parameters", fmt.Sprintf("%q must be name=value", line))
		}
		out[name] = parseScalar(strings.TrimSpace(value))
	}
	return out, nil
}

func parseScalar(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
