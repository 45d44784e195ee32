package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"salesetl/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "inputs.sales.source.http.url").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
	})
	return validate
}

// ValidatePipeline lints p. Struct tags are checked first, then the
// cross-field rules that tags cannot express. It does not mutate p; call it
// after ApplyDefaults to lint the effective configuration.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if err := structValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
		}
		for _, fe := range verrs {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fieldPath(fe.Namespace()),
				Message:  tagMessage(fe),
			})
		}
	}

	for _, e := range schema.LoadOrder {
		in, _ := p.Inputs.For(e)
		issues = append(issues, validateSource("inputs."+string(e)+".source", in.Source)...)
	}
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateTransform(p.Transform)...)
	issues = append(issues, validateSchedule(p.Schedule)...)
	return issues
}

// validateSource checks the fields required by the selected kind.
func validateSource(path string, s Source) []Issue {
	var issues []Issue
	missing := func(field string) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + "." + field,
			Message:  fmt.Sprintf("%s source requires %s", s.Kind, field[strings.LastIndex(field, ".")+1:]),
		})
	}
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			missing("file.path")
		}
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			missing("http.url")
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".http.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	case "s3":
		if strings.TrimSpace(s.S3.Bucket) == "" {
			missing("s3.bucket")
		}
		if strings.TrimSpace(s.S3.Key) == "" {
			missing("s3.key")
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	if strings.TrimSpace(s.DB.DSN) != "" {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "storage.db.dsn",
		Message:  "dsn is empty; it will be built from DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and DB_NAME",
	}}
}

func validateTransform(t TransformConfig) []Issue {
	var issues []Issue
	seen := map[string]string{}
	for src, dst := range t.HeaderMap {
		if strings.TrimSpace(dst) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "transform.header_map",
				Message:  fmt.Sprintf("header %q maps to an empty column name", src),
			})
			continue
		}
		if prev, ok := seen[dst]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "transform.header_map",
				Message:  fmt.Sprintf("headers %q and %q both map to %q; the later column wins", prev, src, dst),
			})
		}
		seen[dst] = src
	}
	return issues
}

func validateSchedule(s Schedule) []Issue {
	if s.Cron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s.Cron); err != nil {
		return []Issue{{
			Severity: SeverityError,
			Path:     "schedule.cron",
			Message:  fmt.Sprintf("invalid cron expression: %v", err),
		}}
	}
	return nil
}

// jsonName makes validator report JSON field names.
func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath turns "Pipeline.inputs.customer.source.kind" into
// "inputs.customer.source.kind".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "url":
		return fmt.Sprintf("must be a valid URL, got %q", fe.Value())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
