package services

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openlearnhub/liveclass/domain"
	errs "github.com/openlearnhub/liveclass/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names in validation errors so callers see the field
	// they actually sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// CreateSessionInput carries everything needed to create a session. The
// creator's identity travels separately; InstructorID names who will teach.
type CreateSessionInput struct {
	Title            string                  `json:"title" validate:"required,min=3,max=100"`
	Description      string                  `json:"description" validate:"max=500"`
	CourseID         string                  `json:"courseId" validate:"required"`
	InstructorID     string                  `json:"instructorId" validate:"required"`
	ScheduledDate    time.Time               `json:"scheduledDate" validate:"required"`
	ScheduledTime    string                  `json:"scheduledTime" validate:"required"`
	Duration         int                     `json:"duration" validate:"required,min=15,max=180"`
	SessionType      domain.SessionType      `json:"sessionType" validate:"required,oneof=live recorded hybrid"`
	MaxParticipants  int                     `json:"maxParticipants" validate:"required,min=1,max=100"`
	IsRecurring      bool                    `json:"isRecurring"`
	RecurringPattern domain.RecurringPattern `json:"recurringPattern" validate:"omitempty,oneof=weekly biweekly monthly"`
	RecurringEndDate *time.Time              `json:"recurringEndDate"`
	Settings         *domain.SessionSettings `json:"settings"`
}

// UpdateSessionInput is a partial patch of the editable fields. Nil means
// "leave unchanged". Identity, lifecycle and recurrence lineage fields are
// not editable.
type UpdateSessionInput struct {
	Title           *string                 `json:"title" validate:"omitempty,min=3,max=100"`
	Description     *string                 `json:"description" validate:"omitempty,max=500"`
	ScheduledDate   *time.Time              `json:"scheduledDate"`
	ScheduledTime   *string                 `json:"scheduledTime"`
	Duration        *int                    `json:"duration" validate:"omitempty,min=15,max=180"`
	SessionType     *domain.SessionType     `json:"sessionType" validate:"omitempty,oneof=live recorded hybrid"`
	MaxParticipants *int                    `json:"maxParticipants" validate:"omitempty,min=1,max=100"`
	Settings        *domain.SessionSettings `json:"settings"`
}

// MaterialInput describes a resource reference to attach to a session.
type MaterialInput struct {
	Name string `json:"name" validate:"required,max=200"`
	Type string `json:"type" validate:"required,max=50"`
	URL  string `json:"url" validate:"required,url"`
	Size int64  `json:"size" validate:"min=0"`
}

// FeedbackInput is a post-session rating.
type FeedbackInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// EndSessionInput carries optional completion data. RecordingURL is the
// opaque reference handed back by the media transport when recording was on.
type EndSessionInput struct {
	RecordingURL string `json:"recordingUrl" validate:"omitempty,url"`
}

// validateStruct runs tag validation and converts the first failure into a
// typed validation error naming the field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errs.NewValidation(fe.Field(), describeFieldError(fe))
	}
	return errs.NewValidation("", err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

func validateCreate(in *CreateSessionInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if !timeOfDayRe.MatchString(in.ScheduledTime) {
		return errs.NewValidation("scheduledTime", "must be HH:MM in 24-hour format")
	}
	if in.IsRecurring && in.RecurringPattern == "" {
		return errs.NewValidation("recurringPattern", "is required when isRecurring is set")
	}
	if in.RecurringEndDate != nil && in.RecurringEndDate.Before(in.ScheduledDate) {
		return errs.NewValidation("recurringEndDate", "must not be before scheduledDate")
	}
	return nil
}

func validateUpdate(in *UpdateSessionInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.ScheduledTime != nil && !timeOfDayRe.MatchString(*in.ScheduledTime) {
		return errs.NewValidation("scheduledTime", "must be HH:MM in 24-hour format")
	}
	return nil
}
