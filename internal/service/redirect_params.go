package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/storage"
)

// Redirect markers set on the success and cancel URLs.
const (
	redirectSuccessParam  = "success"
	redirectCanceledParam = "canceled"
)

var redirectRequiredParams = []string{
	"teacherId", "studentId", "lessonType", "lessonDate", "lessonDuration", "amount", "currency",
}

var redirectOptionalParams = []string{
	"lessonFocus", "notes", "classesPerMonth", "subscriptionDuration", "paymentReference",
}

// Appended by the checkout provider to the finish URL.
var providerRedirectParams = []string{"order_id", "status_code", "transaction_status"}

// EncodeRedirectParams renders a booking payload as success-redirect query parameters.
func EncodeRedirectParams(req models.CreateBookingRequest) url.Values {
	values := url.Values{}
	values.Set(redirectSuccessParam, "true")
	values.Set("teacherId", req.TeacherID)
	values.Set("studentId", req.StudentID)
	values.Set("lessonType", string(req.LessonType))
	values.Set("lessonDate", req.LessonDate)
	values.Set("lessonDuration", strconv.Itoa(req.LessonDuration))
	values.Set("amount", req.Amount.StringFixed(2))
	values.Set("currency", req.Currency)
	setOptional(values, "lessonFocus", req.LessonFocus)
	setOptional(values, "notes", req.Notes)
	setOptional(values, "paymentReference", req.PaymentReference)
	if req.ClassesPerMonth != nil {
		values.Set("classesPerMonth", strconv.Itoa(*req.ClassesPerMonth))
	}
	if req.SubscriptionDuration != nil {
		values.Set("subscriptionDuration", strconv.Itoa(*req.SubscriptionDuration))
	}
	return values
}

// DecodeRedirectParams rebuilds the booking payload from a success redirect. Every missing
// required parameter is named in the error.
func DecodeRedirectParams(values url.Values) (models.CreateBookingRequest, error) {
	var missingParams []string
	for _, name := range redirectRequiredParams {
		if strings.TrimSpace(values.Get(name)) == "" {
			missingParams = append(missingParams, name)
		}
	}
	if len(missingParams) > 0 {
		err := appErrors.Clone(appErrors.ErrMissingRedirectParameter,
			"payment redirect is missing: "+strings.Join(missingParams, ", "))
		err.Field = missingParams[0]
		return models.CreateBookingRequest{}, err
	}

	req := models.CreateBookingRequest{
		TeacherID:        values.Get("teacherId"),
		StudentID:        values.Get("studentId"),
		LessonType:       models.LessonType(values.Get("lessonType")),
		LessonDate:       values.Get("lessonDate"),
		Currency:         values.Get("currency"),
		LessonFocus:      optional(values, "lessonFocus"),
		Notes:            optional(values, "notes"),
		PaymentReference: optional(values, "paymentReference"),
	}

	duration, err := strconv.Atoi(values.Get("lessonDuration"))
	if err != nil {
		return models.CreateBookingRequest{}, appErrors.Invalid("lessonDuration", "lessonDuration must be a whole number of minutes")
	}
	req.LessonDuration = duration

	amount, err := decimal.NewFromString(values.Get("amount"))
	if err != nil {
		return models.CreateBookingRequest{}, appErrors.Invalid("amount", "amount must be a decimal number")
	}
	req.Amount = amount

	if req.ClassesPerMonth, err = optionalInt(values, "classesPerMonth"); err != nil {
		return models.CreateBookingRequest{}, err
	}
	if req.SubscriptionDuration, err = optionalInt(values, "subscriptionDuration"); err != nil {
		return models.CreateBookingRequest{}, err
	}
	return req, nil
}

// CleanRedirectURL strips the processed booking parameters from a redirect URL, keeping the path
// and any unrelated query parameters, so the client can replace its history entry.
func CleanRedirectURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	query := u.Query()
	processed := append([]string{redirectSuccessParam, redirectCanceledParam, storage.ParamExpires, storage.ParamKeys, storage.ParamSignature},
		redirectRequiredParams...)
	processed = append(processed, redirectOptionalParams...)
	processed = append(processed, providerRedirectParams...)
	for _, name := range processed {
		query.Del(name)
	}
	clean := url.URL{Path: u.Path, RawQuery: query.Encode()}
	return clean.String()
}

func setOptional(values url.Values, name string, value *string) {
	if value != nil && *value != "" {
		values.Set(name, *value)
	}
}

func optional(values url.Values, name string) *string {
	value := strings.TrimSpace(values.Get(name))
	if value == "" {
		return nil
	}
	return &value
}

func optionalInt(values url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, appErrors.Invalid(name, name+" must be a whole number")
	}
	return &n, nil
}
